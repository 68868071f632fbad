package realtime

import (
	"encoding/json"
	"time"

	"github.com/aafarian/hantibink-sub003/internal/api"
)

// Wire frame: {"event":"liked_you","data":{...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	EventLikedYou = "liked_you"
	EventMatch    = "match"
	EventMessage  = "message"
)

const (
	LikedYouAdd    = "add"
	LikedYouRemove = "remove"
)

type LikedYouUser struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Age      int               `json:"age"`
	Location string            `json:"location"`
	Bio      string            `json:"bio"`
	Photos   []api.PhotoRecord `json:"photos"`
}

// LikedYouEvent is the tagged add/remove variant for the incoming-likes
// list. Add carries User/ActionID/ActionType/LikedAt, remove carries
// UserID/Reason.
type LikedYouEvent struct {
	Kind       string       `json:"kind"`
	User       LikedYouUser `json:"user"`
	ActionID   string       `json:"actionId"`
	ActionType string       `json:"actionType"`
	LikedAt    time.Time    `json:"likedAt"`
	UserID     string       `json:"userId"`
	Reason     string       `json:"reason"`
}

type MatchEvent struct {
	MatchID   string    `json:"matchId"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Photo     string    `json:"photo"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageEvent struct {
	ID       string    `json:"id"`
	ClientID string    `json:"clientId,omitempty"`
	MatchID  string    `json:"matchId"`
	SenderID string    `json:"senderId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}
