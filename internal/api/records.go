package api

import "time"

// Wire records for the backend REST surface. Field names follow the
// backend's camelCase JSON.

type PhotoRecord struct {
	URL    string `json:"url"`
	IsMain bool   `json:"isMain"`
}

type LikeRecord struct {
	ID          string        `json:"id"`
	ActionID    string        `json:"actionId"`
	Name        string        `json:"name"`
	Age         int           `json:"age"`
	Location    string        `json:"location"`
	Bio         string        `json:"bio"`
	Photos      []PhotoRecord `json:"photos"`
	IsSuperLike bool          `json:"isSuperLike"`
	LikedAt     time.Time     `json:"likedAt"`
}

type LikesPage struct {
	Records         []LikeRecord
	TotalCount      int
	TotalLikesCount int
}

type ActionResult struct {
	IsMatch bool   `json:"isMatch"`
	MatchID string `json:"matchId"`
}

type ProfileRecord struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Age      int           `json:"age"`
	Location string        `json:"location"`
	Bio      string        `json:"bio"`
	Photos   []PhotoRecord `json:"photos"`
}

type ConversationRecord struct {
	MatchID     string    `json:"matchId"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Photo       string    `json:"photo"`
	LastMessage string    `json:"lastMessage"`
	LastAt      time.Time `json:"lastAt"`
	Unread      int       `json:"unread"`
}

type MessageRecord struct {
	ID       string    `json:"id"`
	ClientID string    `json:"clientId,omitempty"`
	MatchID  string    `json:"matchId"`
	SenderID string    `json:"senderId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

type SessionPayload struct {
	UserID       string        `json:"userId"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         ProfileRecord `json:"user"`
}

type PlaceRecord struct {
	CityID string `json:"cityId"`
	City   string `json:"city"`
}

type RegistrationPayload struct {
	Email     string        `json:"email"`
	Password  string        `json:"password"`
	Name      string        `json:"name"`
	Birthdate string        `json:"birthdate"`
	Gender    string        `json:"gender"`
	Interest  string        `json:"interest"`
	Bio       string        `json:"bio"`
	Photos    []PhotoRecord `json:"photos"`
	Lat       float64       `json:"lat"`
	Lon       float64       `json:"lon"`
}
