package model

import "time"

type Match struct {
	ID        string
	UserID    string
	Name      string
	Photo     string
	CreatedAt time.Time
}

type Conversation struct {
	MatchID     string
	UserID      string
	Name        string
	Photo       string
	LastMessage string
	LastAt      time.Time
	Unread      int
}

type Message struct {
	ID       string
	MatchID  string
	SenderID string
	Text     string
	SentAt   time.Time
	Pending  bool
}
