package model

import "time"

// IncomingLike is one row of the "liked you" inbox. Unique by ID within the
// displayed list; display order is significant.
type IncomingLike struct {
	ID          string
	ActionID    string
	Name        string
	Age         int
	Location    string
	Bio         string
	Photos      []Photo
	MainPhoto   string
	IsSuperLike bool
	LikedAt     time.Time
	IsNew       bool
}
