package model

import "time"

type Session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
}

func (s Session) Valid() bool {
	return s.UserID != "" && s.AccessToken != ""
}
