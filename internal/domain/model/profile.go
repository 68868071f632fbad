package model

import "time"

type Photo struct {
	URL    string
	IsMain bool
}

type Profile struct {
	ID        string
	Name      string
	Age       int
	Location  string
	Bio       string
	Photos    []Photo
	CreatedAt time.Time
}
