package model

import "time"

// Evidence is a processed image attached to a claim as proof of ownership.
type Evidence struct {
	ID         string    `json:"id"`
	UploaderID int64     `json:"uploader_id"`
	MIME       string    `json:"mime"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"created_at"`
}
