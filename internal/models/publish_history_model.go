package models

import "time"

// PublishAttempt is one recorded outcome of publishing a post to a platform.
type PublishAttempt struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Platform     string    `db:"platform" json:"platform"`
	Success      bool      `db:"success" json:"success"`
	ExternalID   string    `db:"external_id" json:"external_id,omitempty"`
	ErrorKind    string    `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	Attempts     int       `db:"attempts" json:"attempts"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
