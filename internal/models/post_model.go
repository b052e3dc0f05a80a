package models

import "time"

// ScheduleLayout is the on-disk format of Post.ScheduledFor. It carries no
// zone: scheduled times are naive and interpreted in the campaign location.
const ScheduleLayout = "2006-01-02T15:04:05"

type Post struct {
	ID           int64                    `db:"id" json:"id"`
	Text         string                   `db:"text" json:"text"`
	Media        []string                 `db:"media" json:"media"`
	Platforms    []string                 `db:"platforms" json:"platforms"`
	ScheduledFor time.Time                `db:"scheduled_for" json:"scheduled_for"`
	Status       string                   `db:"status" json:"status"` // draft, scheduled, posted, failed
	PostResults  map[string]PublishResult `db:"post_results" json:"post_results,omitempty"`
	ErrorMessage string                   `db:"error_message" json:"error_message,omitempty"`
	PostedAt     *time.Time               `db:"posted_at" json:"posted_at,omitempty"`
	CreatedAt    time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                `db:"updated_at" json:"updated_at"`
}

// PublishResult is the outcome of one attempt to publish a post on one
// platform. ExternalID is only set on success, Error and ErrorKind only on
// failure.
type PublishResult struct {
	Platform   string    `json:"platform"`
	Success    bool      `json:"success"`
	ExternalID string    `json:"external_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Succeeded reports whether the platform already has a successful result.
func (p *Post) Succeeded(platform string) bool {
	r, ok := p.PostResults[platform]
	return ok && r.Success
}

// PostUpdate carries the editable fields of a post that has not been
// published yet. Nil fields are left untouched.
type PostUpdate struct {
	Text         *string
	Media        *[]string
	Platforms    *[]string
	ScheduledFor *time.Time
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusFailed    = "failed"
	PostStatusDraft     = "draft"
)

// ValidPostStatus reports whether s is one of the known post statuses.
func ValidPostStatus(s string) bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPosted, PostStatusFailed:
		return true
	}
	return false
}
