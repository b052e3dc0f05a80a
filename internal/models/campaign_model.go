package models

import "time"

type Campaign struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	StartDate   string    `db:"start_date" json:"start_date,omitempty"`
	EndDate     string    `db:"end_date" json:"end_date,omitempty"`
	Status      string    `db:"status" json:"status"` // active, paused, completed
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

const (
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

type Stats struct {
	StatusCounts   map[string]int `json:"status_counts"`
	PlatformCounts map[string]int `json:"platform_counts"`
	TotalPosts     int            `json:"total_posts"`
	FirstPost      string         `json:"first_post,omitempty"`
	LastPost       string         `json:"last_post,omitempty"`
	UniqueDays     int            `json:"unique_days"`
}
