package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/repository"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

// importSlots are the times of day content calendar posts are spread over.
var importSlots = []time.Duration{
	9 * time.Hour,
	13 * time.Hour,
	17 * time.Hour,
	21 * time.Hour,
}

// ParseImportDate parses the start day of an import. An empty value is the
// zero time, which ImportCampaign reads as today.
func ParseImportDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(campaignDateLayout, value)
	if err != nil {
		return time.Time{}, models.NewValidationError("", "invalid start_date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// ImportSlot returns the naive publish time of entry: startDay plus its
// schedule_days offset, at the slot picked by its id.
func ImportSlot(entry transfer.CampaignImportEntry, startDay time.Time) time.Time {
	slot := entry.ID % len(importSlots)
	if slot < 0 {
		slot += len(importSlots)
	}
	day := time.Date(startDay.Year(), startDay.Month(), startDay.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, entry.ScheduleDays).Add(importSlots[slot])
}

// ImportCampaign creates one draft post per entry and links it to the
// campaign. Every entry is checked before anything is written. A zero
// startDay means today in the campaign location.
func (s *postService) ImportCampaign(ctx context.Context, campaignID int64, entries []transfer.CampaignImportEntry, startDay time.Time) (*transfer.CampaignImportResult, error) {
	if _, err := s.cr.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, models.NewValidationError("", "campaign import has no posts")
	}
	if startDay.IsZero() {
		now := s.clock.Now()
		if s.loc != nil {
			now = now.In(s.loc)
		}
		startDay = now
	}

	posts := make([]models.Post, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.Content) == "" {
			return nil, models.NewValidationError("", "post %d (entry %d) has no content", entry.ID, i)
		}
		if entry.ScheduleDays < 0 {
			return nil, models.NewValidationError("", "post %d (entry %d) has a negative schedule_days", entry.ID, i)
		}
		platforms, err := checkPlatforms(entry.Platforms)
		if err != nil {
			return nil, fmt.Errorf("post %d (entry %d): %w", entry.ID, i, err)
		}
		posts = append(posts, models.Post{
			Text:         entry.Content,
			Media:        entry.Media,
			Platforms:    platforms,
			ScheduledFor: ImportSlot(entry, startDay),
			Status:       models.PostStatusDraft,
		})
	}

	result := &transfer.CampaignImportResult{CampaignID: campaignID, PostIDs: make([]int64, 0, len(posts))}
	seen := map[string]bool{}
	for i := range posts {
		id, err := s.pr.Create(ctx, &posts[i])
		if err != nil {
			return result, fmt.Errorf("error creating imported post: %w", err)
		}
		if err := s.cr.AddPost(ctx, campaignID, id); err != nil {
			return result, fmt.Errorf("error adding imported post to campaign: %w", err)
		}
		result.PostIDs = append(result.PostIDs, id)
		result.Imported++

		date := posts[i].ScheduledFor.Format(campaignDateLayout)
		if result.FirstDate == "" || date < result.FirstDate {
			result.FirstDate = date
		}
		if date > result.LastDate {
			result.LastDate = date
		}
		for _, p := range posts[i].Platforms {
			if !seen[p] {
				seen[p] = true
				result.Platforms = append(result.Platforms, p)
			}
		}
	}
	result.Platforms = repository.NormalizePlatforms(result.Platforms)

	slog.Info("campaign imported", "campaign_id", campaignID, "posts", result.Imported, "first_date", result.FirstDate, "last_date", result.LastDate)
	return result, nil
}
