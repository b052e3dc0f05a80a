package service

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportSlot(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry transfer.CampaignImportEntry
		want  string
	}{
		{"id 0 morning", transfer.CampaignImportEntry{ID: 0}, "2025-03-10T09:00:00"},
		{"id 1 midday", transfer.CampaignImportEntry{ID: 1}, "2025-03-10T13:00:00"},
		{"id 2 afternoon", transfer.CampaignImportEntry{ID: 2}, "2025-03-10T17:00:00"},
		{"id 3 evening", transfer.CampaignImportEntry{ID: 3}, "2025-03-10T21:00:00"},
		{"id 4 wraps", transfer.CampaignImportEntry{ID: 4}, "2025-03-10T09:00:00"},
		{"day offset", transfer.CampaignImportEntry{ID: 5, ScheduleDays: 3}, "2025-03-13T13:00:00"},
		{"month rollover", transfer.CampaignImportEntry{ID: 7, ScheduleDays: 22}, "2025-04-01T21:00:00"},
		{"negative id", transfer.CampaignImportEntry{ID: -1}, "2025-03-10T21:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImportSlot(tt.entry, start).Format(models.ScheduleLayout))
		})
	}

	t.Run("time of day on start is ignored", func(t *testing.T) {
		got := ImportSlot(transfer.CampaignImportEntry{ID: 0}, start.Add(15*time.Hour))
		assert.Equal(t, "2025-03-10T09:00:00", got.Format(models.ScheduleLayout))
	})
}

func TestParseImportDate(t *testing.T) {
	got, err := ParseImportDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ParseImportDate(" 2025-03-10 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseImportDate("2025/03/10")
	assert.True(t, models.IsValidation(err))
}

func TestPostService_ImportCampaign(t *testing.T) {
	svc, campaigns, store := newPostService(t)
	ctx := context.Background()

	campaign, err := campaigns.Create(ctx, &transfer.CampaignCreation{Name: "Launch", StartDate: "2025-03-01", EndDate: "2025-03-31"})
	require.NoError(t, err)

	entries := []transfer.CampaignImportEntry{
		{ID: 1, Content: "teaser", Platforms: []string{"Twitter"}, ScheduleDays: 0},
		{ID: 2, Content: "launch day", Platforms: []string{"facebook", "instagram"}, ScheduleDays: 1, Media: []string{"https://cdn.example.com/launch.png"}},
	}

	result, err := svc.ImportCampaign(ctx, campaign.ID, entries, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, "2025-03-10", result.FirstDate)
	assert.Equal(t, "2025-03-11", result.LastDate)
	assert.Equal(t, []string{"facebook", "instagram", "twitter"}, result.Platforms)
	require.Len(t, result.PostIDs, 2)

	linked, err := campaigns.Posts(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)

	first, err := store.GetByID(ctx, result.PostIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, first.Status)
	assert.Equal(t, []string{"twitter"}, first.Platforms)
	assert.Equal(t, "2025-03-10T13:00:00", first.ScheduledFor.Format(models.ScheduleLayout))

	second, err := store.GetByID(ctx, result.PostIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11T17:00:00", second.ScheduledFor.Format(models.ScheduleLayout))
	assert.Equal(t, []string{"https://cdn.example.com/launch.png"}, second.Media)

	// drafts are not due until scheduled
	due, err := svc.Due(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestPostService_ImportCampaignDefaultsToToday(t *testing.T) {
	svc, campaigns, store := newPostService(t)
	ctx := context.Background()

	campaign, err := campaigns.Create(ctx, &transfer.CampaignCreation{Name: "Now", StartDate: "2025-03-01", EndDate: "2025-03-31"})
	require.NoError(t, err)

	result, err := svc.ImportCampaign(ctx, campaign.ID, []transfer.CampaignImportEntry{
		{ID: 0, Content: "hello", Platforms: []string{"twitter"}, ScheduleDays: 2},
	}, time.Time{})
	require.NoError(t, err)

	post, err := store.GetByID(ctx, result.PostIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03T09:00:00", post.ScheduledFor.Format(models.ScheduleLayout))
}

func TestPostService_ImportCampaignRejects(t *testing.T) {
	svc, campaigns, _ := newPostService(t)
	ctx := context.Background()

	campaign, err := campaigns.Create(ctx, &transfer.CampaignCreation{Name: "Launch", StartDate: "2025-03-01", EndDate: "2025-03-31"})
	require.NoError(t, err)

	good := transfer.CampaignImportEntry{ID: 1, Content: "ok", Platforms: []string{"twitter"}}

	tests := []struct {
		name       string
		campaignID int64
		entries    []transfer.CampaignImportEntry
		notFound   bool
	}{
		{"unknown campaign", campaign.ID + 100, []transfer.CampaignImportEntry{good}, true},
		{"no entries", campaign.ID, nil, false},
		{"empty content", campaign.ID, []transfer.CampaignImportEntry{good, {ID: 2, Content: "  ", Platforms: []string{"twitter"}}}, false},
		{"no platforms", campaign.ID, []transfer.CampaignImportEntry{good, {ID: 2, Content: "x"}}, false},
		{"unknown platform", campaign.ID, []transfer.CampaignImportEntry{good, {ID: 2, Content: "x", Platforms: []string{"myspace"}}}, false},
		{"negative day", campaign.ID, []transfer.CampaignImportEntry{good, {ID: 2, Content: "x", Platforms: []string{"twitter"}, ScheduleDays: -1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportCampaign(ctx, tt.campaignID, tt.entries, time.Time{})
			require.Error(t, err)
			if tt.notFound {
				assert.ErrorIs(t, err, models.ErrCampaignNotFound)
			} else {
				assert.True(t, models.IsValidation(err), err.Error())
			}
		})
	}

	// nothing is written when any entry is rejected
	posts, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, posts)
}
