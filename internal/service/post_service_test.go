package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/repository"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
	"github.com/maheshrc27/campaign-publisher/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleTime(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	want := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"seconds", "2025-03-01T09:30:00", want, false},
		{"minutes", "2025-03-01T09:30", want, false},
		{"space separated", "2025-03-01 09:30:00", want, false},
		{"space separated minutes", " 2025-03-01 09:30 ", want, false},
		{"with zone converted to campaign time", "2025-03-01T00:30:00Z", want, false},
		{"empty", "", time.Time{}, true},
		{"garbage", "tomorrow morning", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.value, tokyo)
			if tt.wantErr {
				assert.True(t, models.IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newPostService(t *testing.T) (PostService, CampaignService, repository.PostRepository) {
	t.Helper()
	db, dialect, err := repository.Open("sqlite", filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	posts := repository.NewPostRepository(db, dialect, nil)
	history := repository.NewPublishHistoryRepository(db, dialect)
	campaigns := repository.NewCampaignRepository(db, dialect)
	clock := utils.NewFixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	return NewPostService(posts, history, campaigns, clock, time.UTC), NewCampaignService(campaigns), posts
}

func TestPostService_Lifecycle(t *testing.T) {
	svc, _, store := newPostService(t)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, &transfer.PostCreation{
		Text:         "launch",
		Platforms:    []string{"Twitter", "facebook"},
		ScheduledFor: "2025-03-01T10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Equal(t, []string{"facebook", "twitter"}, post.Platforms)

	due, err := svc.Due(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)

	post, err = svc.Schedule(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)

	_, err = svc.Schedule(ctx, post.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	due, err = svc.Due(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)

	post, err = svc.Unschedule(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, post.Status)

	post, err = svc.Reschedule(ctx, post.ID, "2025-03-02 08:00")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC), post.ScheduledFor)

	_, err = store.RecordResult(ctx, post.ID, map[string]models.PublishResult{
		"twitter":  {Success: true, ExternalID: "tw-1"},
		"facebook": {Success: false, Error: "expired", ErrorKind: models.KindAuth},
	})
	require.NoError(t, err)

	ids, err := svc.PostedIDs(ctx, "twitter")
	require.NoError(t, err)
	assert.Equal(t, []int64{post.ID}, ids)

	history, err := svc.History(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	text := "edit after posting"
	_, err = svc.Edit(ctx, post.ID, &transfer.PostEdit{Text: &text})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = svc.Reschedule(ctx, post.ID, "2025-03-03T08:00")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, svc.Remove(ctx, post.ID))
	_, err = svc.PostInfo(ctx, post.ID)
	assert.ErrorIs(t, err, models.ErrPostNotFound)
}

func TestPostService_CreateValidation(t *testing.T) {
	svc, _, _ := newPostService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, &transfer.PostCreation{Text: "x", Platforms: []string{"myspace"}, ScheduledFor: "2025-03-01T10:00"})
	assert.True(t, models.IsValidation(err))

	_, err = svc.CreatePost(ctx, &transfer.PostCreation{Text: "x", Platforms: []string{"twitter"}, ScheduledFor: "soon"})
	assert.True(t, models.IsValidation(err))

	_, err = svc.CreatePost(ctx, &transfer.PostCreation{Text: "x", ScheduledFor: "2025-03-01T10:00"})
	assert.True(t, models.IsValidation(err))

	_, err = svc.CreatePost(ctx, &transfer.PostCreation{Text: "x", Platforms: []string{"twitter"}, ScheduledFor: "2025-03-01T10:00", CampaignID: 42})
	assert.ErrorIs(t, err, models.ErrCampaignNotFound)

	_, err = svc.List(ctx, "archived")
	assert.True(t, models.IsValidation(err))

	_, err = svc.PostedIDs(ctx, "")
	assert.True(t, models.IsValidation(err))
}

func TestPostService_Campaigns(t *testing.T) {
	posts, campaigns, _ := newPostService(t)
	ctx := context.Background()

	campaign, err := campaigns.Create(ctx, &transfer.CampaignCreation{Name: "spring", StartDate: "2025-03-01", EndDate: "2025-03-31"})
	require.NoError(t, err)

	post, err := posts.CreatePost(ctx, &transfer.PostCreation{
		Text:         "launch",
		Platforms:    []string{"twitter"},
		ScheduledFor: "2025-03-01T10:00",
		Schedule:     true,
		CampaignID:   campaign.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)

	linked, err := campaigns.Posts(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, post.ID, linked[0].ID)

	_, err = campaigns.Create(ctx, &transfer.CampaignCreation{Name: "bad", StartDate: "2025-03-31", EndDate: "2025-03-01"})
	assert.True(t, models.IsValidation(err))

	_, err = campaigns.Create(ctx, &transfer.CampaignCreation{Name: "bad", StartDate: "03/01/2025"})
	assert.True(t, models.IsValidation(err))

	_, err = campaigns.Create(ctx, &transfer.CampaignCreation{})
	assert.True(t, models.IsValidation(err))
}
