package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/repository"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
	"github.com/maheshrc27/campaign-publisher/pkg/utils"
)

var scheduleLayouts = []string{
	models.ScheduleLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseScheduleTime parses a naive campaign-local time. Values carrying a
// zone are converted to loc first.
func ParseScheduleTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, models.NewValidationError("", "scheduled time is required")
	}

	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		if loc == nil {
			loc = time.Local
		}
		local := t.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC), nil
	}

	return time.Time{}, models.NewValidationError("", "invalid scheduled time %q, expected YYYY-MM-DDTHH:MM[:SS]", value)
}

type PostService interface {
	CreatePost(ctx context.Context, pc *transfer.PostCreation) (*models.Post, error)
	List(ctx context.Context, status string) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID int64) (*models.Post, error)
	Edit(ctx context.Context, postID int64, pe *transfer.PostEdit) (*models.Post, error)
	Schedule(ctx context.Context, postID int64) (*models.Post, error)
	Unschedule(ctx context.Context, postID int64) (*models.Post, error)
	Reschedule(ctx context.Context, postID int64, scheduledFor string) (*models.Post, error)
	Remove(ctx context.Context, postID int64) error
	Due(ctx context.Context) ([]*models.Post, error)
	PostedIDs(ctx context.Context, platform string) ([]int64, error)
	History(ctx context.Context, postID int64) ([]*models.PublishAttempt, error)
	Stats(ctx context.Context) (*models.Stats, error)
	ImportCampaign(ctx context.Context, campaignID int64, entries []transfer.CampaignImportEntry, startDay time.Time) (*transfer.CampaignImportResult, error)
}

type postService struct {
	pr    repository.PostRepository
	ph    repository.PublishHistoryRepository
	cr    repository.CampaignRepository
	clock utils.Clock
	loc   *time.Location
}

func NewPostService(
	pr repository.PostRepository,
	ph repository.PublishHistoryRepository,
	cr repository.CampaignRepository,
	clock utils.Clock,
	loc *time.Location) PostService {
	return &postService{
		pr:    pr,
		ph:    ph,
		cr:    cr,
		clock: clock,
		loc:   loc,
	}
}

func (s *postService) CreatePost(ctx context.Context, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return nil, err
	}

	platforms, err := checkPlatforms(pc.Platforms)
	if err != nil {
		return nil, err
	}

	scheduledFor, err := ParseScheduleTime(pc.ScheduledFor, s.loc)
	if err != nil {
		return nil, err
	}

	if pc.CampaignID != 0 {
		if _, err := s.cr.GetByID(ctx, pc.CampaignID); err != nil {
			return nil, err
		}
	}

	status := models.PostStatusDraft
	if pc.Schedule {
		status = models.PostStatusScheduled
	}

	post := models.Post{
		Text:         pc.Text,
		Media:        pc.Media,
		Platforms:    platforms,
		ScheduledFor: scheduledFor,
		Status:       status,
	}

	postID, err := s.pr.Create(ctx, &post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	if pc.CampaignID != 0 {
		if err := s.cr.AddPost(ctx, pc.CampaignID, postID); err != nil {
			return nil, fmt.Errorf("error adding post to campaign: %w", err)
		}
	}

	slog.Info("post created", "post_id", postID, "status", status, "scheduled_for", scheduledFor.Format(models.ScheduleLayout))
	return s.pr.GetByID(ctx, postID)
}

func checkPlatforms(platforms []string) ([]string, error) {
	normalized := repository.NormalizePlatforms(platforms)
	if len(normalized) == 0 {
		return nil, models.NewValidationError("", "post must target at least one platform")
	}
	for _, p := range normalized {
		if !KnownPlatform(p) {
			return nil, models.NewValidationError(p, "unknown platform, expected one of %s", strings.Join(SupportedPlatforms(), ", "))
		}
	}
	return normalized, nil
}

func (s *postService) List(ctx context.Context, status string) ([]*models.Post, error) {
	if status == "" {
		return s.pr.List(ctx, nil)
	}
	if !models.ValidPostStatus(status) {
		return nil, models.NewValidationError("", "unknown status %q", status)
	}
	return s.pr.List(ctx, &status)
}

func (s *postService) PostInfo(ctx context.Context, postID int64) (*models.Post, error) {
	if postID == 0 {
		return nil, models.NewValidationError("", "post id is not valid")
	}
	return s.pr.GetByID(ctx, postID)
}

func (s *postService) Edit(ctx context.Context, postID int64, pe *transfer.PostEdit) (*models.Post, error) {
	if pe == nil {
		return nil, models.NewValidationError("", "nothing to update")
	}

	update := models.PostUpdate{
		Text:  pe.Text,
		Media: pe.Media,
	}
	if pe.Platforms != nil {
		platforms, err := checkPlatforms(*pe.Platforms)
		if err != nil {
			return nil, err
		}
		update.Platforms = &platforms
	}
	if pe.ScheduledFor != nil {
		t, err := ParseScheduleTime(*pe.ScheduledFor, s.loc)
		if err != nil {
			return nil, err
		}
		update.ScheduledFor = &t
	}

	if err := s.pr.Update(ctx, postID, update); err != nil {
		return nil, err
	}
	return s.pr.GetByID(ctx, postID)
}

// Schedule confirms a draft for publishing. Failed posts may be scheduled
// again by hand; platforms that already succeeded are skipped on the next
// attempt.
func (s *postService) Schedule(ctx context.Context, postID int64) (*models.Post, error) {
	err := s.pr.SetStatus(ctx, postID, []string{models.PostStatusDraft, models.PostStatusFailed}, models.PostStatusScheduled)
	if err != nil {
		return nil, err
	}
	slog.Info("post scheduled", "post_id", postID)
	return s.pr.GetByID(ctx, postID)
}

func (s *postService) Unschedule(ctx context.Context, postID int64) (*models.Post, error) {
	err := s.pr.SetStatus(ctx, postID, []string{models.PostStatusScheduled}, models.PostStatusDraft)
	if err != nil {
		return nil, err
	}
	return s.pr.GetByID(ctx, postID)
}

func (s *postService) Reschedule(ctx context.Context, postID int64, scheduledFor string) (*models.Post, error) {
	t, err := ParseScheduleTime(scheduledFor, s.loc)
	if err != nil {
		return nil, err
	}

	if err := s.pr.Update(ctx, postID, models.PostUpdate{ScheduledFor: &t}); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusScheduled {
		return post, nil
	}
	return s.Schedule(ctx, postID)
}

func (s *postService) Remove(ctx context.Context, postID int64) error {
	if postID == 0 {
		return models.NewValidationError("", "post id is not valid")
	}
	if err := s.pr.Delete(ctx, postID); err != nil {
		return err
	}
	slog.Info("post deleted", "post_id", postID)
	return nil
}

func (s *postService) Due(ctx context.Context) ([]*models.Post, error) {
	return s.pr.DueNow(ctx, s.clock)
}

func (s *postService) PostedIDs(ctx context.Context, platform string) ([]int64, error) {
	if platform == "" {
		return nil, models.NewValidationError("", "platform is required")
	}
	return s.pr.PostedIDs(ctx, platform)
}

func (s *postService) History(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	if _, err := s.pr.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.ph.GetByPostID(ctx, postID)
}

func (s *postService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.pr.Stats(ctx)
}
