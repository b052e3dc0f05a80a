package service

import (
	"context"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/repository"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

const campaignDateLayout = "2006-01-02"

type CampaignService interface {
	Create(ctx context.Context, cc *transfer.CampaignCreation) (*models.Campaign, error)
	List(ctx context.Context) ([]*models.Campaign, error)
	AddPost(ctx context.Context, campaignID, postID int64) error
	Posts(ctx context.Context, campaignID int64) ([]*models.Post, error)
}

type campaignService struct {
	cr repository.CampaignRepository
}

func NewCampaignService(cr repository.CampaignRepository) CampaignService {
	return &campaignService{cr: cr}
}

func (s *campaignService) Create(ctx context.Context, cc *transfer.CampaignCreation) (*models.Campaign, error) {
	if cc == nil || cc.Name == "" {
		return nil, models.NewValidationError("", "campaign name is required")
	}

	var start, end time.Time
	for _, d := range []struct {
		name  string
		value string
		out   *time.Time
	}{
		{"start_date", cc.StartDate, &start},
		{"end_date", cc.EndDate, &end},
	} {
		if d.value == "" {
			continue
		}
		t, err := time.Parse(campaignDateLayout, d.value)
		if err != nil {
			return nil, models.NewValidationError("", "invalid %s %q, expected YYYY-MM-DD", d.name, d.value)
		}
		*d.out = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, models.NewValidationError("", "end_date is before start_date")
	}

	id, err := s.cr.Create(ctx, &models.Campaign{
		Name:        cc.Name,
		Description: cc.Description,
		StartDate:   cc.StartDate,
		EndDate:     cc.EndDate,
	})
	if err != nil {
		return nil, err
	}
	return s.cr.GetByID(ctx, id)
}

func (s *campaignService) List(ctx context.Context) ([]*models.Campaign, error) {
	return s.cr.List(ctx)
}

func (s *campaignService) AddPost(ctx context.Context, campaignID, postID int64) error {
	return s.cr.AddPost(ctx, campaignID, postID)
}

func (s *campaignService) Posts(ctx context.Context, campaignID int64) ([]*models.Post, error) {
	return s.cr.ListPosts(ctx, campaignID)
}
