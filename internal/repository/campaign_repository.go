package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	List(ctx context.Context) ([]*models.Campaign, error)
	AddPost(ctx context.Context, campaignID, postID int64) error
	ListPosts(ctx context.Context, campaignID int64) ([]*models.Post, error)
}

type campaignRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewCampaignRepository(db *sql.DB, dialect Dialect) CampaignRepository {
	return &campaignRepository{db: db, dialect: dialect}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) (int64, error) {
	if campaign.Name == "" {
		return 0, models.NewValidationError("", "campaign name is required")
	}
	status := campaign.Status
	if status == "" {
		status = models.CampaignStatusActive
	}
	switch status {
	case models.CampaignStatusActive, models.CampaignStatusPaused, models.CampaignStatusCompleted:
	default:
		return 0, models.NewValidationError("", "unknown campaign status %q", status)
	}

	query := rebind(r.dialect, `
		INSERT INTO campaigns (name, description, start_date, end_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		campaign.Name,
		campaign.Description,
		campaign.StartDate,
		campaign.EndDate,
		status,
		formatTimestamp(time.Now()),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	query := rebind(r.dialect, `SELECT id, name, description, start_date, end_date, status, created_at FROM campaigns WHERE id = ?`)
	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCampaignNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return c, nil
}

func (r *campaignRepository) List(ctx context.Context) ([]*models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, start_date, end_date, status, created_at FROM campaigns ORDER BY id ASC`)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// AddPost links a post to a campaign. Linking twice is a no-op.
func (r *campaignRepository) AddPost(ctx context.Context, campaignID, postID int64) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, rebind(r.dialect, `SELECT 1 FROM campaigns WHERE id = ?`), campaignID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrCampaignNotFound
		} else if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, rebind(r.dialect, `SELECT 1 FROM posts WHERE id = ?`), postID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrPostNotFound
		} else if err != nil {
			return err
		}

		query := rebind(r.dialect, `
			INSERT INTO post_campaigns (post_id, campaign_id)
			VALUES (?, ?)
			ON CONFLICT (post_id, campaign_id) DO NOTHING
		`)
		_, err = tx.ExecContext(ctx, query, postID, campaignID)
		return err
	})
}

func (r *campaignRepository) ListPosts(ctx context.Context, campaignID int64) ([]*models.Post, error) {
	if _, err := r.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}

	query := rebind(r.dialect, `
		SELECT p.id, p.text, p.media, p.platforms, p.scheduled_for, p.status, p.post_results,
			p.error_message, p.posted_at, p.created_at, p.updated_at
		FROM posts p
		JOIN post_campaigns pc ON pc.post_id = p.id
		WHERE pc.campaign_id = ?
		ORDER BY p.scheduled_for ASC, p.id ASC
	`)

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	var createdAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.StartDate, &c.EndDate, &c.Status, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = t
	return &c, nil
}
