package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
)

type PublishHistoryRepository interface {
	GetByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error)
	create(ctx context.Context, exec executor, postID int64, result models.PublishResult) error
}

type publishHistoryRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewPublishHistoryRepository(db *sql.DB, dialect Dialect) PublishHistoryRepository {
	return &publishHistoryRepository{db: db, dialect: dialect}
}

func (r *publishHistoryRepository) create(ctx context.Context, exec executor, postID int64, result models.PublishResult) error {
	query := rebind(r.dialect, `
		INSERT INTO publish_history (post_id, platform, success, external_id, error_kind, error_message, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	success := 0
	if result.Success {
		success = 1
	}
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := exec.ExecContext(ctx, query,
		postID,
		result.Platform,
		success,
		result.ExternalID,
		string(result.ErrorKind),
		result.Error,
		result.Attempts,
		formatTimestamp(ts),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishHistoryRepository) GetByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	query := rebind(r.dialect, `
		SELECT id, post_id, platform, success, external_id, error_kind, error_message, attempts, created_at
		FROM publish_history
		WHERE post_id = ?
		ORDER BY id ASC
	`)

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	attempts := []*models.PublishAttempt{}
	for rows.Next() {
		var a models.PublishAttempt
		var success int
		var createdAt string
		err := rows.Scan(&a.ID, &a.PostID, &a.Platform, &success, &a.ExternalID, &a.ErrorKind, &a.ErrorMessage, &a.Attempts, &createdAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		a.Success = success == 1
		if a.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
