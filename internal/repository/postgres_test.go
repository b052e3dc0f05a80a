package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSetStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db, DialectPostgres, nil)

	mock.ExpectExec(`UPDATE posts SET status = \$1, updated_at = \$2 WHERE id = \$3 AND status IN \(\$4, \$5\)`).
		WithArgs(models.PostStatusScheduled, sqlmock.AnyArg(), int64(4), models.PostStatusDraft, models.PostStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetStatus(context.Background(), 4, []string{models.PostStatusDraft, models.PostStatusFailed}, models.PostStatusScheduled)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordResultLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db, DialectPostgres, nil)
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)

	rows := sqlmock.NewRows([]string{
		"id", "text", "media", "platforms", "scheduled_for", "status",
		"post_results", "error_message", "posted_at", "created_at", "updated_at",
	}).AddRow(int64(7), "hi", "[]", `["twitter"]`, "2025-03-01T09:00:00", "scheduled", nil, nil, nil, created, created)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM posts WHERE id = \$1 FOR UPDATE`).WithArgs(int64(7)).WillReturnRows(rows)
	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusPosted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO publish_history`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	post, err := repo.RecordResult(context.Background(), 7, map[string]models.PublishResult{
		"twitter": {Success: true, ExternalID: "tw_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPosted, post.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
