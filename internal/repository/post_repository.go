package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/pkg/utils"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context, status *string) ([]*models.Post, error)
	DueNow(ctx context.Context, clock utils.Clock) ([]*models.Post, error)
	RecordResult(ctx context.Context, id int64, results map[string]models.PublishResult) (*models.Post, error)
	Update(ctx context.Context, id int64, update models.PostUpdate) error
	SetStatus(ctx context.Context, id int64, from []string, to string) error
	PostedIDs(ctx context.Context, platform string) ([]int64, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Delete(ctx context.Context, id int64) error
}

type postRepository struct {
	db      *sql.DB
	dialect Dialect
	policy  models.StatusPolicy
	history PublishHistoryRepository
	now     func() time.Time
}

func NewPostRepository(db *sql.DB, dialect Dialect, policy models.StatusPolicy) PostRepository {
	if policy == nil {
		policy = models.AnySucceedsPolicy{}
	}
	return &postRepository{
		db:      db,
		dialect: dialect,
		policy:  policy,
		history: NewPublishHistoryRepository(db, dialect),
		now:     time.Now,
	}
}

const postColumns = `id, text, media, platforms, scheduled_for, status, post_results, error_message, posted_at, created_at, updated_at`

// NormalizePlatforms lower-cases, de-duplicates and sorts platform names.
func NormalizePlatforms(platforms []string) []string {
	seen := make(map[string]struct{}, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	platforms := NormalizePlatforms(post.Platforms)
	if len(platforms) == 0 {
		return 0, models.NewValidationError("", "post must target at least one platform")
	}
	if strings.TrimSpace(post.Text) == "" {
		return 0, models.NewValidationError("", "post text cannot be empty")
	}
	if post.ScheduledFor.IsZero() {
		return 0, models.NewValidationError("", "scheduled time is required")
	}

	status := post.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if !models.ValidPostStatus(status) {
		return 0, models.NewValidationError("", "unknown status %q", status)
	}

	media := post.Media
	if media == nil {
		media = []string{}
	}
	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return 0, err
	}
	platformsJSON, err := json.Marshal(platforms)
	if err != nil {
		return 0, err
	}

	now := formatTimestamp(r.now())
	query := rebind(r.dialect, `
		INSERT INTO posts (text, media, platforms, scheduled_for, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		post.Text,
		string(mediaJSON),
		string(platformsJSON),
		post.ScheduledFor.Format(models.ScheduleLayout),
		status,
		now,
		now,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := rebind(r.dialect, `SELECT `+postColumns+` FROM posts WHERE id = ?`)
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPostNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, status *string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY scheduled_for ASC, id ASC`

	return r.queryPosts(ctx, rebind(r.dialect, query), args...)
}

// DueNow returns scheduled posts whose time has passed. The status filter is
// what keeps a post from being returned again once it has been attempted.
func (r *postRepository) DueNow(ctx context.Context, clock utils.Clock) ([]*models.Post, error) {
	now := clock.Now().Format(models.ScheduleLayout)
	query := rebind(r.dialect, `
		SELECT `+postColumns+` FROM posts
		WHERE status = ? AND scheduled_for <= ?
		ORDER BY scheduled_for ASC, id ASC
	`)
	return r.queryPosts(ctx, query, models.PostStatusScheduled, now)
}

// RecordResult merges the results of an attempt into the post and derives
// its new status from the policy. A platform that already succeeded keeps
// its earlier result, and results for platforms the post no longer targets
// are dropped. The status only changes while the post is still scheduled
// and every target platform has either succeeded before or has a result
// now; otherwise the results are stored and the status is left alone.
func (r *postRepository) RecordResult(ctx context.Context, id int64, results map[string]models.PublishResult) (*models.Post, error) {
	var updated *models.Post

	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`
		if r.dialect == DialectPostgres {
			query += ` FOR UPDATE`
		}

		post, err := scanPost(tx.QueryRowContext(ctx, rebind(r.dialect, query), id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrPostNotFound
			}
			return err
		}

		if post.PostResults == nil {
			post.PostResults = make(map[string]models.PublishResult, len(results))
		}
		platforms := make([]string, 0, len(results))
		for platform := range results {
			platforms = append(platforms, platform)
		}
		sort.Strings(platforms)

		targets := make(map[string]bool, len(post.Platforms))
		for _, platform := range post.Platforms {
			targets[platform] = !post.Succeeded(platform)
		}

		applied := make([]models.PublishResult, 0, len(results))
		for _, platform := range platforms {
			pending, targeted := targets[platform]
			if !targeted {
				slog.Warn("dropping result for platform no longer targeted", "post_id", id, "platform", platform)
				continue
			}
			if !pending {
				continue
			}
			result := results[platform]
			if result.Platform == "" {
				result.Platform = platform
			}
			post.PostResults[platform] = result
			applied = append(applied, result)
		}

		now := r.now()
		switch {
		case post.Status != models.PostStatusScheduled:
			slog.Warn("post changed status while publishing, status kept", "post_id", id, "status", post.Status)
			post.ErrorMessage = models.FailureSummary(post.PostResults)
		case !complete(targets, results):
			slog.Info("post keeps scheduled status until every platform has a result", "post_id", id)
		default:
			status, errorMessage := r.policy.Decide(post.Platforms, post.PostResults)
			if status == models.PostStatusPosted && post.PostedAt == nil {
				postedAt := now
				post.PostedAt = &postedAt
			}
			post.Status = status
			post.ErrorMessage = errorMessage
		}
		post.UpdatedAt = now

		resultsJSON, err := json.Marshal(post.PostResults)
		if err != nil {
			return err
		}

		update := rebind(r.dialect, `
			UPDATE posts
			SET status = ?,
				post_results = ?,
				error_message = ?,
				posted_at = ?,
				updated_at = ?
			WHERE id = ?
		`)
		_, err = tx.ExecContext(ctx, update,
			post.Status,
			string(resultsJSON),
			nullString(post.ErrorMessage),
			nullTimestamp(post.PostedAt),
			formatTimestamp(now),
			id,
		)
		if err != nil {
			return err
		}

		for _, result := range applied {
			if err := r.history.create(ctx, tx, id, result); err != nil {
				return err
			}
		}

		updated = post
		return nil
	})
	if err != nil {
		if !errors.Is(err, models.ErrPostNotFound) {
			slog.Info(err.Error())
		}
		return nil, err
	}

	return updated, nil
}

// complete reports whether every platform still pending has a result.
func complete(targets map[string]bool, results map[string]models.PublishResult) bool {
	for platform, pending := range targets {
		if _, ok := results[platform]; pending && !ok {
			return false
		}
	}
	return true
}

func (r *postRepository) Update(ctx context.Context, id int64, update models.PostUpdate) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		post, err := scanPost(tx.QueryRowContext(ctx, rebind(r.dialect, `SELECT `+postColumns+` FROM posts WHERE id = ?`), id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrPostNotFound
			}
			return err
		}
		if post.Status == models.PostStatusPosted {
			return fmt.Errorf("%w: posted posts cannot be edited", models.ErrInvalidTransition)
		}

		if update.Text != nil {
			if strings.TrimSpace(*update.Text) == "" {
				return models.NewValidationError("", "post text cannot be empty")
			}
			post.Text = *update.Text
		}
		if update.Media != nil {
			post.Media = *update.Media
		}
		if update.Platforms != nil {
			platforms := NormalizePlatforms(*update.Platforms)
			if len(platforms) == 0 {
				return models.NewValidationError("", "post must target at least one platform")
			}
			post.Platforms = platforms
		}
		if update.ScheduledFor != nil {
			post.ScheduledFor = *update.ScheduledFor
		}

		media := post.Media
		if media == nil {
			media = []string{}
		}
		mediaJSON, err := json.Marshal(media)
		if err != nil {
			return err
		}
		platformsJSON, err := json.Marshal(post.Platforms)
		if err != nil {
			return err
		}

		query := rebind(r.dialect, `
			UPDATE posts
			SET text = ?, media = ?, platforms = ?, scheduled_for = ?, updated_at = ?
			WHERE id = ?
		`)
		_, err = tx.ExecContext(ctx, query,
			post.Text,
			string(mediaJSON),
			string(platformsJSON),
			post.ScheduledFor.Format(models.ScheduleLayout),
			formatTimestamp(r.now()),
			id,
		)
		return err
	})
}

// SetStatus moves a post to status to when its current status is one of
// from. The check and the write happen in one statement.
func (r *postRepository) SetStatus(ctx context.Context, id int64, from []string, to string) error {
	if !models.ValidPostStatus(to) {
		return models.NewValidationError("", "unknown status %q", to)
	}
	if len(from) == 0 {
		return fmt.Errorf("%w: no source status given", models.ErrInvalidTransition)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	query := rebind(r.dialect, `UPDATE posts SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders+`)`)

	args := []any{to, formatTimestamp(r.now()), id}
	for _, s := range from {
		args = append(args, s)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	post, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, post.Status, to)
}

// PostedIDs lists posts that already succeeded on platform.
func (r *postRepository) PostedIDs(ctx context.Context, platform string) ([]int64, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	rows, err := r.db.QueryContext(ctx, `SELECT id, post_results FROM posts WHERE post_results IS NOT NULL ORDER BY id ASC`)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		var raw sql.NullString
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		results, err := decodeResults(raw)
		if err != nil {
			return nil, fmt.Errorf("post %d: %w", id, err)
		}
		if res, ok := results[platform]; ok && res.Success {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func (r *postRepository) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{
		StatusCounts:   map[string]int{},
		PlatformCounts: map[string]int{},
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM posts GROUP BY status`)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.StatusCounts[status] = count
		stats.TotalPosts += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT platforms, scheduled_for FROM posts`)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	days := map[string]struct{}{}
	for rows.Next() {
		var platformsJSON, scheduledFor string
		if err := rows.Scan(&platformsJSON, &scheduledFor); err != nil {
			return nil, err
		}
		var platforms []string
		if err := json.Unmarshal([]byte(platformsJSON), &platforms); err != nil {
			return nil, err
		}
		for _, p := range platforms {
			stats.PlatformCounts[p]++
		}

		day := scheduledFor
		if len(day) >= len("2006-01-02") {
			day = day[:len("2006-01-02")]
		}
		days[day] = struct{}{}
		if stats.FirstPost == "" || day < stats.FirstPost {
			stats.FirstPost = day
		}
		if day > stats.LastPost {
			stats.LastPost = day
		}
	}
	stats.UniqueDays = len(days)

	return stats, rows.Err()
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, rebind(r.dialect, `DELETE FROM post_campaigns WHERE post_id = ?`), id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, rebind(r.dialect, `DELETE FROM publish_history WHERE post_id = ?`), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, rebind(r.dialect, `DELETE FROM posts WHERE id = ?`), id)
		if err != nil {
			slog.Info(err.Error())
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return models.ErrPostNotFound
		}
		return nil
	})
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post                          models.Post
		mediaJSON, platformsJSON      string
		scheduledFor                  string
		results, errorMessage, posted sql.NullString
		createdAt, updatedAt          string
	)

	err := row.Scan(
		&post.ID,
		&post.Text,
		&mediaJSON,
		&platformsJSON,
		&scheduledFor,
		&post.Status,
		&results,
		&errorMessage,
		&posted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mediaJSON), &post.Media); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	if err := json.Unmarshal([]byte(platformsJSON), &post.Platforms); err != nil {
		return nil, fmt.Errorf("decode platforms: %w", err)
	}
	if post.ScheduledFor, err = time.Parse(models.ScheduleLayout, scheduledFor); err != nil {
		return nil, fmt.Errorf("decode scheduled_for: %w", err)
	}
	if post.PostResults, err = decodeResults(results); err != nil {
		return nil, err
	}
	post.ErrorMessage = errorMessage.String
	if posted.Valid && posted.String != "" {
		t, err := parseTimestamp(posted.String)
		if err != nil {
			return nil, fmt.Errorf("decode posted_at: %w", err)
		}
		post.PostedAt = &t
	}
	if post.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if post.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}

	return &post, nil
}

func decodeResults(raw sql.NullString) (map[string]models.PublishResult, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var results map[string]models.PublishResult
	if err := json.Unmarshal([]byte(raw.String), &results); err != nil {
		return nil, fmt.Errorf("decode post_results: %w", err)
	}
	return results, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}
