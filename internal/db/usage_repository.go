package db

import (
	"context"
	"fmt"
	"time"

	"github.com/showcase-dev/showcase/internal/models"
)

// UsageRepository reports aggregate chat activity from the event log.
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// perTypeColumns counts each event type in one pass.
const perTypeColumns = `
	COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0)`

func perTypeArgs() []any {
	return []any{
		string(models.EventTypeQuestionReceived),
		string(models.EventTypeAnswerSent),
		string(models.EventTypeInputRejected),
		string(models.EventTypeRateLimited),
	}
}

// Summarize aggregates events recorded at or after since. A nil since covers all events.
func (r *UsageRepository) Summarize(ctx context.Context, since *time.Time) (*models.UsageSummary, error) {
	query := `SELECT` + perTypeColumns + `, COUNT(DISTINCT client_id) FROM events`
	args := perTypeArgs()
	if since != nil {
		query += ` WHERE timestamp >= ?`
		args = append(args, since.UTC().Format(timestampLayout))
	}

	summary := models.UsageSummary{Since: since}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.Questions,
		&summary.Answers,
		&summary.Rejections,
		&summary.RateLimited,
		&summary.UniqueClients,
	); err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	return &summary, nil
}

// Daily returns per-day activity in [since, until), newest day first.
func (r *UsageRepository) Daily(ctx context.Context, since, until time.Time, limit int) ([]*models.DailyUsage, error) {
	if limit <= 0 {
		limit = 30
	}

	args := append(perTypeArgs(),
		since.UTC().Format(timestampLayout),
		until.UTC().Format(timestampLayout),
		limit,
	)
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,`+perTypeColumns+`
		FROM events
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily usage: %w", err)
	}
	defer rows.Close()

	var daily []*models.DailyUsage
	for rows.Next() {
		var du models.DailyUsage
		if err := rows.Scan(&du.Date, &du.Questions, &du.Answers, &du.Rejections, &du.RateLimited); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		daily = append(daily, &du)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily usage: %w", err)
	}
	return daily, nil
}

// DeleteOlderThan removes up to limit events recorded before the given time.
func (r *UsageRepository) DeleteOlderThan(ctx context.Context, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 1000
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM events WHERE id IN (
			SELECT id FROM events WHERE timestamp < ? ORDER BY timestamp LIMIT ?
		)
	`, before.UTC().Format(timestampLayout), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return count, nil
}
