package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/newsletter-service/internal/domain"
)

// AnalyticsRepo implements analytics.Sink against PostgreSQL.
type AnalyticsRepo struct{ db *sql.DB }

// NewAnalyticsRepo creates a Postgres-backed analytics sink.
func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

func (r *AnalyticsRepo) Append(ctx context.Context, e *domain.AnalyticsEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_analytics (id, email, status, user_agent, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.Email, e.Status, e.UserAgent, e.Timestamp)
	if err != nil {
		return fmt.Errorf("append analytics event: %w", err)
	}
	return nil
}

func (r *AnalyticsRepo) EventsSince(ctx context.Context, since time.Time) ([]domain.AnalyticsEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, status, user_agent, timestamp
		FROM subscription_analytics
		WHERE timestamp >= $1
		ORDER BY timestamp ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalyticsEvent
	for rows.Next() {
		var e domain.AnalyticsEvent
		var ua sql.NullString
		if err := rows.Scan(&e.ID, &e.Email, &e.Status, &ua, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		e.UserAgent = ua.String
		out = append(out, e)
	}
	return out, rows.Err()
}
