// Package analytics keeps a best-effort, append-only log of subscription
// lifecycle transitions and serves the read-side aggregates for the admin
// dashboard.
//
// Recording is at-most-once: a failed append is logged and dropped, and
// the workflow operation that triggered it is never affected.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter-service/internal/domain"
)

// Sink is the storage contract for analytics events.
type Sink interface {
	// Append stores one event. Events are never updated or deleted.
	Append(ctx context.Context, event *domain.AnalyticsEvent) error

	// EventsSince returns all events with Timestamp >= since, oldest first.
	EventsSince(ctx context.Context, since time.Time) ([]domain.AnalyticsEvent, error)
}

// Stats aggregates events over a window.
type Stats struct {
	Total          int     `json:"total"`
	Confirmed      int     `json:"confirmed"`
	Pending        int     `json:"pending"`
	Unsubscribed   int     `json:"unsubscribed"`
	ConversionRate float64 `json:"conversion_rate"`
}

// DayStats aggregates events for a single calendar day (UTC).
type DayStats struct {
	Date         string `json:"date"`
	Total        int    `json:"total"`
	Confirmed    int    `json:"confirmed"`
	Pending      int    `json:"pending"`
	Unsubscribed int    `json:"unsubscribed"`
}

// Recorder writes lifecycle events to a Sink and computes aggregates.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

// NewRecorder creates a recorder backed by the given sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, now: time.Now}
}

// Record appends one lifecycle event. The returned error is informational:
// callers surface it as a warning at most, never as a failure.
func (r *Recorder) Record(ctx context.Context, email string, status domain.SubscriberStatus, userAgent string) error {
	event := &domain.AnalyticsEvent{
		ID:        uuid.New().String(),
		Email:     email,
		Status:    status,
		UserAgent: userAgent,
		Timestamp: r.now().UTC(),
	}
	if err := r.sink.Append(ctx, event); err != nil {
		return fmt.Errorf("appending analytics event: %w", err)
	}
	return nil
}

// StatsSince aggregates events recorded since the given time, including the
// pending → confirmed conversion rate.
func (r *Recorder) StatsSince(ctx context.Context, since time.Time) (*Stats, error) {
	events, err := r.sink.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading analytics events: %w", err)
	}

	stats := &Stats{Total: len(events)}
	for _, e := range events {
		switch e.Status {
		case domain.StatusConfirmed:
			stats.Confirmed++
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusUnsubscribed:
			stats.Unsubscribed++
		}
	}
	if stats.Total > 0 {
		stats.ConversionRate = float64(stats.Confirmed) / float64(stats.Total) * 100
	}
	return stats, nil
}

// DailyStats groups the last N days of events by calendar day, oldest first.
func (r *Recorder) DailyStats(ctx context.Context, days int) ([]DayStats, error) {
	if days <= 0 {
		days = 7
	}
	since := r.now().UTC().AddDate(0, 0, -days)
	events, err := r.sink.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading analytics events: %w", err)
	}

	byDay := make(map[string]*DayStats)
	var order []string
	for _, e := range events {
		day := e.Timestamp.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DayStats{Date: day}
			byDay[day] = d
			order = append(order, day)
		}
		d.Total++
		switch e.Status {
		case domain.StatusConfirmed:
			d.Confirmed++
		case domain.StatusPending:
			d.Pending++
		case domain.StatusUnsubscribed:
			d.Unsubscribed++
		}
	}

	out := make([]DayStats, 0, len(order))
	for _, day := range order {
		out = append(out, *byDay[day])
	}
	return out, nil
}
