package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ignite/newsletter-service/internal/domain"
)

// memSink is an in-memory Sink for testing.
type memSink struct {
	mu     sync.Mutex
	events []domain.AnalyticsEvent
	err    error
}

func (m *memSink) Append(_ context.Context, e *domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, *e)
	return nil
}

func (m *memSink) EventsSince(_ context.Context, since time.Time) ([]domain.AnalyticsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.AnalyticsEvent
	for _, e := range m.events {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRecord_AppendsEvent(t *testing.T) {
	sink := &memSink{}
	r := NewRecorder(sink)

	if err := r.Record(context.Background(), "a@b.com", domain.StatusPending, "ua"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	e := sink.events[0]
	if e.Email != "a@b.com" || e.Status != domain.StatusPending || e.UserAgent != "ua" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Errorf("event missing ID or timestamp: %+v", e)
	}
}

func TestRecord_SinkFailure_ReturnsError(t *testing.T) {
	sink := &memSink{err: errors.New("down")}
	r := NewRecorder(sink)

	if err := r.Record(context.Background(), "a@b.com", domain.StatusPending, ""); err == nil {
		t.Error("expected an error so callers can surface a warning")
	}
}

func TestStatsSince_ComputesConversionRate(t *testing.T) {
	sink := &memSink{}
	r := NewRecorder(sink)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = r.Record(ctx, "a@b.com", domain.StatusPending, "")
	}
	_ = r.Record(ctx, "a@b.com", domain.StatusConfirmed, "")

	stats, err := r.StatsSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("StatsSince: %v", err)
	}
	if stats.Total != 5 || stats.Pending != 4 || stats.Confirmed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ConversionRate != 20 {
		t.Errorf("expected 20%% conversion, got %v", stats.ConversionRate)
	}
}

func TestStatsSince_Empty(t *testing.T) {
	r := NewRecorder(&memSink{})

	stats, err := r.StatsSince(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("StatsSince: %v", err)
	}
	if stats.Total != 0 || stats.ConversionRate != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestDailyStats_GroupsByDay(t *testing.T) {
	sink := &memSink{}
	r := NewRecorder(sink)

	day1 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	sink.events = []domain.AnalyticsEvent{
		{ID: "1", Email: "a@b.com", Status: domain.StatusPending, Timestamp: day1},
		{ID: "2", Email: "a@b.com", Status: domain.StatusConfirmed, Timestamp: day1.Add(time.Hour)},
		{ID: "3", Email: "c@d.com", Status: domain.StatusPending, Timestamp: day2},
	}
	r.now = func() time.Time { return day2.Add(2 * time.Hour) }

	days, err := r.DailyStats(context.Background(), 7)
	if err != nil {
		t.Fatalf("DailyStats: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d: %+v", len(days), days)
	}
	if days[0].Date != "2026-08-25" || days[0].Total != 2 || days[0].Confirmed != 1 {
		t.Errorf("unexpected day 1: %+v", days[0])
	}
	if days[1].Date != "2026-08-26" || days[1].Total != 1 || days[1].Pending != 1 {
		t.Errorf("unexpected day 2: %+v", days[1])
	}
}
