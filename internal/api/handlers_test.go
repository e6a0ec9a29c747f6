package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ignite/newsletter-service/internal/analytics"
	"github.com/ignite/newsletter-service/internal/domain"
	"github.com/ignite/newsletter-service/internal/ratelimit"
	"github.com/ignite/newsletter-service/internal/service/subscription"
)

// memRepo is a minimal in-memory subscription.Repository for handler tests.
type memRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Subscriber
}

func newMemRepo() *memRepo { return &memRepo{byEmail: make(map[string]*domain.Subscriber)} }

func (m *memRepo) FindByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byEmail[email]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (m *memRepo) FindPendingByToken(_ context.Context, token string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byEmail {
		if s.Status == domain.StatusPending && s.ConfirmationToken == token {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Insert(_ context.Context, sub *domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[sub.Email]; exists {
		return subscription.ErrDuplicateEmail
	}
	c := *sub
	m.byEmail[sub.Email] = &c
	return nil
}

func (m *memRepo) RefreshToken(_ context.Context, email, token string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byEmail[email]
	if !ok || s.Status != domain.StatusPending {
		return subscription.ErrNotFound
	}
	s.ConfirmationToken = token
	s.TokenIssuedAt = &issuedAt
	return nil
}

func (m *memRepo) Reactivate(_ context.Context, email, token string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byEmail[email]
	if !ok || s.Status != domain.StatusUnsubscribed {
		return subscription.ErrNotFound
	}
	s.Status = domain.StatusPending
	s.ConfirmationToken = token
	s.TokenIssuedAt = &issuedAt
	s.UnsubscribedAt = nil
	return nil
}

func (m *memRepo) MarkConfirmed(_ context.Context, token string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byEmail {
		if s.Status == domain.StatusPending && s.ConfirmationToken == token {
			s.Status = domain.StatusConfirmed
			s.ConfirmedAt = &at
			s.ConfirmationToken = ""
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) MarkUnsubscribed(_ context.Context, email string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byEmail[email]
	if !ok || s.Status != domain.StatusConfirmed {
		return false, nil
	}
	s.Status = domain.StatusUnsubscribed
	s.UnsubscribedAt = &at
	return true, nil
}

type stubGate struct{ decision ratelimit.Decision }

func (g stubGate) Allow(context.Context, string) ratelimit.Decision { return g.decision }

type nopSender struct{}

func (nopSender) SendConfirmation(context.Context, string, string) error { return nil }

type memSink struct {
	mu     sync.Mutex
	events []domain.AnalyticsEvent
}

func (m *memSink) Append(_ context.Context, e *domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memSink) EventsSince(_ context.Context, since time.Time) ([]domain.AnalyticsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AnalyticsEvent
	for _, e := range m.events {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

type env struct {
	repo   *memRepo
	router http.Handler
}

func newEnv(gate subscription.Gate) *env {
	repo := newMemRepo()
	recorder := analytics.NewRecorder(&memSink{})
	workflow := subscription.NewService(repo, gate, subscription.RandomTokenIssuer{}, nopSender{}, recorder)
	return &env{
		repo:   repo,
		router: SetupRoutes(NewHandlers(workflow, recorder)),
	}
}

func admitAll() stubGate { return stubGate{ratelimit.Decision{Allowed: true}} }

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent/1.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubscribeEndpoint_Created(t *testing.T) {
	e := newEnv(admitAll())

	rec := doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"User@Example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var res struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Message == "" {
		t.Error("expected a user-facing message")
	}
	if e.repo.byEmail["user@example.com"] == nil {
		t.Error("expected a record under the canonical email")
	}
}

func TestSubscribeEndpoint_InvalidEmail(t *testing.T) {
	e := newEnv(admitAll())

	rec := doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"user@mailinator.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Disposable") {
		t.Errorf("expected the disposable-domain reason, got %s", rec.Body.String())
	}
}

func TestSubscribeEndpoint_RateLimited(t *testing.T) {
	e := newEnv(stubGate{ratelimit.Decision{Allowed: false, Count: 6}})

	rec := doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"a@b.com"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestSubscribeEndpoint_AlreadySubscribed(t *testing.T) {
	e := newEnv(admitAll())

	doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"a@b.com"}`)
	token := e.repo.byEmail["a@b.com"].ConfirmationToken
	doJSON(t, e.router, http.MethodPut, "/api/newsletter", `{"token":"`+token+`"}`)

	rec := doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"a@b.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestConfirmEndpoint_Lifecycle(t *testing.T) {
	e := newEnv(admitAll())

	doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"a@b.com"}`)
	token := e.repo.byEmail["a@b.com"].ConfirmationToken

	rec := doJSON(t, e.router, http.MethodPut, "/api/newsletter", `{"token":"`+token+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// A second confirm with the same token is a 400.
	rec = doJSON(t, e.router, http.MethodPut, "/api/newsletter", `{"token":"`+token+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on token re-use, got %d", rec.Code)
	}
}

func TestConfirmEndpoint_UnknownToken(t *testing.T) {
	e := newEnv(admitAll())

	rec := doJSON(t, e.router, http.MethodPut, "/api/newsletter", `{"token":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUnsubscribeEndpoint(t *testing.T) {
	e := newEnv(admitAll())

	doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"a@b.com"}`)
	token := e.repo.byEmail["a@b.com"].ConfirmationToken
	doJSON(t, e.router, http.MethodPut, "/api/newsletter", `{"token":"`+token+`"}`)

	rec := doJSON(t, e.router, http.MethodDelete, "/api/newsletter", `{"email":"a@b.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := e.repo.byEmail["a@b.com"].Status; got != domain.StatusUnsubscribed {
		t.Errorf("expected unsubscribed, got %s", got)
	}

	// Missing email is a 400.
	rec = doJSON(t, e.router, http.MethodDelete, "/api/newsletter", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatsEndpoints(t *testing.T) {
	e := newEnv(admitAll())

	doJSON(t, e.router, http.MethodPost, "/api/newsletter", `{"email":"a@b.com"}`)
	token := e.repo.byEmail["a@b.com"].ConfirmationToken
	doJSON(t, e.router, http.MethodPut, "/api/newsletter", `{"token":"`+token+`"}`)

	rec := doJSON(t, e.router, http.MethodGet, "/api/admin/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var stats analytics.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 2 || stats.Confirmed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	rec = doJSON(t, e.router, http.MethodGet, "/api/admin/daily-stats?days=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("daily-stats: expected 200, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(admitAll())

	rec := doJSON(t, e.router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if got := clientIP(req); got != "unknown" {
		t.Errorf("expected unknown without forwarding header, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("expected first forwarded entry, got %q", got)
	}
}
