package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/newsletter-service/internal/analytics"
	"github.com/ignite/newsletter-service/internal/pkg/httputil"
	"github.com/ignite/newsletter-service/internal/service/subscription"
)

// Handlers holds the request handlers and their collaborators.
type Handlers struct {
	workflow *subscription.Service
	recorder *analytics.Recorder
}

// NewHandlers wires the API handlers.
func NewHandlers(workflow *subscription.Service, recorder *analytics.Recorder) *Handlers {
	return &Handlers{workflow: workflow, recorder: recorder}
}

// Subscribe handles POST /api/newsletter.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.workflow.Subscribe(r.Context(), req.Email, clientIP(r), r.UserAgent())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httputil.JSON(w, res.Status, res)
}

// Confirm handles PUT /api/newsletter.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.workflow.Confirm(r.Context(), req.Token)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httputil.JSON(w, res.Status, res)
}

// Unsubscribe handles DELETE /api/newsletter.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.BadRequest(w, "Email is required")
		return
	}

	res, err := h.workflow.Unsubscribe(r.Context(), req.Email)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	httputil.JSON(w, res.Status, res)
}

// Stats handles GET /api/admin/stats (last 30 days).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recorder.StatsSince(r.Context(), time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// DailyStats handles GET /api/admin/daily-stats?days=N.
func (h *Handlers) DailyStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	stats, err := h.recorder.DailyStats(r.Context(), days)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// writeWorkflowError maps the service error taxonomy onto transport status
// codes. Validation errors carry their user-facing message through.
func writeWorkflowError(w http.ResponseWriter, err error) {
	var invalid *subscription.InvalidEmailError
	var store *subscription.StoreError

	switch {
	case errors.Is(err, subscription.ErrRateLimited):
		httputil.TooManyRequests(w, "Too many requests. Please try again later.")
	case errors.As(err, &invalid):
		httputil.BadRequest(w, invalid.Message)
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		httputil.Conflict(w, "Email already subscribed")
	case errors.Is(err, subscription.ErrConfirmation):
		httputil.BadRequest(w, "Invalid or expired confirmation token")
	case errors.As(err, &store):
		httputil.InternalError(w, err)
	default:
		httputil.InternalError(w, err)
	}
}

// clientIP extracts the originating client IP. Behind the CDN the first
// X-Forwarded-For entry is the client; direct requests fall back to
// "unknown", which the rate limiter exempts rather than throttling a
// shared bucket.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return "unknown"
}
