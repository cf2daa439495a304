// Package ops serves the operations HTTP surface: health, statistics,
// ping history, manual snapshots and Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/unilinkup/core/buildinfo"
	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/internal/bot"
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/store"
)

const (
	defaultPingLimit = 20
	maxPingLimit     = 100
)

// Store is the read side of the store the ops surface reports on.
type Store interface {
	Stats() store.Stats
	RecentPings(limit int) []meetup.Ping
	PingsMatching(f meetup.PingFilter, limit int) []meetup.Ping
}

// Options configure the router. Store is required; nil optional fields
// disable the matching endpoint.
type Options struct {
	Store    Store
	Snapshot func(ctx context.Context) (store.SaveResult, error)
	Errors   func() bot.ErrorStats
	Metrics  http.Handler
}

type statsResponse struct {
	Store   store.Stats     `json:"store"`
	Pings   meetup.Summary  `json:"pings"`
	Errors  *bot.ErrorStats `json:"errors,omitempty"`
	Version string          `json:"version"`
}

type pingsResponse struct {
	Count int           `json:"count"`
	Pings []meetup.Ping `json:"pings"`
}

type handler struct {
	opts Options
}

// NewRouter builds the chi router.
func NewRouter(opts Options) http.Handler {
	h := &handler{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Get("/stats", h.handleStats)
	r.Get("/pings", h.handlePings)
	r.Post("/snapshot", h.handleSnapshot)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		Store:   h.opts.Store.Stats(),
		Pings:   meetup.Summarize(h.opts.Store.RecentPings(0)),
		Version: buildinfo.Version,
	}
	if h.opts.Errors != nil {
		errs := h.opts.Errors()
		resp.Errors = &errs
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handler) handlePings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultPingLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxPingLimit)
	}

	var filter meetup.PingFilter
	if raw := q.Get("type"); raw != "" {
		t, ok := meetup.ParseType(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, "type must be lunch or study")
			return
		}
		filter.Type = t
	}
	filter.Location = q.Get("location")
	if raw := q.Get("organizer"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == 0 {
			respondError(w, http.StatusBadRequest, "organizer must be a user id")
			return
		}
		filter.OrganizerID = id
	}

	pings := h.opts.Store.PingsMatching(filter, limit)
	respondJSON(w, http.StatusOK, pingsResponse{Count: len(pings), Pings: pings})
}

func (h *handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.opts.Snapshot == nil {
		respondError(w, http.StatusServiceUnavailable, "snapshots are not configured")
		return
	}
	res, err := h.opts.Snapshot(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn(context.Background(), "ops", "response.encode_failed", slog.String("err", err.Error()))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug(r.Context(), "ops", "http.request",
			slog.String("rid", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}
