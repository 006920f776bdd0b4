// Package handler exposes the audit trail's read and maintenance API. These
// endpoints live off the hot path: querying history, aggregate statistics
// over a trailing window, and the retention purge an external scheduler
// invokes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"identra/internal/audit"
	dErrors "identra/pkg/domain-errors"
	"identra/pkg/platform/httputil"
	"identra/pkg/requestcontext"
)

// Service defines the audit operations the handler exposes.
type Service interface {
	Query(ctx context.Context, filter audit.Filter) ([]*audit.Entry, int, error)
	Statistics(ctx context.Context, windowDays int) (*audit.Statistics, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// Handler wires audit endpoints to the recorder.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audit handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/entries", h.HandleQuery)
	r.Get("/audit/statistics", h.HandleStatistics)
	r.Delete("/audit/retention", h.HandlePurge)
}

// queryResponse pairs a page of entries with the total match count.
type queryResponse struct {
	Entries []*audit.Entry `json:"entries"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// HandleQuery handles GET /audit/entries requests.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, total, err := h.service.Query(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if entries == nil {
		entries = []*audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, queryResponse{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

// filterFromQuery parses query string parameters into a filter. Absent
// parameters impose no constraint.
func filterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		ActorID:    q.Get("actorId"),
		Action:     audit.ActionKind(q.Get("action")),
		EntityType: audit.EntityKind(q.Get("entityType")),
		EntityID:   q.Get("entityId"),
		Source:     audit.RequestSource(q.Get("source")),
	}

	if raw := q.Get("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "success must be true or false")
		}
		filter.Success = &success
	}

	for param, dst := range map[string]**time.Time{"from": &filter.CreatedFrom, "to": &filter.CreatedTo} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, param+" must be an RFC 3339 timestamp")
		}
		parsed := ts
		*dst = &parsed
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}

	return filter, nil
}

// HandleStatistics handles GET /audit/statistics requests.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "days must be an integer"))
			return
		}
		days = parsed
	}

	stats, err := h.service.Statistics(ctx, days)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandlePurge handles DELETE /audit/retention requests.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.URL.Query().Get("days")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "days is required"))
		return
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "days must be an integer"))
		return
	}

	deleted, err := h.service.PurgeOlderThan(ctx, days)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
