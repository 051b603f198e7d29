// Package handler exposes the notification inbox over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chainalert/internal/notification"
	"chainalert/internal/platform/metrics"
	"chainalert/internal/platform/middleware"
	"chainalert/internal/transport/http/shared"
	dErrors "chainalert/pkg/domain-errors"
)

// Service defines the interface for inbox operations.
type Service interface {
	ListForCaller(ctx context.Context) ([]notification.Entry, error)
	MarkRead(ctx context.Context, id string) error
}

type Handler struct {
	logger    *slog.Logger
	inbox     Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(inbox Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		inbox:     inbox,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the inbox routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(nr chi.Router) {
		nr.Use(middleware.Recovery(h.logger))
		nr.Use(middleware.RequestID)
		nr.Use(middleware.RequestTime)
		nr.Use(middleware.Logger(h.logger))
		nr.Use(middleware.Timeout(30 * time.Second))
		nr.Use(middleware.Latency(h.metrics))
		nr.Use(middleware.RequireAuth(h.validator, h.logger))
		nr.Get("/v1/notifications", h.handleList)
		nr.Post("/v1/notifications/{id}/read", h.handleMarkRead)
	})
}

type entryResponse struct {
	ID              string              `json:"id"`
	ReportID        string              `json:"reportId"`
	HopDepth        int                 `json:"hopDepth"`
	ConditionLabels []string            `json:"conditionLabels,omitempty"`
	ExposedAt       *time.Time          `json:"exposedAt,omitempty"`
	Chain           []notification.Node `json:"chain"`
	IsRead          bool                `json:"isRead"`
	ReceivedAt      time.Time           `json:"receivedAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.inbox.ListForCaller(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "inbox listing failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:              e.ID,
			ReportID:        e.ReportID,
			HopDepth:        e.HopDepth,
			ConditionLabels: e.ConditionLabels,
			ExposedAt:       e.ExposedAt,
			Chain:           e.Chain.Nodes,
			IsRead:          e.IsRead,
			ReceivedAt:      e.ReceivedAt,
			UpdatedAt:       e.UpdatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]entryResponse{"notifications": out})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "notification ID is required"))
		return
	}

	if err := h.inbox.MarkRead(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "mark read failed",
			"request_id", middleware.GetRequestID(ctx),
			"notification_id", id,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
