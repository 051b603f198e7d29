// Package handler exposes interaction upload over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chainalert/internal/contact"
	"chainalert/internal/platform/metrics"
	"chainalert/internal/platform/middleware"
	"chainalert/internal/transport/http/shared"
	dErrors "chainalert/pkg/domain-errors"
)

// Service defines the interface for interaction recording.
type Service interface {
	Record(ctx context.Context, in contact.RecordInput) (contact.Edge, error)
}

type Handler struct {
	logger    *slog.Logger
	contacts  Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(contacts Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		contacts:  contacts,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the contact routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(cr chi.Router) {
		cr.Use(middleware.Recovery(h.logger))
		cr.Use(middleware.RequestID)
		cr.Use(middleware.RequestTime)
		cr.Use(middleware.Logger(h.logger))
		cr.Use(middleware.Timeout(15 * time.Second))
		cr.Use(middleware.ContentTypeJSON)
		cr.Use(middleware.Latency(h.metrics))
		cr.Use(middleware.RequireAuth(h.validator, h.logger))
		cr.Post("/v1/contacts", h.handleRecord)
	})
}

type recordRequest struct {
	PartnerGraphID     string     `json:"partnerGraphId"`
	PartnerDisplayName string     `json:"partnerDisplayName,omitempty"`
	RecordedAt         *time.Time `json:"recordedAt,omitempty"`
}

type recordResponse struct {
	EdgeID     string    `json:"edgeId"`
	RecordedAt time.Time `json:"recordedAt"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid contact upload",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	in := contact.RecordInput{
		PartnerGraphID:     req.PartnerGraphID,
		PartnerDisplayName: req.PartnerDisplayName,
	}
	if req.RecordedAt != nil {
		in.RecordedAt = *req.RecordedAt
	}

	edge, err := h.contacts.Record(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "contact recording failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, recordResponse{
		EdgeID:     edge.ID,
		RecordedAt: edge.RecordedAt,
	})
}
