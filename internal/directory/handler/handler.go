// Package handler exposes device enrollment over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chainalert/internal/directory"
	"chainalert/internal/platform/metrics"
	"chainalert/internal/platform/middleware"
	"chainalert/internal/transport/http/shared"
	dErrors "chainalert/pkg/domain-errors"
)

// Service defines the interface for enrollment operations.
type Service interface {
	Enroll(ctx context.Context, in directory.EnrollInput) (string, error)
	UpdatePushToken(ctx context.Context, pushToken string) error
}

type Handler struct {
	logger    *slog.Logger
	devices   Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(devices Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		devices:   devices,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the device routes with the chi router. Enrollment is
// the one unauthenticated write: it is how a device obtains its token.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(dr chi.Router) {
		dr.Use(middleware.Recovery(h.logger))
		dr.Use(middleware.RequestID)
		dr.Use(middleware.RequestTime)
		dr.Use(middleware.Logger(h.logger))
		dr.Use(middleware.Timeout(15 * time.Second))
		dr.Use(middleware.ContentTypeJSON)
		dr.Use(middleware.Latency(h.metrics))
		dr.Post("/v1/devices", h.handleEnroll)
	})
	r.Group(func(dr chi.Router) {
		dr.Use(middleware.Recovery(h.logger))
		dr.Use(middleware.RequestID)
		dr.Use(middleware.RequestTime)
		dr.Use(middleware.Logger(h.logger))
		dr.Use(middleware.Timeout(15 * time.Second))
		dr.Use(middleware.ContentTypeJSON)
		dr.Use(middleware.Latency(h.metrics))
		dr.Use(middleware.RequireAuth(h.validator, h.logger))
		dr.Put("/v1/devices/push-token", h.handleUpdatePushToken)
	})
}

type enrollRequest struct {
	DeviceID    string `json:"deviceId"`
	DisplayName string `json:"displayName"`
	PushToken   string `json:"pushToken,omitempty"`
}

type enrollResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, err := h.devices.Enroll(ctx, directory.EnrollInput{
		DeviceID:    req.DeviceID,
		DisplayName: req.DisplayName,
		PushToken:   req.PushToken,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "enrollment failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, enrollResponse{AccessToken: token})
}

type pushTokenRequest struct {
	PushToken string `json:"pushToken"`
}

func (h *Handler) handleUpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.devices.UpdatePushToken(ctx, req.PushToken); err != nil {
		h.logger.WarnContext(ctx, "push token update failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
