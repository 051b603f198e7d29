// Package handler exposes report intake over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chainalert/internal/platform/metrics"
	"chainalert/internal/platform/middleware"
	"chainalert/internal/report"
	"chainalert/internal/transport/http/shared"
	dErrors "chainalert/pkg/domain-errors"
)

// Service defines the interface for report operations.
type Service interface {
	Submit(ctx context.Context, in report.SubmitInput) (report.Report, error)
	UpdateStatus(ctx context.Context, in report.StatusUpdateInput) (int, error)
	ListMine(ctx context.Context) ([]report.Report, error)
}

type Handler struct {
	logger    *slog.Logger
	reports   Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(reports Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		reports:   reports,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the report routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(rr chi.Router) {
		rr.Use(middleware.Recovery(h.logger))
		rr.Use(middleware.RequestID)
		rr.Use(middleware.RequestTime)
		rr.Use(middleware.Logger(h.logger))
		rr.Use(middleware.Timeout(60 * time.Second))
		rr.Use(middleware.ContentTypeJSON)
		rr.Use(middleware.Latency(h.metrics))
		rr.Use(middleware.RequireAuth(h.validator, h.logger))
		rr.Post("/v1/reports", h.handleSubmit)
		rr.Get("/v1/reports", h.handleListMine)
		rr.Post("/v1/status", h.handleStatusUpdate)
	})
}

type submitRequest struct {
	ConditionLabels []string `json:"conditionLabels"`
	TestDate        string   `json:"testDate"`
	PrivacyLevel    string   `json:"privacyLevel"`
}

type submitResponse struct {
	ReportID      string `json:"reportId"`
	NotifiedCount int    `json:"notifiedCount"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid report submission",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	testDate, err := parseDate(req.TestDate)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "testDate must be RFC 3339 or YYYY-MM-DD"))
		return
	}

	submitted, err := h.reports.Submit(ctx, report.SubmitInput{
		ConditionLabels: req.ConditionLabels,
		TestDate:        testDate,
		PrivacyLevel:    req.PrivacyLevel,
	})
	if err != nil {
		h.logServiceError(ctx, "report submission failed", requestID, err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, submitResponse{
		ReportID:      submitted.ID,
		NotifiedCount: submitted.NotifiedCount,
	})
}

type statusUpdateRequest struct {
	Status         string `json:"status"`
	ConditionLabel string `json:"conditionLabel,omitempty"`
	LinkedReportID string `json:"linkedReportId,omitempty"`
}

type statusUpdateResponse struct {
	UpdatedCount int `json:"updatedCount"`
}

func (h *Handler) handleStatusUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req statusUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid status update",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.reports.UpdateStatus(ctx, report.StatusUpdateInput{
		Status:         report.Status(req.Status),
		ConditionLabel: req.ConditionLabel,
		LinkedReportID: req.LinkedReportID,
	})
	if err != nil {
		h.logServiceError(ctx, "status update failed", requestID, err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, statusUpdateResponse{UpdatedCount: updated})
}

type reportSummary struct {
	ReportID      string   `json:"reportId"`
	Status        string   `json:"status"`
	TestDate      string   `json:"testDate"`
	PrivacyLevel  string   `json:"privacyLevel"`
	NotifiedCount int      `json:"notifiedCount"`
	CreatedAt     string   `json:"createdAt"`
	Labels        []string `json:"conditionLabels,omitempty"`
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reports, err := h.reports.ListMine(ctx)
	if err != nil {
		h.logServiceError(ctx, "report listing failed", middleware.GetRequestID(ctx), err)
		shared.WriteError(w, err)
		return
	}

	out := make([]reportSummary, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toSummary(rep))
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]reportSummary{"reports": out})
}

func (h *Handler) logServiceError(ctx context.Context, msg, requestID string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err.Error())
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err.Error())
}
