package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chainalert/internal/identity"
	"chainalert/internal/notification"
	"chainalert/internal/propagation"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/requestcontext"
)

// Propagator is the slice of the chain engine this service drives.
type Propagator interface {
	PropagateExposureChain(ctx context.Context, r propagation.Report) (int, error)
	PropagateTestStatusUpdate(ctx context.Context, graphID string, status notification.TestStatus, conditionLabel string) (int, error)
}

// SubmitInput is a positive report as the device sends it. Identity is never
// part of the payload; it comes from the verified request context.
type SubmitInput struct {
	ConditionLabels []string
	TestDate        time.Time
	PrivacyLevel    string
}

// StatusUpdateInput is a follow-up test result for a previously involved
// person, positive or negative.
type StatusUpdateInput struct {
	Status         Status
	ConditionLabel string
	LinkedReportID string
}

type Service struct {
	store      Store
	propagator Propagator
	logger     *slog.Logger
}

func NewService(store Store, propagator Propagator, logger *slog.Logger) *Service {
	return &Service{store: store, propagator: propagator, logger: logger}
}

// Submit persists a positive report and fans it out through the contact
// graph. The returned report carries how many people were notified.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Report, error) {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		return Report{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if in.TestDate.IsZero() {
		return Report{}, dErrors.New(dErrors.CodeInvalidInput, "test date is required")
	}
	now := requestcontext.Now(ctx)
	if in.TestDate.After(now) {
		return Report{}, dErrors.New(dErrors.CodeInvalidInput, "test date cannot be in the future")
	}
	privacy, err := normalizePrivacy(in.PrivacyLevel)
	if err != nil {
		return Report{}, err
	}

	labelsJSON := ""
	if len(in.ConditionLabels) > 0 {
		b, err := json.Marshal(in.ConditionLabels)
		if err != nil {
			return Report{}, dErrors.Wrap(dErrors.CodeInvalidInput, "invalid condition labels", err)
		}
		labelsJSON = string(b)
	}

	r := Report{
		ID:                  uuid.NewString(),
		OwnerReportID:       identity.HashReport(deviceID),
		ReporterGraphID:     identity.HashGraph(deviceID),
		ReporterDisplayName: requestcontext.DisplayName(ctx),
		ConditionLabelsJSON: labelsJSON,
		TestDate:            in.TestDate,
		Status:              StatusPositive,
		PrivacyLevel:        string(privacy),
		CreatedAt:           now,
	}
	if err := s.store.Save(ctx, r); err != nil {
		return Report{}, dErrors.Wrap(dErrors.CodeUnavailable, "could not persist report", err)
	}

	notified, err := s.propagator.PropagateExposureChain(ctx, propagation.Report{
		ID:                  r.ID,
		ReporterGraphID:     r.ReporterGraphID,
		ReporterDisplayName: r.ReporterDisplayName,
		ConditionLabelsJSON: r.ConditionLabelsJSON,
		TestDate:            r.TestDate,
		PrivacyLevel:        privacy,
	})
	if err != nil {
		return Report{}, dErrors.Wrap(dErrors.CodeInternal, "propagation failed", err)
	}

	r.NotifiedCount = notified
	if err := s.store.SetNotifiedCount(ctx, r.ID, notified); err != nil {
		// The fan-out already happened; a stale count is tolerable.
		s.logger.WarnContext(ctx, "could not record notified count",
			"report_id", r.ID,
			"error", err,
		)
	}
	return r, nil
}

// UpdateStatus records a follow-up result and rewrites every chain that
// includes the caller. Returns how many notifications changed.
func (s *Service) UpdateStatus(ctx context.Context, in StatusUpdateInput) (int, error) {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	var status notification.TestStatus
	switch in.Status {
	case StatusPositive:
		status = notification.StatusPositive
	case StatusNegative:
		status = notification.StatusNegative
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "status must be POSITIVE or NEGATIVE")
	}

	if in.LinkedReportID != "" {
		original, err := s.store.FindByID(ctx, in.LinkedReportID)
		if err != nil {
			return 0, dErrors.Wrap(dErrors.CodeNotFound, "linked report not found", err)
		}
		if original.OwnerReportID != identity.HashReport(deviceID) {
			return 0, dErrors.New(dErrors.CodeForbidden, "linked report belongs to someone else")
		}
	}

	now := requestcontext.Now(ctx)
	follow := Report{
		ID:                  uuid.NewString(),
		OwnerReportID:       identity.HashReport(deviceID),
		ReporterGraphID:     identity.HashGraph(deviceID),
		ReporterDisplayName: requestcontext.DisplayName(ctx),
		ConditionLabelsJSON: labelJSON(in.ConditionLabel),
		TestDate:            now,
		Status:              in.Status,
		PrivacyLevel:        string(propagation.PrivacyAnonymous),
		LinkedReportID:      in.LinkedReportID,
		CreatedAt:           now,
	}
	if err := s.store.Save(ctx, follow); err != nil {
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "could not persist status update", err)
	}

	updated, err := s.propagator.PropagateTestStatusUpdate(ctx, follow.ReporterGraphID, status, in.ConditionLabel)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "status propagation failed", err)
	}
	return updated, nil
}

// ListMine returns the caller's own reports, resolved through the
// report-domain ownership hash.
func (s *Service) ListMine(ctx context.Context) ([]Report, error) {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	reports, err := s.store.FindByOwner(ctx, identity.HashReport(deviceID))
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "could not load reports", err)
	}
	return reports, nil
}

func normalizePrivacy(raw string) (propagation.PrivacyLevel, error) {
	switch propagation.PrivacyLevel(raw) {
	case "":
		return propagation.PrivacyFull, nil
	case propagation.PrivacyFull, propagation.PrivacyAnonymous, propagation.PrivacySTIOnly:
		return propagation.PrivacyLevel(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown privacy level")
	}
}

func labelJSON(label string) string {
	if label == "" {
		return ""
	}
	b, _ := json.Marshal([]string{label})
	return string(b)
}
