package contact

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chainalert/internal/identity"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/requestcontext"
)

// RecordInput is one interaction as the device uploads it. The partner's
// graph hash is computed device-side by the discovery protocol; the owner's
// side is always derived from the verified caller identity.
type RecordInput struct {
	PartnerGraphID     string
	PartnerDisplayName string
	RecordedAt         time.Time
}

// Service validates and records interaction edges.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Record appends one edge owned by the caller. An edge only ever asserts "I
// met this partner"; nothing a caller uploads can place someone else next to
// a third party.
func (s *Service) Record(ctx context.Context, in RecordInput) (Edge, error) {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		return Edge{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if !identity.IsValid(in.PartnerGraphID) {
		return Edge{}, dErrors.New(dErrors.CodeInvalidInput, "partnerGraphId must be a 64 character hex hash")
	}
	ownerGraphID := identity.HashGraph(deviceID)
	if in.PartnerGraphID == ownerGraphID {
		return Edge{}, dErrors.New(dErrors.CodeInvalidInput, "an interaction cannot reference the caller themselves")
	}

	now := requestcontext.Now(ctx)
	recordedAt := in.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}
	if recordedAt.After(now) {
		return Edge{}, dErrors.New(dErrors.CodeInvalidInput, "recordedAt cannot be in the future")
	}

	edge := Edge{
		ID:                 uuid.NewString(),
		OwnerGraphID:       ownerGraphID,
		PartnerGraphID:     in.PartnerGraphID,
		PartnerDisplayName: in.PartnerDisplayName,
		RecordedAt:         recordedAt,
	}
	if err := s.store.Append(ctx, edge); err != nil {
		return Edge{}, dErrors.Wrap(dErrors.CodeUnavailable, "could not record interaction", err)
	}
	return edge, nil
}
