package notification

import (
	"context"
	"errors"
	"log/slog"

	"chainalert/internal/identity"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/platform/sentinel"
	"chainalert/pkg/requestcontext"
)

// Service is the caller-facing read side of the inbox. Every operation
// derives the recipient hash from the verified device identity in the
// context; a client can never name a recipient directly.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ListForCaller returns the caller's notifications, newest first.
func (s *Service) ListForCaller(ctx context.Context) ([]Entry, error) {
	recipientID, err := callerRecipientID(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.FindByRecipient(ctx, recipientID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "could not load notifications", err)
	}
	return entries, nil
}

// MarkRead flags one of the caller's notifications as read. A valid ID owned
// by someone else is reported as not found so existence is not leaked.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	recipientID, err := callerRecipientID(ctx)
	if err != nil {
		return err
	}
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(dErrors.CodeUnavailable, "could not load notification", err)
	}
	if entry.RecipientID != recipientID {
		s.logger.WarnContext(ctx, "rejected cross-recipient read attempt",
			"notification_id", id,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err := s.store.MarkRead(ctx, id); err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "could not mark notification read", err)
	}
	return nil
}

func callerRecipientID(ctx context.Context) (string, error) {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	return identity.HashNotification(deviceID), nil
}
