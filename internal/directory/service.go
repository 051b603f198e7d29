package directory

import (
	"context"
	"log/slog"
	"time"

	"chainalert/internal/identity"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/requestcontext"
)

// TokenIssuer mints access tokens for enrolled devices.
type TokenIssuer interface {
	GenerateAccessToken(deviceID, displayName string, expiresIn time.Duration) (string, error)
}

// Devices hold their token for a long stretch; re-enrollment is the refresh
// path and also rotates the push token.
const accessTokenTTL = 90 * 24 * time.Hour

// EnrollInput is the device's self-registration payload. The device ID is
// generated client-side and is the only stable identifier the device ever
// reveals; the server immediately reduces it to domain hashes.
type EnrollInput struct {
	DeviceID    string
	DisplayName string
	PushToken   string
}

// Service manages directory membership.
type Service struct {
	store  Store
	issuer TokenIssuer
	logger *slog.Logger
}

func NewService(store Store, issuer TokenIssuer, logger *slog.Logger) *Service {
	return &Service{store: store, issuer: issuer, logger: logger}
}

// Enroll registers a device and returns its access token. Re-enrolling the
// same device ID replaces the directory entry, which is how push tokens and
// display names rotate.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (string, error) {
	if len(in.DeviceID) < 16 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "deviceId must be at least 16 characters")
	}
	if in.DisplayName == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "displayName is required")
	}

	user := User{
		GraphID:        identity.HashGraph(in.DeviceID),
		NotificationID: identity.HashNotification(in.DeviceID),
		DisplayName:    in.DisplayName,
		PushToken:      in.PushToken,
	}
	if err := s.store.Save(ctx, user); err != nil {
		return "", dErrors.Wrap(dErrors.CodeUnavailable, "could not save directory entry", err)
	}

	token, err := s.issuer.GenerateAccessToken(in.DeviceID, in.DisplayName, accessTokenTTL)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "could not issue access token", err)
	}
	s.logger.InfoContext(ctx, "device enrolled",
		"graph_id", identity.Short(user.GraphID),
		"request_id", requestcontext.RequestID(ctx),
	)
	return token, nil
}

// UpdatePushToken replaces the caller's delivery token.
func (s *Service) UpdatePushToken(ctx context.Context, pushToken string) error {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	user, err := s.store.FindByGraphID(ctx, identity.HashGraph(deviceID))
	if err != nil {
		return dErrors.Wrap(dErrors.CodeNotFound, "device is not enrolled", err)
	}
	user.PushToken = pushToken
	if err := s.store.Save(ctx, user); err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "could not save directory entry", err)
	}
	return nil
}
