package testutil

import (
	"net/http"

	"chainalert/pkg/requestcontext"
)

// WithDeviceID adds a verified device ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithDeviceID(req *http.Request, deviceID string) *http.Request {
	ctx := requestcontext.WithDeviceID(req.Context(), deviceID)
	return req.WithContext(ctx)
}

// WithAuth adds device ID and display name to the request context,
// the typical state for an authenticated request.
func WithAuth(req *http.Request, deviceID, displayName string) *http.Request {
	ctx := req.Context()
	if deviceID != "" {
		ctx = requestcontext.WithDeviceID(ctx, deviceID)
	}
	if displayName != "" {
		ctx = requestcontext.WithDisplayName(ctx, displayName)
	}
	return req.WithContext(ctx)
}
