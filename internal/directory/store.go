// Package directory maps graph-domain identifiers to the notification-domain
// identity needed to actually reach a user.
package directory

import "context"

// User is one directory entry. GraphID is the join key for edge traversal,
// NotificationID the join key for delivery; both are hashes of the same
// underlying identity in different domains, so holding one table does not let
// you walk the other.
type User struct {
	GraphID        string
	NotificationID string
	DisplayName    string
	PushToken      string
}

// Store is interface-driven so the engine can be tested against memory and
// deployed against postgres, optionally behind a redis cache.
type Store interface {
	Save(ctx context.Context, user User) error
	FindByGraphID(ctx context.Context, graphID string) (User, error)
	// FindByGraphIDs resolves a batch; missing IDs are simply absent from
	// the result, they do not fail the lookup.
	FindByGraphIDs(ctx context.Context, graphIDs []string) (map[string]User, error)
	FindByNotificationID(ctx context.Context, notificationID string) (User, error)
}
