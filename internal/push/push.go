// Package push is the delivery boundary. The engine hands finished messages
// to a Sender and moves on; transport failures are logged downstream, never
// retried by the traversal.
package push

import "context"

// Message types understood by the mobile client.
const (
	TypeExposure = "EXPOSURE"
	TypeUpdate   = "UPDATE"
)

// Message is one push dispatch. Data carries machine-readable fields
// (including "type"); Title and Body are the human-facing notification.
type Message struct {
	Token string            `json:"token"`
	Data  map[string]string `json:"data"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
}

// Sender dispatches a message and returns a transport message ID.
// Implementations must be safe for concurrent use and fire-and-forget:
// a failed send is the transport's problem, not the caller's.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
