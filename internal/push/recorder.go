package push

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
)

// Recorder is the test double: it captures every message for assertions.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, msg Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return "recorded-" + strconv.Itoa(len(r.messages)), nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message{}, r.messages...)
}

// ByType filters recorded messages on their data type field.
func (r *Recorder) ByType(msgType string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if m.Data["type"] == msgType {
			out = append(out, m)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// NopSender drops everything, logging at debug. Used when no broker is
// configured.
type NopSender struct {
	Logger *slog.Logger
}

func (s NopSender) Send(ctx context.Context, msg Message) (string, error) {
	if s.Logger != nil {
		s.Logger.DebugContext(ctx, "push dropped (no sender configured)", "type", msg.Data["type"])
	}
	return "", nil
}
