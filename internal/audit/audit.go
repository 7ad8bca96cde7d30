package audit

import (
	"context"
	"time"

	"github.com/timgst1/aegis/internal/authz"
)

// Entry is one recorded decision. Subject is empty when the request
// never authenticated.
type Entry struct {
	ID      string       `json:"id"`
	At      time.Time    `json:"at"`
	Status  string       `json:"status"`
	Subject string       `json:"subject,omitempty"`
	Action  authz.Action `json:"action"`
	Reason  string       `json:"reason"`
}

// Recorder persists decision outcomes. Recording happens after the
// decision is produced and never changes it.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Nop discards everything; used when no audit database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
