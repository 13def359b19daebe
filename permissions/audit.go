package permissions

import (
	"context"
	"time"
)

// Audit is one permission decision.
type Audit struct {
	UserID     uint
	Role       Role
	Permission Permission
	Resource   string
	Granted    bool
	Timestamp  time.Time
	IPAddress  string
	UserAgent  string
}

func (a Audit) Action() string {
	if a.Granted {
		return "granted"
	}
	return "denied"
}

// AuditSink receives decisions. Record must return without waiting on I/O.
type AuditSink interface {
	Record(ctx context.Context, a Audit)
}

type NopSink struct{}

func (NopSink) Record(context.Context, Audit) {}

// SinkFunc adapts a function to AuditSink.
type SinkFunc func(ctx context.Context, a Audit)

func (f SinkFunc) Record(ctx context.Context, a Audit) { f(ctx, a) }
