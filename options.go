package convoskills

import (
	"log/slog"
	"time"

	"github.com/convodesk/convoskills-go/spec"
)

type Option func(*Runtime) error

func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) error {
		r.logger = l
		return nil
	}
}

// WithSessionTTL bounds how long an idle session's in-process state is
// retained.
func WithSessionTTL(ttl time.Duration) Option {
	return func(r *Runtime) error {
		r.sessions.SetTTL(ttl)
		return nil
	}
}

func WithMaxSessions(maxSessions int) Option {
	return func(r *Runtime) error {
		r.sessions.SetMaxSessions(maxSessions)
		return nil
	}
}

// WithSessionStore sets the durable tier of the session context cache.
// Defaults to the in-memory memstore.
func WithSessionStore(s spec.SessionStore) Option {
	return func(r *Runtime) error {
		r.store = s
		return nil
	}
}

// WithOrderProvider sets the order/modification collaborator. Required.
func WithOrderProvider(p spec.OrderProvider) Option {
	return func(r *Runtime) error {
		r.orders = p
		return nil
	}
}

// WithReferenceDataProvider sets the reference-data collaborator. Required.
func WithReferenceDataProvider(p spec.ReferenceDataProvider) Option {
	return func(r *Runtime) error {
		r.refdata = p
		return nil
	}
}

// WithTextResolver sets the message catalog. Defaults to echoing keys.
func WithTextResolver(t spec.TextResolver) Option {
	return func(r *Runtime) error {
		r.text = t
		return nil
	}
}
