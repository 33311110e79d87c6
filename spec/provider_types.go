package spec

import "context"

// ReferenceDataProvider serves ordered reference-data option lists for a
// code category (cancellation reasons, appeasement reasons) scoped to an
// enterprise. A nil, empty result means the category has no options for
// that enterprise.
type ReferenceDataProvider interface {
	FetchReferenceOptions(ctx context.Context, category, enterpriseCode string) ([]ReferenceOption, error)
}

// OrderProvider is the order/modification collaborator. Concrete transport
// (REST/XML) is out of scope; the engine only consumes this contract.
type OrderProvider interface {
	// FindOrder resolves an order by criteria. (nil, nil) means no match.
	FindOrder(ctx context.Context, criteria OrderCriteria) (*Order, error)

	// AllowedModifications returns the modification types currently allowed
	// for the order. nil means the provider has no explicit list; callers
	// fall back to CheckModificationAllowed per type.
	AllowedModifications(ctx context.Context, order Order) ([]string, error)

	// CheckModificationAllowed performs a live eligibility check for one
	// modification type against one order.
	CheckModificationAllowed(ctx context.Context, modificationType, orderHeaderKey string) (bool, error)

	// PerformModification executes the terminal business mutation
	// (cancel, appease). It is attempted at most once per skill activation.
	PerformModification(ctx context.Context, req ModificationRequest) error
}

// TextResolver turns a message key plus data into user-facing text.
// Implementations must not fail: unknown keys resolve to the key itself.
type TextResolver interface {
	ResolveText(key string, data any) string
}

// SessionStore is the durable tier of the session context cache. Values
// persist across turns and process restarts of the same session. Values
// are opaque bytes; the engine stores JSON.
//
// Implementations must be safe for concurrent use across sessions.
type SessionStore interface {
	Get(ctx context.Context, sessionID SessionID, key string) ([]byte, bool, error)
	Set(ctx context.Context, sessionID SessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID SessionID, key string) error

	// DeleteSession removes every value cached for the session. Called on
	// session teardown.
	DeleteSession(ctx context.Context, sessionID SessionID) error
}
