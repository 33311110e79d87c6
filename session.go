package convoskills

import (
	"context"

	"github.com/convodesk/convoskills-go/spec"
)

// Session is a convenience wrapper bound to a session ID.
type Session struct {
	rt *Runtime
	id spec.SessionID
}

func (s *Session) ID() spec.SessionID { return s.id }

func (s *Session) Activate(ctx context.Context, skillID string) (*TurnResult, error) {
	return s.rt.Activate(ctx, s.id, skillID)
}

func (s *Session) CommitSlot(ctx context.Context, slotName string, value spec.SlotValue) (*TurnResult, error) {
	return s.rt.CommitSlot(ctx, s.id, slotName, value)
}

// CommitSlotString commits a value whose raw and normalized forms are the
// same, which is what text channels send for free-form slots.
func (s *Session) CommitSlotString(ctx context.Context, slotName, value string) (*TurnResult, error) {
	return s.rt.CommitSlot(ctx, s.id, slotName, spec.SlotValue{Raw: value, Normalized: value})
}

func (s *Session) IsComplete(ctx context.Context) (bool, *spec.CompletionMetadata, error) {
	return s.rt.IsComplete(ctx, s.id)
}

// SetCurrentOrder places an order into the conversation context, the way
// a host does when the user is viewing an order.
func (s *Session) SetCurrentOrder(ctx context.Context, o spec.Order) error {
	return s.rt.SetContextValue(ctx, s.id, ContextKeyCurrentOrder, o)
}

// SetContextValue writes a conversation-context default for this session.
func (s *Session) SetContextValue(ctx context.Context, key string, v any) error {
	return s.rt.SetContextValue(ctx, s.id, key, v)
}

func (s *Session) Close(ctx context.Context) error {
	return s.rt.CloseSession(ctx, s.id)
}
