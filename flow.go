package convoskills

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/convodesk/convoskills-go/internal/sessionstore"
	"github.com/convodesk/convoskills-go/spec"
)

// Context keys shared between the engine, the order-lookup capability and
// the host.
const (
	// ContextKeyCurrentOrder holds the order currently being viewed in the
	// conversation context (context defaults tier).
	ContextKeyCurrentOrder = "currentOrder"

	// LocalKeyUseCurrentOrder is the turn-scoped flag recording that the
	// active skill adopted the order from context.
	LocalKeyUseCurrentOrder = "useCurrentOrderInContext"
)

// Flow is the explicit per-activation facade handed to every skill
// handler. It carries slot access and mutation, the three-tier session
// context cache, option-list resolution, and the response/completion
// surface. There is no ambient state: everything a handler touches goes
// through its Flow.
type Flow struct {
	rt   *Runtime
	sess *sessionstore.Session
	act  *sessionstore.Activation
	def  *Definition

	// pending is the FIFO queue of slot names awaiting change
	// propagation within the current turn.
	pending []string
}

// SessionID returns the owning session's ID.
func (f *Flow) SessionID() spec.SessionID { return spec.SessionID(f.sess.ID) }

// SkillID returns the active skill's ID.
func (f *Flow) SkillID() string { return f.act.SkillID }

// Logger returns the runtime logger.
func (f *Flow) Logger() *slog.Logger { return f.rt.logger }

// Orders returns the order/modification collaborator.
func (f *Flow) Orders() spec.OrderProvider { return f.rt.orders }

// Slot returns the slot in flight with the given name, or nil.
func (f *Flow) Slot(name string) *spec.Slot { return f.act.Slots[name] }

// SetSlotString sets a slot's value as both raw and normalized form, the
// way context-resolved values are pre-filled. An empty value clears the
// slot. Setting a changed value queues the slot for change propagation;
// setting the already-committed value is a no-op.
func (f *Flow) SetSlotString(name, value string) error {
	slot := f.act.Slots[name]
	if slot == nil {
		return fmt.Errorf("%w: %s", spec.ErrSlotNotFound, name)
	}
	if value == "" {
		slot.Clear()
		return nil
	}
	if slot.Normalized() == value {
		return nil
	}
	slot.SetValue(spec.SlotValue{Raw: value, Normalized: value})
	f.enqueue(name)
	return nil
}

// SetSlotPrompt resolves and attaches a prompt to a slot. An empty key
// falls back to "prompts.<slotName>".
func (f *Flow) SetSlotPrompt(name, key string, data any) error {
	slot := f.act.Slots[name]
	if slot == nil {
		return fmt.Errorf("%w: %s", spec.ErrSlotNotFound, name)
	}
	if key == "" {
		key = "prompts." + name
	}
	slot.Prompt = f.rt.text.ResolveText(key, data)
	return nil
}

// Resolve reads a session context value with three-tier precedence:
// turn-local override, then session-durable cache, then conversation
// context defaults. The second return reports presence.
func (f *Flow) Resolve(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok := f.act.Locals[key]; ok {
		return b, true, nil
	}
	b, ok, err := f.rt.store.Get(ctx, f.SessionID(), key)
	if err != nil {
		return nil, false, fmt.Errorf("session store get %q: %w", key, err)
	}
	if ok {
		return b, true, nil
	}
	if b, ok := f.sess.Context[key]; ok {
		return b, true, nil
	}
	return nil, false, nil
}

// ResolveJSON resolves a key and unmarshals it into out.
func (f *Flow) ResolveJSON(ctx context.Context, key string, out any) (bool, error) {
	b, ok, err := f.Resolve(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("unmarshal session value %q: %w", key, err)
	}
	return true, nil
}

// Cache writes a value to the session-durable tier. Subsequent resolves
// for the key return the cached value until it is invalidated or the
// session is torn down.
func (f *Flow) Cache(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal session value %q: %w", key, err)
	}
	if err := f.rt.store.Set(ctx, f.SessionID(), key, b); err != nil {
		return fmt.Errorf("session store set %q: %w", key, err)
	}
	return nil
}

// Invalidate removes a key from the session-durable tier.
func (f *Flow) Invalidate(ctx context.Context, key string) error {
	return f.rt.store.Delete(ctx, f.SessionID(), key)
}

// SetLocal writes a turn-local override, scoped to the activation.
func (f *Flow) SetLocal(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal local %q: %w", key, err)
	}
	f.act.Locals[key] = b
	return nil
}

// LocalJSON reads a turn-local override into out.
func (f *Flow) LocalJSON(key string, out any) (bool, error) {
	b, ok := f.act.Locals[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("unmarshal local %q: %w", key, err)
	}
	return true, nil
}

// DeleteLocal removes a turn-local override.
func (f *Flow) DeleteLocal(key string) { delete(f.act.Locals, key) }

// CurrentOrder returns the order held in conversation context, if any.
func (f *Flow) CurrentOrder() (spec.Order, bool) {
	b, ok := f.sess.Context[ContextKeyCurrentOrder]
	if !ok {
		return spec.Order{}, false
	}
	var o spec.Order
	if err := json.Unmarshal(b, &o); err != nil {
		f.rt.logger.Warn("corrupt current order in context", "session", f.sess.ID, "err", err)
		return spec.Order{}, false
	}
	return o, true
}

// SetCurrentOrder places an order into conversation context.
func (f *Flow) SetCurrentOrder(o spec.Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal current order: %w", err)
	}
	f.sess.Context[ContextKeyCurrentOrder] = b
	return nil
}

// DropCurrentOrder removes the order from conversation context so later
// skills in the session cannot silently reuse it.
func (f *Flow) DropCurrentOrder() {
	delete(f.sess.Context, ContextKeyCurrentOrder)
}

// Options returns the option list for (category, enterpriseCode), fetching
// it from the reference-data provider at most once per session and key.
// An empty enterprise code never triggers a fetch: the upstream slot must
// be known before any round-trip is attempted. Provider failures are
// treated as "no data" and the conversation proceeds with empty options.
//
// Turns are single-threaded and the cache write is synchronous, so calls
// for the same key within one turn never issue duplicate provider calls.
func (f *Flow) Options(ctx context.Context, category, enterpriseCode string) ([]spec.EntityOption, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: empty option category", spec.ErrInvalidArgument)
	}
	key := "options/" + category + "/" + enterpriseCode
	var cached []spec.EntityOption
	ok, err := f.ResolveJSON(ctx, key, &cached)
	if err != nil {
		return nil, err
	}
	if ok {
		return cached, nil
	}
	if enterpriseCode == "" {
		return nil, nil
	}
	recs, err := f.rt.refdata.FetchReferenceOptions(ctx, category, enterpriseCode)
	if err != nil {
		f.rt.logger.Warn("reference data fetch failed",
			"category", category, "enterpriseCode", enterpriseCode, "err", err)
		return nil, nil
	}
	opts := make([]spec.EntityOption, 0, len(recs))
	for _, r := range recs {
		opts = append(opts, spec.EntityOption{Label: r.CodeShortDescription, Value: r.CodeValue})
	}
	if err := f.Cache(ctx, key, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// Text resolves a message key with data into user-facing text.
func (f *Flow) Text(key string, data any) string {
	return f.rt.text.ResolveText(key, data)
}

// AddTextResponse appends a user-facing message to the current turn.
func (f *Flow) AddTextResponse(text string) {
	f.act.Responses = append(f.act.Responses, text)
}

// Goto asks the host UI to navigate to a view.
func (f *Flow) Goto(view string, data map[string]any) {
	f.act.Navigations = append(f.act.Navigations, spec.Navigation{View: view, Data: data})
}

// GotoOrderDetails navigates the host back to the order-details view.
func (f *Flow) GotoOrderDetails(order spec.Order) {
	f.Goto(spec.ViewOrderDetails, map[string]any{
		"orderNo":        order.OrderNo,
		"orderHeaderKey": order.OrderHeaderKey,
	})
}

// Complete marks the skill activation finished with the given metadata.
func (f *Flow) Complete(meta spec.CompletionMetadata) {
	f.act.Complete = true
	f.act.Metadata = meta
}
