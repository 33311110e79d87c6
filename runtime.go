// Package convoskills implements a dependent slot-filling dialog engine
// for conversational order-management skills. A skill declares the slots
// a multi-turn conversation must collect; the engine re-derives
// downstream slot option sets when upstream slots change, validates
// values against dynamically fetched option lists, short-circuits slots
// already answered by conversation context, gates terminal actions behind
// an eligibility check and a confirmation step, and guarantees that the
// single side-effecting action of a skill runs at most once per session
// with deterministic cleanup.
//
// The engine is transport-agnostic: order lookup, reference data, text
// resolution and durable session storage are consumed through the
// interfaces in package spec.
package convoskills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/convodesk/convoskills-go/internal/sessionstore"
	"github.com/convodesk/convoskills-go/memstore"
	"github.com/convodesk/convoskills-go/spec"
)

// Runtime owns the skill registry and the per-session dialog state. One
// Runtime serves many sessions; sessions are processed independently and
// in parallel, while turns within a session are serialized.
type Runtime struct {
	mu     sync.RWMutex
	logger *slog.Logger

	// Registry (skill id -> definition).
	defs map[string]*Definition

	// Sessions (internal state registry).
	sessions *sessionstore.Store

	store   spec.SessionStore
	refdata spec.ReferenceDataProvider
	orders  spec.OrderProvider
	text    spec.TextResolver
}

// TurnResult is what one user-input/host-response cycle produces: the
// current slot states (schemas, values, errors and prompts for the host
// to render), the turn's text responses and navigations, and completion
// metadata once the skill is done.
type TurnResult struct {
	SkillID     string            `json:"skillId"`
	Slots       []spec.Slot       `json:"slots"`
	Responses   []string          `json:"responses,omitempty"`
	Navigations []spec.Navigation `json:"navigations,omitempty"`

	Complete bool                     `json:"complete"`
	Metadata *spec.CompletionMetadata `json:"metadata,omitempty"`
}

func New(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		logger:   slog.Default(),
		defs:     map[string]*Definition{},
		sessions: sessionstore.New(),
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(rt); err != nil {
			return nil, err
		}
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	if rt.store == nil {
		rt.store = memstore.New()
	}
	if rt.text == nil {
		rt.text = keyTextResolver{}
	}
	if rt.orders == nil {
		return nil, fmt.Errorf("%w: an order provider is required", spec.ErrInvalidArgument)
	}
	if rt.refdata == nil {
		return nil, fmt.Errorf("%w: a reference-data provider is required", spec.ErrInvalidArgument)
	}
	return rt, nil
}

// keyTextResolver is the fallback TextResolver: it echoes the key so the
// engine never blocks on missing message catalogs.
type keyTextResolver struct{}

func (keyTextResolver) ResolveText(key string, _ any) string { return key }

// RegisterSkill adds a skill definition to the runtime registry.
func (r *Runtime) RegisterSkill(def *Definition) error {
	if err := def.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[def.ID]; ok {
		return errors.Join(spec.ErrSkillAlreadyExists, fmt.Errorf("skill: %s", def.ID))
	}
	r.defs[def.ID] = def
	return nil
}

func (r *Runtime) NewSession(ctx context.Context) (spec.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s := r.sessions.NewSession()
	return spec.SessionID(s.ID), nil
}

// CloseSession tears a session down: it drops the in-process state and
// every value cached for the session in the durable tier.
func (r *Runtime) CloseSession(ctx context.Context, id spec.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(string(id)) == "" {
		return nil
	}
	r.sessions.Delete(string(id))
	return r.store.DeleteSession(ctx, id)
}

// Session returns a convenience wrapper bound to a session ID.
func (r *Runtime) Session(id spec.SessionID) *Session {
	return &Session{rt: r, id: id}
}

// SetContextValue writes a conversation-context default (the lowest
// precedence tier of the session context cache), e.g. the order the user
// is currently viewing.
func (r *Runtime) SetContextValue(ctx context.Context, id spec.SessionID, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sess, err := r.mustGetSession(id)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal context value %q: %w", key, err)
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	sess.Context[key] = b
	return nil
}

// Activate starts a skill for the session: it builds the slots in flight,
// runs the skill's initialization handler, and immediately runs the
// post-commit orchestration so a ready order in context can short-circuit
// the lookup slots before anything is asked.
func (r *Runtime) Activate(ctx context.Context, id spec.SessionID, skillID string) (*TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	def := r.defs[skillID]
	r.mu.RUnlock()
	if def == nil {
		return nil, errors.Join(spec.ErrSkillNotFound, fmt.Errorf("skill: %s", skillID))
	}

	sess, err := r.mustGetSession(id)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	act := &sessionstore.Activation{
		SkillID: def.ID,
		Slots:   make(map[string]*spec.Slot, len(def.Slots)),
		Prev:    map[string]string{},
		Locals:  map[string][]byte{},
	}
	for _, ss := range def.Slots {
		act.Slots[ss.Name] = &spec.Slot{Name: ss.Name, Type: ss.Type}
		act.SlotOrder = append(act.SlotOrder, ss.Name)
	}
	sess.Active = act

	fl := &Flow{rt: r, sess: sess, act: act, def: def}

	if def.OnActivate != nil {
		if err := def.OnActivate(ctx, fl); err != nil {
			return nil, fmt.Errorf("activate skill %s: %w", def.ID, err)
		}
	}
	if err := fl.drain(ctx); err != nil {
		return nil, err
	}
	if err := r.runAfterCommit(ctx, fl); err != nil {
		return nil, err
	}
	return fl.result(), nil
}

// CommitSlot is the host's onSlotCommitted: it commits a user-supplied
// slot value, propagates the change through registered handlers, then
// runs the skill's post-commit orchestration.
func (r *Runtime) CommitSlot(ctx context.Context, id spec.SessionID, slotName string, value spec.SlotValue) (*TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := r.mustGetSession(id)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	act := sess.Active
	if act == nil {
		return nil, spec.ErrNoActiveSkill
	}

	r.mu.RLock()
	def := r.defs[act.SkillID]
	r.mu.RUnlock()
	if def == nil {
		return nil, errors.Join(spec.ErrSkillNotFound, fmt.Errorf("skill: %s", act.SkillID))
	}

	fl := &Flow{rt: r, sess: sess, act: act, def: def}
	if act.Complete {
		return fl.result(), nil
	}

	slot := act.Slots[slotName]
	if slot == nil {
		return nil, errors.Join(spec.ErrSlotNotFound, fmt.Errorf("slot: %s", slotName))
	}

	// New turn: previous turn's responses and navigations are spent.
	act.Responses = nil
	act.Navigations = nil

	slot.SetValue(value)
	fl.enqueue(slotName)
	if err := fl.drain(ctx); err != nil {
		return nil, err
	}
	if err := r.runAfterCommit(ctx, fl); err != nil {
		return nil, err
	}
	return fl.result(), nil
}

// IsComplete reports whether the active skill has finished, with its
// completion metadata.
func (r *Runtime) IsComplete(ctx context.Context, id spec.SessionID) (bool, *spec.CompletionMetadata, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	sess, err := r.mustGetSession(id)
	if err != nil {
		return false, nil, err
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	act := sess.Active
	if act == nil {
		return false, nil, spec.ErrNoActiveSkill
	}
	if !act.Complete {
		return false, nil, nil
	}
	meta := act.Metadata
	return true, &meta, nil
}

// runAfterCommit runs the skill's post-commit orchestration and settles
// any propagation it queued. Orchestration failures are collaborator
// lookup failures: they are logged, the turn ends awaiting more input,
// and nothing propagates to the host.
func (r *Runtime) runAfterCommit(ctx context.Context, fl *Flow) error {
	if fl.act.Complete || fl.def.AfterCommit == nil {
		return nil
	}
	if err := fl.def.AfterCommit(ctx, fl); err != nil {
		r.logger.Warn("post-commit orchestration failed",
			"skill", fl.def.ID, "session", fl.sess.ID, "err", err)
	}
	return fl.drain(ctx)
}

func (f *Flow) result() *TurnResult {
	res := &TurnResult{SkillID: f.act.SkillID}
	for _, name := range f.act.SlotOrder {
		res.Slots = append(res.Slots, *f.act.Slots[name].Clone())
	}
	res.Responses = append([]string(nil), f.act.Responses...)
	res.Navigations = append([]spec.Navigation(nil), f.act.Navigations...)
	res.Complete = f.act.Complete
	if f.act.Complete {
		meta := f.act.Metadata
		res.Metadata = &meta
	}
	return res
}

func (r *Runtime) mustGetSession(id spec.SessionID) (*sessionstore.Session, error) {
	sid := strings.TrimSpace(string(id))
	if sid == "" {
		return nil, spec.ErrSessionNotFound
	}
	s, ok := r.sessions.Get(sid)
	if !ok {
		return nil, spec.ErrSessionNotFound
	}
	return s, nil
}
