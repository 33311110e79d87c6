package convoskills

import (
	"context"
	"fmt"
	"strings"

	"github.com/convodesk/convoskills-go/spec"
)

// ActivateFunc runs once per skill activation, before any user-driven
// change. It typically resets dependent slot schemas and decides whether
// to adopt or drop the ambient current-order context.
type ActivateFunc func(ctx context.Context, fl *Flow) error

// ChangeHandler reacts to an edge-triggered slot change. committed is a
// snapshot of the newly committed slot; inFlight is the live slot whose
// value is pending for the current turn. The handler may rewrite other
// slots' schemas or values, and may reject inFlight's own value by
// setting an error (which clears the value, signalling a re-prompt).
//
// Handlers must be idempotent: the engine may call a handler more than
// once for the same logical change.
type ChangeHandler func(ctx context.Context, fl *Flow, committed spec.Slot, inFlight *spec.Slot) error

// AfterCommitFunc runs after each turn's slot commitment, once
// propagation has settled. Skills use it for post-commit orchestration
// such as adopting an order from context.
type AfterCommitFunc func(ctx context.Context, fl *Flow) error

// SlotSpec declares one slot of a skill.
type SlotSpec struct {
	Name string
	Type spec.SlotType
}

// Definition declares a skill: its slots and handlers. Change handlers
// are an explicit mapping from slot name to function, dispatched by the
// engine; at most one handler per slot.
type Definition struct {
	ID    string
	Slots []SlotSpec

	OnActivate   ActivateFunc
	OnSlotChange map[string]ChangeHandler
	AfterCommit  AfterCommitFunc
}

func (d *Definition) validate() error {
	if d == nil || strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: skill id is required", spec.ErrInvalidArgument)
	}
	if len(d.Slots) == 0 {
		return fmt.Errorf("%w: skill %q declares no slots", spec.ErrInvalidArgument, d.ID)
	}
	seen := map[string]struct{}{}
	for _, s := range d.Slots {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("%w: skill %q has a slot with an empty name", spec.ErrInvalidArgument, d.ID)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: skill %q declares slot %q twice", spec.ErrInvalidArgument, d.ID, name)
		}
		seen[name] = struct{}{}
	}
	for name := range d.OnSlotChange {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("%w: skill %q registers a change handler for unknown slot %q", spec.ErrInvalidArgument, d.ID, name)
		}
	}
	return nil
}
