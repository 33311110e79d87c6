package convoskills

import (
	"context"
	"fmt"

	"github.com/convodesk/convoskills-go/spec"
)

// maxPropagationSteps bounds handler dispatch within one turn. A chain of
// dependent slots is short; hitting the bound means a handler cycle.
const maxPropagationSteps = 32

func (f *Flow) enqueue(name string) {
	f.pending = append(f.pending, name)
}

// drain dispatches change handlers for queued slots in FIFO order until
// the queue is quiet. Dispatch is edge-triggered: a handler runs only
// when the slot's committed value is non-empty and differs from the value
// committed on the previous turn. Handlers may enqueue further changes by
// rewriting other slots; a handler completes (including any awaited
// external calls) before the next queued step runs.
func (f *Flow) drain(ctx context.Context) error {
	steps := 0
	for len(f.pending) > 0 {
		if f.act.Complete {
			f.pending = nil
			return nil
		}
		steps++
		if steps > maxPropagationSteps {
			f.pending = nil
			return fmt.Errorf("%w: skill %s", spec.ErrPropagationDepth, f.act.SkillID)
		}

		name := f.pending[0]
		f.pending = f.pending[1:]

		slot := f.act.Slots[name]
		if slot == nil {
			continue
		}
		norm := slot.Normalized()
		if norm == "" || norm == f.act.Prev[name] {
			f.act.Prev[name] = norm
			continue
		}

		if h := f.def.OnSlotChange[name]; h != nil {
			committed := *slot.Clone()
			if err := h(ctx, f, committed, slot); err != nil {
				return fmt.Errorf("change handler for slot %s: %w", name, err)
			}
		}
		// The handler may have rewritten or rejected the in-flight value;
		// the edge baseline is whatever actually ended up committed.
		f.act.Prev[name] = slot.Normalized()
	}
	return nil
}
