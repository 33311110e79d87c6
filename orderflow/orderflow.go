// Package orderflow is the shared order-lookup capability for order
// skills: adopting the current order from conversation context, looking
// an order up from its identifying slots, gating the requested
// modification on eligibility, and the two-phase post-commit
// orchestration that ties them together. Skills compose a Lookup into
// their definition instead of inheriting a base skill.
package orderflow

import (
	"context"
	"fmt"
	"slices"

	convoskills "github.com/convodesk/convoskills-go"
	"github.com/convodesk/convoskills-go/spec"
)

// Slot names shared by all order skills.
const (
	SlotOrderNo        = "OrderNo"
	SlotEnterpriseCode = "EnterpriseCode"
)

// AdoptFunc runs after the current order has been adopted and the order
// slots pre-filled; skills use it to reset and prompt their confirmation
// slot.
type AdoptFunc func(ctx context.Context, fl *convoskills.Flow, order spec.Order) error

type Config struct {
	// ModificationType is the modification the owning skill performs
	// (e.g. CANCEL). Eligibility is gated on it.
	ModificationType string

	OnAdopt AdoptFunc
}

type Lookup struct {
	cfg Config
}

func New(cfg Config) *Lookup {
	return &Lookup{cfg: cfg}
}

// Slots returns the order-identifying slot specs shared by order skills.
func Slots() []convoskills.SlotSpec {
	return []convoskills.SlotSpec{
		{Name: SlotOrderNo, Type: spec.SlotTypeString},
		{Name: SlotEnterpriseCode, Type: spec.SlotTypeString},
	}
}

// CanUseCurrentOrder resolves the use-current-order flag through the
// session context tiers. A skill only considers the ambient order when
// the flag is set.
func (l *Lookup) CanUseCurrentOrder(ctx context.Context, fl *convoskills.Flow) bool {
	var use bool
	ok, err := fl.ResolveJSON(ctx, convoskills.LocalKeyUseCurrentOrder, &use)
	if err != nil {
		fl.Logger().Warn("resolve use-current-order flag failed", "err", err)
		return false
	}
	return ok && use
}

// InitSlots is the shared part of skill initialization. It must run
// before any slot is asked: unless the conversation says to use the
// ambient order, that order is dropped so it cannot short-circuit the
// lookup slots.
func (l *Lookup) InitSlots(ctx context.Context, fl *convoskills.Flow) error {
	if !l.CanUseCurrentOrder(ctx, fl) {
		fl.DropCurrentOrder()
	}
	return nil
}

// AfterCommit is the two-phase post-commit orchestration: try to process
// an order already in context; if none, fall back to the lookup flow and
// then try once more. The retry is bounded to one extra attempt per
// turn; if it also finds no order, the turn ends awaiting more input.
func (l *Lookup) AfterCommit(ctx context.Context, fl *convoskills.Flow) error {
	done, err := l.processCurrentOrder(ctx, fl)
	if err != nil || done {
		return err
	}
	if err := l.resolveOrder(ctx, fl); err != nil {
		return err
	}
	_, err = l.processCurrentOrder(ctx, fl)
	return err
}

// processCurrentOrder adopts the order from context when one is present:
// on eligibility it pre-fills the order-identifying slots, records the
// use-current-order flag and hands off to the skill's OnAdopt; on
// ineligibility it drops the order, tells the user and completes the
// skill. Returns false when no order is in context.
func (l *Lookup) processCurrentOrder(ctx context.Context, fl *convoskills.Flow) (bool, error) {
	order, ok := fl.CurrentOrder()
	if !ok {
		return false, nil
	}

	allowed, err := l.IsModificationAllowed(ctx, fl, order)
	if err != nil {
		return false, err
	}
	if !allowed {
		fl.DropCurrentOrder()
		fl.AddTextResponse(fl.Text("actionResponses.notAllowed", order))
		notAllowed := false
		fl.Complete(spec.CompletionMetadata{ActionPerformed: false, ModificationAllowed: &notAllowed})
		return true, nil
	}

	if err := fl.SetLocal(convoskills.LocalKeyUseCurrentOrder, true); err != nil {
		return false, err
	}
	if err := fl.SetSlotString(SlotOrderNo, order.OrderNo); err != nil {
		return false, err
	}
	if err := fl.SetSlotString(SlotEnterpriseCode, order.EnterpriseCode); err != nil {
		return false, err
	}
	if l.cfg.OnAdopt != nil {
		if err := l.cfg.OnAdopt(ctx, fl, order); err != nil {
			return false, err
		}
	}
	return true, nil
}

// IsModificationAllowed gates the skill's modification type against the
// order. When the order record carries an explicit allowed-modification
// list the membership test is local; otherwise the provider is asked for
// a live check. The result is memoized per (type, orderHeaderKey) in the
// activation locals only: order state may change between activations, so
// the next activation re-evaluates.
func (l *Lookup) IsModificationAllowed(ctx context.Context, fl *convoskills.Flow, order spec.Order) (bool, error) {
	memoKey := l.cfg.ModificationType + "-" + order.OrderHeaderKey
	var allowed bool
	if ok, err := fl.LocalJSON(memoKey, &allowed); err != nil {
		return false, err
	} else if ok {
		return allowed, nil
	}

	if len(order.AllowedModifications) > 0 {
		allowed = slices.Contains(order.AllowedModifications, l.cfg.ModificationType)
	} else {
		var err error
		allowed, err = fl.Orders().CheckModificationAllowed(ctx, l.cfg.ModificationType, order.OrderHeaderKey)
		if err != nil {
			// Not memoized: the next turn re-checks.
			return false, fmt.Errorf("modification check for order %s: %w", order.OrderHeaderKey, err)
		}
	}
	if err := fl.SetLocal(memoKey, allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// resolveOrder is the base lookup behavior: once both identifying slots
// are filled, find the order, enrich its allowed-modification list when
// the record has none, and place it into conversation context. Lookup
// failures are treated as no data; a later turn can retry.
func (l *Lookup) resolveOrder(ctx context.Context, fl *convoskills.Flow) error {
	orderNoSlot := fl.Slot(SlotOrderNo)
	enterpriseSlot := fl.Slot(SlotEnterpriseCode)
	if orderNoSlot == nil || enterpriseSlot == nil {
		return fmt.Errorf("%w: order skills require %s and %s slots", spec.ErrSlotNotFound, SlotOrderNo, SlotEnterpriseCode)
	}
	orderNo := orderNoSlot.Normalized()
	enterprise := enterpriseSlot.Normalized()
	if orderNo == "" || enterprise == "" {
		return nil
	}

	order, err := fl.Orders().FindOrder(ctx, spec.OrderCriteria{OrderNo: orderNo, EnterpriseCode: enterprise})
	if err != nil {
		fl.Logger().Warn("order lookup failed",
			"orderNo", orderNo, "enterpriseCode", enterprise, "err", err)
		return nil
	}
	if order == nil {
		return nil
	}

	if order.AllowedModifications == nil {
		mods, err := fl.Orders().AllowedModifications(ctx, *order)
		if err != nil {
			fl.Logger().Warn("allowed-modifications lookup failed",
				"orderHeaderKey", order.OrderHeaderKey, "err", err)
		} else {
			order.AllowedModifications = mods
		}
	}
	return fl.SetCurrentOrder(*order)
}
