// Package cancelorder implements the order-cancellation skill: identify
// an order, collect a cancellation reason from enterprise-specific
// reference data, confirm, and perform the CANCEL modification.
package cancelorder

import (
	"context"
	"fmt"

	convoskills "github.com/convodesk/convoskills-go"
	"github.com/convodesk/convoskills-go/orderflow"
	"github.com/convodesk/convoskills-go/spec"
)

const (
	SkillID = "cancel-order"

	SlotCancellationReason = "CancellationReason"
	SlotConfirmCancel      = "ConfirmCancelAction"

	ModificationTypeCancel = "CANCEL"

	// CategoryCancelReason is the reference-data category holding the
	// per-enterprise cancellation reason codes.
	CategoryCancelReason = "YCD_CANCEL_REASON"
)

type skill struct {
	lookup *orderflow.Lookup
}

// New builds the cancel-order skill definition.
func New() *convoskills.Definition {
	s := &skill{}
	s.lookup = orderflow.New(orderflow.Config{
		ModificationType: ModificationTypeCancel,
		OnAdopt:          s.onAdopt,
	})
	return &convoskills.Definition{
		ID: SkillID,
		Slots: append(orderflow.Slots(),
			convoskills.SlotSpec{Name: SlotCancellationReason, Type: spec.SlotTypeEntity},
			convoskills.SlotSpec{Name: SlotConfirmCancel, Type: spec.SlotTypeConfirmation},
		),
		OnActivate: s.onActivate,
		OnSlotChange: map[string]convoskills.ChangeHandler{
			orderflow.SlotEnterpriseCode: s.onEnterpriseCodeChange,
			SlotCancellationReason:       s.onReasonChange,
			SlotConfirmCancel:            s.onConfirm,
		},
		AfterCommit: s.lookup.AfterCommit,
	}
}

func (s *skill) onActivate(ctx context.Context, fl *convoskills.Flow) error {
	if err := s.lookup.InitSlots(ctx, fl); err != nil {
		return err
	}
	// The reason list depends on the enterprise code; until that slot is
	// known the reason slot has no options.
	fl.Slot(SlotCancellationReason).SetSchema(nil)
	return nil
}

func (s *skill) onAdopt(ctx context.Context, fl *convoskills.Flow, order spec.Order) error {
	if err := fl.SetSlotString(SlotConfirmCancel, ""); err != nil {
		return err
	}
	return fl.SetSlotPrompt(SlotConfirmCancel, "", order)
}

// onEnterpriseCodeChange loads the enterprise's cancellation reasons and
// installs them as the reason slot's schema.
func (s *skill) onEnterpriseCodeChange(ctx context.Context, fl *convoskills.Flow, committed spec.Slot, _ *spec.Slot) error {
	opts, err := fl.Options(ctx, CategoryCancelReason, committed.Normalized())
	if err != nil {
		return err
	}
	schema := make([]spec.EntityOption, 0, len(opts))
	for _, o := range opts {
		schema = append(schema, spec.EntityOption{
			Label:    o.Label,
			Value:    o.Value,
			Synonyms: []string{o.Label, o.Value},
		})
	}
	fl.Slot(SlotCancellationReason).SetSchema(schema)
	return nil
}

// onReasonChange validates the committed reason against the current
// enterprise's reason list, canonicalizing a label match to its code.
// Unknown reasons are rejected with a slot error, clearing the value so
// the user is re-asked.
func (s *skill) onReasonChange(ctx context.Context, fl *convoskills.Flow, committed spec.Slot, inFlight *spec.Slot) error {
	opts, err := s.reasonList(ctx, fl)
	if err != nil {
		return err
	}
	raw := committed.Normalized()
	sel, ok := convoskills.MatchOption(opts, raw)
	if !ok {
		fl.Logger().Info("rejected cancellation reason", "session", fl.SessionID(), "value", raw)
		inFlight.SetError(spec.SlotErrorKindInvalid, map[string]any{"value": raw})
		return nil
	}
	inFlight.SetValue(spec.SlotValue{Raw: sel.Label, Normalized: sel.Value})
	return nil
}

// onConfirm finalizes the skill. Cleanup — navigating back to order
// details, dropping the order from context, clearing the adoption flag
// and completing the activation — runs on every exit path, whether the
// cancellation succeeded, failed, or was declined.
func (s *skill) onConfirm(ctx context.Context, fl *convoskills.Flow, committed spec.Slot, _ *spec.Slot) error {
	order, _ := fl.CurrentOrder()
	meta := spec.CompletionMetadata{}
	defer func() {
		fl.GotoOrderDetails(order)
		fl.DropCurrentOrder()
		fl.DeleteLocal(convoskills.LocalKeyUseCurrentOrder)
		fl.Complete(meta)
	}()

	if committed.Normalized() != spec.ConfirmationYes {
		fl.AddTextResponse(fl.Text("actionResponses.actionCancelled", order))
		meta = spec.CompletionMetadata{ActionPerformed: false, UserCancelled: true}
		return nil
	}

	reason := s.selectedReason(ctx, fl)
	req := spec.ModificationRequest{
		OrderHeaderKey:   order.OrderHeaderKey,
		ModificationType: ModificationTypeCancel,
		ReasonCode:       reason.Value,
		ReasonText:       reason.Label,
		Note:             fmt.Sprintf("The entire order was canceled due to reason: %s", reason.Label),
	}
	if err := fl.Orders().PerformModification(ctx, req); err != nil {
		fl.Logger().Error("order cancellation failed",
			"session", fl.SessionID(), "orderHeaderKey", order.OrderHeaderKey, "err", err)
		msg := fl.Text("actionResponses.cancellationFailed", order)
		fl.AddTextResponse(msg)
		meta = spec.CompletionMetadata{ActionPerformed: false, Failed: true, Message: msg}
		return nil
	}

	fl.AddTextResponse(fl.Text("actionResponses.cancellationSuccessful", order))
	meta = spec.CompletionMetadata{ActionPerformed: true}
	return nil
}

func (s *skill) reasonList(ctx context.Context, fl *convoskills.Flow) ([]spec.EntityOption, error) {
	enterprise := fl.Slot(orderflow.SlotEnterpriseCode).Normalized()
	return fl.Options(ctx, CategoryCancelReason, enterprise)
}

// selectedReason recovers the label/code pair for the committed reason.
// The slot already holds both after validation; the list lookup keeps the
// label current if the catalog rewrote it.
func (s *skill) selectedReason(ctx context.Context, fl *convoskills.Flow) spec.EntityOption {
	slot := fl.Slot(SlotCancellationReason)
	sel := spec.EntityOption{Value: slot.Normalized()}
	if slot.Value != nil {
		sel.Label = slot.Value.Raw
	}
	opts, err := s.reasonList(ctx, fl)
	if err != nil {
		return sel
	}
	for _, o := range opts {
		if o.Value == sel.Value {
			return o
		}
	}
	return sel
}
