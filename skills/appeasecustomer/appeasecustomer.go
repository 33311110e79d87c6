// Package appeasecustomer implements the customer-appeasement skill:
// identify an order, collect an appeasement reason from enterprise
// reference data, pick a compensation option from a fixed list, confirm,
// and perform the APPEASE_CUSTOMER modification.
package appeasecustomer

import (
	"context"
	"fmt"

	convoskills "github.com/convodesk/convoskills-go"
	"github.com/convodesk/convoskills-go/orderflow"
	"github.com/convodesk/convoskills-go/spec"
)

const (
	SkillID = "appease-customer"

	SlotAppeasementReason = "AppeasementReason"
	SlotAppeasementOption = "AppeasementOption"
	SlotConfirmAppease    = "ConfirmAppeaseAction"

	ModificationTypeAppease = "APPEASE_CUSTOMER"

	// CategoryAppeasementReason is the reference-data category holding the
	// per-enterprise appeasement reason codes.
	CategoryAppeasementReason = "YCD_APPEASEMENT_RSN"
)

// appeasementOptions is the static compensation catalog. It does not vary
// by enterprise.
var appeasementOptions = []spec.EntityOption{
	{Label: "Coupon", Value: "COUPON"},
	{Label: "Partial Refund", Value: "PARTIAL_REFUND"},
	{Label: "Issue Gift Card", Value: "ISSUE_GIFT_CARD"},
}

// Options returns the static appeasement compensation options.
func Options() []spec.EntityOption {
	out := make([]spec.EntityOption, len(appeasementOptions))
	copy(out, appeasementOptions)
	return out
}

type skill struct {
	lookup *orderflow.Lookup
}

// New builds the appease-customer skill definition.
func New() *convoskills.Definition {
	s := &skill{}
	s.lookup = orderflow.New(orderflow.Config{
		ModificationType: ModificationTypeAppease,
		OnAdopt:          s.onAdopt,
	})
	return &convoskills.Definition{
		ID: SkillID,
		Slots: append(orderflow.Slots(),
			convoskills.SlotSpec{Name: SlotAppeasementReason, Type: spec.SlotTypeEntity},
			convoskills.SlotSpec{Name: SlotAppeasementOption, Type: spec.SlotTypeEntity},
			convoskills.SlotSpec{Name: SlotConfirmAppease, Type: spec.SlotTypeConfirmation},
		),
		OnActivate: s.onActivate,
		OnSlotChange: map[string]convoskills.ChangeHandler{
			orderflow.SlotEnterpriseCode: s.onEnterpriseCodeChange,
			SlotAppeasementReason:        s.onReasonChange,
			SlotAppeasementOption:        s.onOptionChange,
			SlotConfirmAppease:           s.onConfirm,
		},
		AfterCommit: s.lookup.AfterCommit,
	}
}

func (s *skill) onActivate(ctx context.Context, fl *convoskills.Flow) error {
	if err := s.lookup.InitSlots(ctx, fl); err != nil {
		return err
	}
	fl.Slot(SlotAppeasementReason).SetSchema(nil)
	fl.Slot(SlotAppeasementOption).SetSchema(withSynonyms(appeasementOptions))
	return nil
}

func (s *skill) onAdopt(ctx context.Context, fl *convoskills.Flow, order spec.Order) error {
	if err := fl.SetSlotString(SlotConfirmAppease, ""); err != nil {
		return err
	}
	return fl.SetSlotPrompt(SlotConfirmAppease, "", order)
}

func (s *skill) onEnterpriseCodeChange(ctx context.Context, fl *convoskills.Flow, committed spec.Slot, _ *spec.Slot) error {
	opts, err := fl.Options(ctx, CategoryAppeasementReason, committed.Normalized())
	if err != nil {
		return err
	}
	fl.Slot(SlotAppeasementReason).SetSchema(withSynonyms(opts))
	return nil
}

func (s *skill) onReasonChange(ctx context.Context, fl *convoskills.Flow, committed spec.Slot, inFlight *spec.Slot) error {
	opts, err := s.reasonList(ctx, fl)
	if err != nil {
		return err
	}
	return canonicalize(fl, committed, inFlight, opts, "appeasement reason")
}

// onOptionChange validates the compensation choice against the static
// catalog. The option must hold a validated value before finalize will
// perform the modification.
func (s *skill) onOptionChange(ctx context.Context, fl *convoskills.Flow, committed spec.Slot, inFlight *spec.Slot) error {
	return canonicalize(fl, committed, inFlight, appeasementOptions, "appeasement option")
}

// onConfirm finalizes the skill. An affirmative confirmation requires a
// validated compensation option; without one the confirmation is
// discarded and the user is asked for the option instead of finalizing
// with an incomplete request. Cleanup runs on every finalize path.
func (s *skill) onConfirm(ctx context.Context, fl *convoskills.Flow, committed spec.Slot, inFlight *spec.Slot) error {
	order, _ := fl.CurrentOrder()

	if committed.Normalized() == spec.ConfirmationYes && !fl.Slot(SlotAppeasementOption).Filled() {
		inFlight.Clear()
		fl.AddTextResponse(fl.Text("actionResponses.appeasementOptionRequired", order))
		return nil
	}

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

	reason := selected(fl.Slot(SlotAppeasementReason))
	option := selected(fl.Slot(SlotAppeasementOption))
	req := spec.ModificationRequest{
		OrderHeaderKey:   order.OrderHeaderKey,
		ModificationType: ModificationTypeAppease,
		ReasonCode:       reason.Value,
		ReasonText:       reason.Label,
		Note:             fmt.Sprintf("Customer appeased with %s due to reason: %s", option.Label, reason.Label),
	}
	if err := fl.Orders().PerformModification(ctx, req); err != nil {
		fl.Logger().Error("customer appeasement failed",
			"session", fl.SessionID(), "orderHeaderKey", order.OrderHeaderKey, "err", err)
		msg := fl.Text("actionResponses.appeasementFailed", order)
		fl.AddTextResponse(msg)
		meta = spec.CompletionMetadata{ActionPerformed: false, Failed: true, Message: msg}
		return nil
	}

	fl.AddTextResponse(fl.Text("actionResponses.appeasementSuccessful", order))
	meta = spec.CompletionMetadata{ActionPerformed: true}
	return nil
}

func (s *skill) reasonList(ctx context.Context, fl *convoskills.Flow) ([]spec.EntityOption, error) {
	enterprise := fl.Slot(orderflow.SlotEnterpriseCode).Normalized()
	return fl.Options(ctx, CategoryAppeasementReason, enterprise)
}

// canonicalize validates a committed entity value against its option list,
// rewriting a match to its label/code pair or rejecting with a slot error.
func canonicalize(fl *convoskills.Flow, committed spec.Slot, inFlight *spec.Slot, opts []spec.EntityOption, what string) error {
	raw := committed.Normalized()
	sel, ok := convoskills.MatchOption(opts, raw)
	if !ok {
		fl.Logger().Info("rejected "+what, "session", fl.SessionID(), "value", raw)
		inFlight.SetError(spec.SlotErrorKindInvalid, map[string]any{"value": raw})
		return nil
	}
	inFlight.SetValue(spec.SlotValue{Raw: sel.Label, Normalized: sel.Value})
	return nil
}

func selected(slot *spec.Slot) spec.EntityOption {
	sel := spec.EntityOption{Value: slot.Normalized()}
	if slot.Value != nil {
		sel.Label = slot.Value.Raw
	}
	return sel
}

func withSynonyms(opts []spec.EntityOption) []spec.EntityOption {
	out := make([]spec.EntityOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, spec.EntityOption{
			Label:    o.Label,
			Value:    o.Value,
			Synonyms: []string{o.Label, o.Value},
		})
	}
	return out
}
