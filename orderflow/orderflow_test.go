package orderflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	convoskills "github.com/convodesk/convoskills-go"
	"github.com/convodesk/convoskills-go/internal/inmem"
	"github.com/convodesk/convoskills-go/orderflow"
	"github.com/convodesk/convoskills-go/spec"
)

const modType = "CANCEL"

type harness struct {
	rt     *convoskills.Runtime
	orders *inmem.Orders
	id     spec.SessionID
	adopts int
}

// newHarness registers a minimal skill around a Lookup: the order slots
// plus a confirmation slot that OnAdopt resets, as the order skills do.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{orders: inmem.NewOrders()}

	rt, err := convoskills.New(
		convoskills.WithOrderProvider(h.orders),
		convoskills.WithReferenceDataProvider(inmem.NewReferenceData()),
	)
	require.NoError(t, err)
	h.rt = rt

	lookup := orderflow.New(orderflow.Config{
		ModificationType: modType,
		OnAdopt: func(ctx context.Context, fl *convoskills.Flow, order spec.Order) error {
			h.adopts++
			return fl.SetSlotString("Confirm", "")
		},
	})
	require.NoError(t, rt.RegisterSkill(&convoskills.Definition{
		ID: "lookup-only",
		Slots: append(orderflow.Slots(),
			convoskills.SlotSpec{Name: "Confirm", Type: spec.SlotTypeConfirmation},
		),
		OnActivate: func(ctx context.Context, fl *convoskills.Flow) error {
			return lookup.InitSlots(ctx, fl)
		},
		AfterCommit: lookup.AfterCommit,
	}))

	id, err := rt.NewSession(context.Background())
	require.NoError(t, err)
	h.id = id
	return h
}

func (h *harness) activate(t *testing.T) *convoskills.TurnResult {
	t.Helper()
	res, err := h.rt.Activate(context.Background(), h.id, "lookup-only")
	require.NoError(t, err)
	return res
}

func (h *harness) commit(t *testing.T, slot, value string) *convoskills.TurnResult {
	t.Helper()
	res, err := h.rt.CommitSlot(context.Background(), h.id, slot, spec.SlotValue{Raw: value, Normalized: value})
	require.NoError(t, err)
	return res
}

func slotByName(t *testing.T, res *convoskills.TurnResult, name string) spec.Slot {
	t.Helper()
	for _, s := range res.Slots {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("slot %s not in turn result", name)
	return spec.Slot{}
}

func TestAfterCommit_LookupThenAdoptSameTurn(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.orders.Add(spec.Order{
		OrderNo:              "Y100",
		OrderHeaderKey:       "OHK-100",
		EnterpriseCode:       "acme",
		AllowedModifications: []string{modType},
	})
	h.activate(t)

	res := h.commit(t, orderflow.SlotOrderNo, "Y100")
	require.Equal(t, 0, h.adopts, "no adoption until the order is identified")
	require.False(t, res.Complete)

	// Both identifying slots known: the same turn finds the order, places
	// it in context and adopts it.
	res = h.commit(t, orderflow.SlotEnterpriseCode, "acme")
	require.Equal(t, 1, h.adopts)
	require.False(t, res.Complete)
	orderNo := slotByName(t, res, orderflow.SlotOrderNo)
	assert.Equal(t, "Y100", orderNo.Normalized())
}

func TestAfterCommit_OrderNotFoundAwaitsInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)

	h.commit(t, orderflow.SlotOrderNo, "NOPE")
	res := h.commit(t, orderflow.SlotEnterpriseCode, "acme")
	assert.Equal(t, 0, h.adopts)
	assert.False(t, res.Complete)
}

func TestAfterCommit_LookupFailureIsRetriable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.orders.Add(spec.Order{
		OrderNo:              "Y100",
		OrderHeaderKey:       "OHK-100",
		EnterpriseCode:       "acme",
		AllowedModifications: []string{modType},
	})
	h.orders.FailFind(errors.New("oms timeout"))
	h.activate(t)

	h.commit(t, orderflow.SlotOrderNo, "Y100")
	res := h.commit(t, orderflow.SlotEnterpriseCode, "acme")
	require.Equal(t, 0, h.adopts)
	require.False(t, res.Complete)

	// Next turn: the provider recovered; the post-commit orchestration
	// retries the lookup from the already-filled slots.
	h.orders.FailFind(nil)
	res = h.commit(t, orderflow.SlotOrderNo, "Y100")
	assert.Equal(t, 1, h.adopts)
	assert.False(t, res.Complete)
}

func TestActivate_AdoptsEligibleOrderFromContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	order := spec.Order{
		OrderNo:              "Y200",
		OrderHeaderKey:       "OHK-200",
		EnterpriseCode:       "acme",
		AllowedModifications: []string{modType, "RETURN"},
	}
	require.NoError(t, h.rt.Session(h.id).SetCurrentOrder(ctx, order))
	require.NoError(t, h.rt.SetContextValue(ctx, h.id, convoskills.LocalKeyUseCurrentOrder, true))

	res := h.activate(t)
	require.Equal(t, 1, h.adopts)
	require.False(t, res.Complete)
	orderNo := slotByName(t, res, orderflow.SlotOrderNo)
	assert.Equal(t, "Y200", orderNo.Normalized())
	enterprise := slotByName(t, res, orderflow.SlotEnterpriseCode)
	assert.Equal(t, "acme", enterprise.Normalized())
}

func TestActivate_DropsContextOrderWithoutFlag(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Session(h.id).SetCurrentOrder(ctx, spec.Order{
		OrderNo:              "Y200",
		OrderHeaderKey:       "OHK-200",
		EnterpriseCode:       "acme",
		AllowedModifications: []string{modType},
	}))

	res := h.activate(t)
	assert.Equal(t, 0, h.adopts)
	assert.False(t, res.Complete)
	orderNo := slotByName(t, res, orderflow.SlotOrderNo)
	assert.Empty(t, orderNo.Normalized())
}

func TestActivate_IneligibleOrderCompletesWithMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Session(h.id).SetCurrentOrder(ctx, spec.Order{
		OrderNo:              "Y300",
		OrderHeaderKey:       "OHK-300",
		EnterpriseCode:       "acme",
		AllowedModifications: []string{"RETURN"},
	}))
	require.NoError(t, h.rt.SetContextValue(ctx, h.id, convoskills.LocalKeyUseCurrentOrder, true))

	res := h.activate(t)
	require.True(t, res.Complete)
	require.NotNil(t, res.Metadata)
	assert.False(t, res.Metadata.ActionPerformed)
	require.NotNil(t, res.Metadata.ModificationAllowed)
	assert.False(t, *res.Metadata.ModificationAllowed)
	assert.Equal(t, 0, h.adopts)
	assert.NotEmpty(t, res.Responses, "the user is told the action is not allowed")

	// The order was dropped: a fresh activation starts from empty slots.
	res = h.activate(t)
	assert.False(t, res.Complete)
	orderNo := slotByName(t, res, orderflow.SlotOrderNo)
	assert.Empty(t, orderNo.Normalized())
}

func TestIsModificationAllowed_LivePathMemoized(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	// No allowed-modification list on the record: the gate must ask the
	// provider, once.
	require.NoError(t, h.rt.Session(h.id).SetCurrentOrder(ctx, spec.Order{
		OrderNo:        "Y400",
		OrderHeaderKey: "OHK-400",
		EnterpriseCode: "acme",
	}))
	require.NoError(t, h.rt.SetContextValue(ctx, h.id, convoskills.LocalKeyUseCurrentOrder, true))
	h.orders.SetAllowed(modType, "OHK-400", true)

	h.activate(t)
	require.Equal(t, 1, h.adopts)
	require.Equal(t, 1, h.orders.CheckCalls(modType, "OHK-400"))

	// Later turns re-run the post-commit orchestration; the memoized
	// verdict answers without another provider call.
	h.commit(t, "Confirm", spec.ConfirmationNo)
	assert.Equal(t, 1, h.orders.CheckCalls(modType, "OHK-400"))

	// A fresh activation starts a new memo scope.
	h.activate(t)
	assert.Equal(t, 2, h.orders.CheckCalls(modType, "OHK-400"))
}
