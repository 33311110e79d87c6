// Package integration exercises a whole conversation end to end: real
// engine, real skill, YAML message catalog, in-memory providers. The
// transcript is compared byte-for-byte against a golden file; regenerate
// with go test ./internal/integration -update.
package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	convoskills "github.com/convodesk/convoskills-go"
	"github.com/convodesk/convoskills-go/internal/inmem"
	"github.com/convodesk/convoskills-go/orderflow"
	"github.com/convodesk/convoskills-go/skills/cancelorder"
	"github.com/convodesk/convoskills-go/spec"
	"github.com/convodesk/convoskills-go/yamlprompts"
)

type turn struct {
	Label  string                  `json:"label"`
	Result *convoskills.TurnResult `json:"result"`
}

type transcript struct {
	Turns []turn `json:"turns"`
}

func TestCancelConversation_Golden(t *testing.T) {
	ctx := context.Background()

	refdata := inmem.NewReferenceData()
	refdata.Add(cancelorder.CategoryCancelReason, "acme",
		spec.ReferenceOption{CodeValue: "CUST_REQ", CodeShortDescription: "Customer Request"},
		spec.ReferenceOption{CodeValue: "DAMAGED", CodeShortDescription: "Damaged Item"},
	)
	orders := inmem.NewOrders()
	orders.Add(spec.Order{
		OrderNo:              "Y100",
		OrderHeaderKey:       "OHK-100",
		EnterpriseCode:       "acme",
		AllowedModifications: []string{cancelorder.ModificationTypeCancel},
	})

	text, err := yamlprompts.Load("testdata/messages.yaml")
	require.NoError(t, err)

	rt, err := convoskills.New(
		convoskills.WithOrderProvider(orders),
		convoskills.WithReferenceDataProvider(refdata),
		convoskills.WithTextResolver(text),
	)
	require.NoError(t, err)
	require.NoError(t, rt.RegisterSkill(cancelorder.New()))

	id, err := rt.NewSession(ctx)
	require.NoError(t, err)
	sess := rt.Session(id)

	var tr transcript
	record := func(label string, res *convoskills.TurnResult, err error) {
		require.NoError(t, err)
		tr.Turns = append(tr.Turns, turn{Label: label, Result: res})
	}

	res, err := sess.Activate(ctx, cancelorder.SkillID)
	record("activate", res, err)

	res, err = sess.CommitSlotString(ctx, orderflow.SlotOrderNo, "Y100")
	record("commit OrderNo", res, err)

	res, err = sess.CommitSlotString(ctx, orderflow.SlotEnterpriseCode, "acme")
	record("commit EnterpriseCode", res, err)

	res, err = sess.CommitSlotString(ctx, cancelorder.SlotCancellationReason, "customer request")
	record("commit CancellationReason", res, err)

	res, err = sess.CommitSlotString(ctx, cancelorder.SlotConfirmCancel, spec.ConfirmationYes)
	record("commit ConfirmCancelAction", res, err)

	require.Len(t, orders.Performed(), 1)

	b, err := json.MarshalIndent(&tr, "", "  ")
	require.NoError(t, err)
	b = append(b, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "cancel_conversation", b)
}
