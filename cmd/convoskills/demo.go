package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	convoskills "github.com/convodesk/convoskills-go"
	"github.com/convodesk/convoskills-go/internal/inmem"
	"github.com/convodesk/convoskills-go/orderflow"
	"github.com/convodesk/convoskills-go/skills/appeasecustomer"
	"github.com/convodesk/convoskills-go/skills/cancelorder"
	"github.com/convodesk/convoskills-go/spec"
	"github.com/convodesk/convoskills-go/sqlitestore"
	"github.com/convodesk/convoskills-go/yamlprompts"
)

func newDemoCmd(opts *rootOptions) *cobra.Command {
	var decline bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted cancel-order conversation against in-memory providers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, opts, decline)
		},
	}
	cmd.Flags().BoolVar(&decline, "decline", false, "answer no at the confirmation step")
	return cmd
}

func buildRuntime(opts *rootOptions) (*convoskills.Runtime, *inmem.Orders, func() error, error) {
	cleanup := func() error { return nil }

	refdata := inmem.NewReferenceData()
	refdata.Add(cancelorder.CategoryCancelReason, "acme",
		spec.ReferenceOption{CodeValue: "CUST_REQ", CodeShortDescription: "Customer Request"},
		spec.ReferenceOption{CodeValue: "DAMAGED", CodeShortDescription: "Damaged Item"},
	)
	refdata.Add(appeasecustomer.CategoryAppeasementReason, "acme",
		spec.ReferenceOption{CodeValue: "LATE_SHIP", CodeShortDescription: "Late Shipment"},
	)
	orders := inmem.NewOrders()
	orders.Add(spec.Order{
		OrderNo:        "Y100",
		OrderHeaderKey: "OHK-100",
		EnterpriseCode: "acme",
		AllowedModifications: []string{
			cancelorder.ModificationTypeCancel,
			appeasecustomer.ModificationTypeAppease,
		},
	})

	rtOpts := []convoskills.Option{
		convoskills.WithLogger(newLogger(opts.verbose)),
		convoskills.WithOrderProvider(orders),
		convoskills.WithReferenceDataProvider(refdata),
	}
	if opts.sessionDB != "" {
		store, err := sqlitestore.Open(opts.sessionDB)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = store.Close
		rtOpts = append(rtOpts, convoskills.WithSessionStore(store))
	}
	if opts.messages != "" {
		text, err := yamlprompts.Load(opts.messages)
		if err != nil {
			_ = cleanup()
			return nil, nil, nil, err
		}
		rtOpts = append(rtOpts, convoskills.WithTextResolver(text))
	}

	rt, err := convoskills.New(rtOpts...)
	if err != nil {
		_ = cleanup()
		return nil, nil, nil, err
	}
	if err := rt.RegisterSkill(cancelorder.New()); err != nil {
		_ = cleanup()
		return nil, nil, nil, err
	}
	if err := rt.RegisterSkill(appeasecustomer.New()); err != nil {
		_ = cleanup()
		return nil, nil, nil, err
	}
	return rt, orders, cleanup, nil
}

func runDemo(cmd *cobra.Command, opts *rootOptions, decline bool) error {
	ctx := context.Background()

	rt, orders, cleanup, err := buildRuntime(opts)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	id, err := rt.NewSession(ctx)
	if err != nil {
		return err
	}
	sess := rt.Session(id)
	defer func() { _ = sess.Close(ctx) }()

	confirm := spec.ConfirmationYes
	if decline {
		confirm = spec.ConfirmationNo
	}
	script := []struct {
		slot  string
		value string
	}{
		{orderflow.SlotOrderNo, "Y100"},
		{orderflow.SlotEnterpriseCode, "acme"},
		{cancelorder.SlotCancellationReason, "customer request"},
		{cancelorder.SlotConfirmCancel, confirm},
	}

	res, err := sess.Activate(ctx, cancelorder.SkillID)
	if err != nil {
		return err
	}
	if err := printTurn(cmd, "activate "+cancelorder.SkillID, res); err != nil {
		return err
	}

	for _, step := range script {
		res, err = sess.CommitSlotString(ctx, step.slot, step.value)
		if err != nil {
			return err
		}
		if err := printTurn(cmd, fmt.Sprintf("commit %s=%q", step.slot, step.value), res); err != nil {
			return err
		}
		if res.Complete {
			break
		}
	}

	for _, req := range orders.Performed() {
		cmd.Printf("performed: %s on %s (%s)\n", req.ModificationType, req.OrderHeaderKey, req.ReasonCode)
	}
	return nil
}

func printTurn(cmd *cobra.Command, label string, res *convoskills.TurnResult) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	cmd.Printf("--- %s ---\n%s\n", label, b)
	return nil
}
