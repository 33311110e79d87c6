// Package inmem provides in-memory provider fakes for tests and the demo
// command. They record call counts so tests can assert fetch-once and
// memoization behavior.
package inmem

import (
	"context"
	"sync"

	"github.com/convodesk/convoskills-go/spec"
)

// ReferenceData is an in-memory spec.ReferenceDataProvider.
type ReferenceData struct {
	mu    sync.Mutex
	lists map[string][]spec.ReferenceOption
	calls map[string]int
	err   error
}

func NewReferenceData() *ReferenceData {
	return &ReferenceData{
		lists: map[string][]spec.ReferenceOption{},
		calls: map[string]int{},
	}
}

// Add registers the option list served for (category, enterpriseCode).
func (d *ReferenceData) Add(category, enterpriseCode string, opts ...spec.ReferenceOption) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lists[category+"/"+enterpriseCode] = opts
}

// FailWith makes every subsequent fetch return err. Pass nil to clear.
func (d *ReferenceData) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *ReferenceData) FetchReferenceOptions(ctx context.Context, category, enterpriseCode string) ([]spec.ReferenceOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	key := category + "/" + enterpriseCode
	d.calls[key]++
	if d.err != nil {
		return nil, d.err
	}
	out := make([]spec.ReferenceOption, len(d.lists[key]))
	copy(out, d.lists[key])
	return out, nil
}

// Calls reports how many fetches were issued for (category, enterpriseCode).
func (d *ReferenceData) Calls(category, enterpriseCode string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[category+"/"+enterpriseCode]
}

// Orders is an in-memory spec.OrderProvider.
type Orders struct {
	mu         sync.Mutex
	orders     map[string]spec.Order
	allowed    map[string]bool
	checkCalls map[string]int
	performed  []spec.ModificationRequest
	findErr    error
	performErr error
}

func NewOrders() *Orders {
	return &Orders{
		orders:     map[string]spec.Order{},
		allowed:    map[string]bool{},
		checkCalls: map[string]int{},
	}
}

// Add registers an order, addressable by (orderNo, enterpriseCode).
func (o *Orders) Add(order spec.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders[order.OrderNo+"/"+order.EnterpriseCode] = order
}

// SetAllowed seeds the live eligibility table consulted by
// CheckModificationAllowed.
func (o *Orders) SetAllowed(modificationType, orderHeaderKey string, allowed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.allowed[modificationType+"/"+orderHeaderKey] = allowed
}

// FailFind makes FindOrder return err. Pass nil to clear.
func (o *Orders) FailFind(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.findErr = err
}

// FailPerform makes PerformModification return err. Pass nil to clear.
func (o *Orders) FailPerform(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.performErr = err
}

func (o *Orders) FindOrder(ctx context.Context, criteria spec.OrderCriteria) (*spec.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.findErr != nil {
		return nil, o.findErr
	}
	order, ok := o.orders[criteria.OrderNo+"/"+criteria.EnterpriseCode]
	if !ok {
		return nil, nil
	}
	out := order
	out.AllowedModifications = append([]string(nil), order.AllowedModifications...)
	return &out, nil
}

func (o *Orders) AllowedModifications(ctx context.Context, order spec.Order) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	stored, ok := o.orders[order.OrderNo+"/"+order.EnterpriseCode]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), stored.AllowedModifications...), nil
}

func (o *Orders) CheckModificationAllowed(ctx context.Context, modificationType, orderHeaderKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	key := modificationType + "/" + orderHeaderKey
	o.checkCalls[key]++
	return o.allowed[key], nil
}

func (o *Orders) PerformModification(ctx context.Context, req spec.ModificationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.performErr != nil {
		return o.performErr
	}
	o.performed = append(o.performed, req)
	return nil
}

// CheckCalls reports how many live eligibility checks were issued for
// (modificationType, orderHeaderKey).
func (o *Orders) CheckCalls(modificationType, orderHeaderKey string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkCalls[modificationType+"/"+orderHeaderKey]
}

// Performed returns the modification requests performed so far.
func (o *Orders) Performed() []spec.ModificationRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]spec.ModificationRequest(nil), o.performed...)
}
