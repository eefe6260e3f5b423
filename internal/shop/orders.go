package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrOrderNotFound is returned for lookups of unknown order ids.
var ErrOrderNotFound = errors.New("order not found")

// IllegalTransitionError rejects a status change the order lifecycle does not
// allow. Orders only move forward: pending → processing → shipped →
// delivered, with cancelled reachable from pending or processing.
type IllegalTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %s: illegal status transition %s -> %s", e.OrderID, e.From, e.To)
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func transitionAllowed(from, to OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrdersStore holds every committed order, most recent first. Orders are
// shared across sessions and filtered by user id on read.
type OrdersStore struct {
	mu     sync.Mutex
	orders []Order
	repo   SnapshotRepo
}

type ordersSnapshot struct {
	Orders []Order `json:"orders"`
}

// NewOrdersStore loads the persisted order history.
func NewOrdersStore(ctx context.Context, repo SnapshotRepo) (*OrdersStore, error) {
	o := &OrdersStore{repo: repo}
	blob, ok, err := repo.Load(ctx, ordersStorageKey)
	if err != nil {
		return nil, err
	}
	if ok {
		var snap ordersSnapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return nil, fmt.Errorf("decode orders snapshot: %w", err)
		}
		o.orders = snap.Orders
	}
	return o, nil
}

// Add mints a new pending order from the draft and prepends it so the most
// recent order lists first.
func (o *OrdersStore) Add(ctx context.Context, draft OrderDraft) (Order, error) {
	now := time.Now().UTC()
	items := make([]OrderItem, len(draft.Items))
	copy(items, draft.Items)
	order := Order{
		ID:              "ORD-" + uuid.NewString(),
		UserID:          draft.UserID,
		Items:           items,
		Total:           draft.Total,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod,
		TrackingNumber:  draft.TrackingNumber,
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders = append([]Order{order}, o.orders...)
	if err := o.persist(ctx); err != nil {
		return Order{}, err
	}
	return order, nil
}

// GetByID fetches a single order.
func (o *OrdersStore) GetByID(id string) (Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.orders {
		if o.orders[i].ID == id {
			return copyOrder(o.orders[i]), nil
		}
	}
	return Order{}, ErrOrderNotFound
}

// UserOrders returns the user's orders, most recent first.
func (o *OrdersStore) UserOrders(userID string) []Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	var orders []Order
	for i := range o.orders {
		if o.orders[i].UserID == userID {
			orders = append(orders, copyOrder(o.orders[i]))
		}
	}
	return orders
}

// UpdateStatus applies a forward-only status change and bumps updated_at.
func (o *OrdersStore) UpdateStatus(ctx context.Context, orderID string, status OrderStatus) (Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.orders {
		if o.orders[i].ID != orderID {
			continue
		}
		if !transitionAllowed(o.orders[i].Status, status) {
			return Order{}, &IllegalTransitionError{OrderID: orderID, From: o.orders[i].Status, To: status}
		}
		o.orders[i].Status = status
		o.orders[i].UpdatedAt = time.Now().UTC()
		if err := o.persist(ctx); err != nil {
			return Order{}, err
		}
		return copyOrder(o.orders[i]), nil
	}
	return Order{}, ErrOrderNotFound
}

// Cancel flags the order cancelled. The order stays in the collection.
func (o *OrdersStore) Cancel(ctx context.Context, orderID string) (Order, error) {
	return o.UpdateStatus(ctx, orderID, StatusCancelled)
}

// SetTracking records a carrier tracking number on an order.
func (o *OrdersStore) SetTracking(ctx context.Context, orderID, trackingNumber string) (Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.orders {
		if o.orders[i].ID != orderID {
			continue
		}
		o.orders[i].TrackingNumber = trackingNumber
		o.orders[i].UpdatedAt = time.Now().UTC()
		if err := o.persist(ctx); err != nil {
			return Order{}, err
		}
		return copyOrder(o.orders[i]), nil
	}
	return Order{}, ErrOrderNotFound
}

func copyOrder(order Order) Order {
	items := make([]OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}

func (o *OrdersStore) persist(ctx context.Context) error {
	snap := ordersSnapshot{Orders: o.orders}
	if snap.Orders == nil {
		snap.Orders = []Order{}
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode orders snapshot: %w", err)
	}
	return o.repo.Save(ctx, ordersStorageKey, blob)
}
