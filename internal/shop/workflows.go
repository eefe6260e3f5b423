package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	temporalworker "go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

const (
	checkoutTaskQueue        = "storefront-checkout-task-queue"
	checkoutWorkflowName     = "storefront.checkout"
	chargeActivityName       = "storefront.checkout.charge"
	placeOrderActivityName   = "storefront.checkout.place-order"
	paymentDeclinedErrorType = "PaymentDeclined"
)

// CheckoutInput carries the committed snapshot into the workflow. Items are
// copied at submit time so cart edits during processing cannot leak into the
// order.
type CheckoutInput struct {
	SessionID       string          `json:"session_id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	Quote           Quote           `json:"quote"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	CardLast4       string          `json:"card_last4"`
}

// CheckoutResult captures the combined workflow output.
type CheckoutResult struct {
	WorkflowID  string    `json:"workflow_id,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
	Order       Order     `json:"order"`
	ChargeRef   string    `json:"charge_ref"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// CheckoutOrchestrator abstracts how the commit pipeline is executed. In
// production it is backed by a Temporal workflow runner; without a Temporal
// server the inline runner executes the same sequence in-process.
type CheckoutOrchestrator interface {
	RunCheckout(ctx context.Context, input CheckoutInput) (CheckoutResult, error)
}

// CheckoutActivities hosts the activity implementations over the shared
// stores. The checkout is the only component that touches two stores' write
// paths in one logical operation, and it does so in a strict sequence.
type CheckoutActivities struct {
	sessions  *Sessions
	orders    *OrdersStore
	processor PaymentProcessor
	logger    *slog.Logger
}

func NewCheckoutActivities(sessions *Sessions, orders *OrdersStore, processor PaymentProcessor, logger *slog.Logger) *CheckoutActivities {
	return &CheckoutActivities{
		sessions:  sessions,
		orders:    orders,
		processor: processor,
		logger:    logger,
	}
}

func (a *CheckoutActivities) charge(ctx context.Context, input CheckoutInput) (ChargeResult, error) {
	return a.processor.Charge(ctx, ChargeRequest{
		Amount:    input.Quote.GrandTotal,
		Currency:  "USD",
		CardLast4: input.CardLast4,
		Reference: fmt.Sprintf("chk-%s", input.SessionID),
	})
}

// commit creates the order, then clears the cart. A clear failure after the
// order exists leaves a stale cart, which the user can recover from; a lost
// order cannot be, so the order always wins.
func (a *CheckoutActivities) commit(ctx context.Context, input CheckoutInput) (Order, error) {
	session, err := a.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return Order{}, err
	}
	order, err := a.orders.Add(ctx, OrderDraft{
		UserID:          input.UserID,
		Items:           input.Items,
		Total:           input.Quote.GrandTotal,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		TrackingNumber:  newTrackingNumber(),
	})
	if err != nil {
		return Order{}, err
	}
	if err := session.Cart.Clear(ctx); err != nil {
		a.logger.Error("cart clear after order creation failed", "session_id", input.SessionID, "order_id", order.ID, "error", err)
	}
	return order, nil
}

// ChargeActivity authorizes the payment. Declines are non-retryable: retrying
// a declined card without the user is pointless.
func (a *CheckoutActivities) ChargeActivity(ctx context.Context, input CheckoutInput) (ChargeResult, error) {
	result, err := a.charge(ctx, input)
	if err != nil {
		if errors.Is(err, ErrPaymentDeclined) {
			a.logger.Info("charge declined", "session_id", input.SessionID, "amount", input.Quote.GrandTotal)
			return ChargeResult{}, temporal.NewNonRetryableApplicationError("payment declined", paymentDeclinedErrorType, err)
		}
		a.logger.Error("charge activity failed", "session_id", input.SessionID, "error", err)
		return ChargeResult{}, err
	}
	a.logger.Info("charge authorized", "session_id", input.SessionID, "amount", input.Quote.GrandTotal, "reference", result.Reference)
	return result, nil
}

// PlaceOrderActivity commits the order snapshot and clears the cart.
func (a *CheckoutActivities) PlaceOrderActivity(ctx context.Context, input CheckoutInput) (Order, error) {
	order, err := a.commit(ctx, input)
	if err != nil {
		a.logger.Error("place order activity failed", "session_id", input.SessionID, "error", err)
		return Order{}, err
	}
	a.logger.Info("order placed", "order_id", order.ID, "user_id", order.UserID, "total", order.Total, "tracking", order.TrackingNumber)
	return order, nil
}

// CheckoutWorkflow runs charge then place-order sequentially, so an order only
// ever exists after the payment authorized.
func CheckoutWorkflow(ctx workflow.Context, input CheckoutInput) (CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.SessionID == "" || input.UserID == "" {
		return CheckoutResult{}, errors.New("session_id and user_id required")
	}
	if len(input.Items) == 0 {
		return CheckoutResult{}, errors.New("empty item snapshot")
	}
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        5,
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        15 * time.Second,
			NonRetryableErrorTypes: []string{paymentDeclinedErrorType},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	result := CheckoutResult{StartedAt: workflow.Now(ctx)}
	logger.Info("checkout workflow started", "session_id", input.SessionID, "user_id", input.UserID, "amount", input.Quote.GrandTotal)

	var charge ChargeResult
	if err := workflow.ExecuteActivity(ctx, chargeActivityName, input).Get(ctx, &charge); err != nil {
		logger.Error("charge activity failed", "error", err)
		return result, err
	}
	result.ChargeRef = charge.Reference

	var order Order
	if err := workflow.ExecuteActivity(ctx, placeOrderActivityName, input).Get(ctx, &order); err != nil {
		logger.Error("place order activity failed", "error", err)
		return result, err
	}
	result.Order = order

	result.CompletedAt = workflow.Now(ctx)
	logger.Info("checkout workflow finished", "order_id", order.ID, "charge_ref", charge.Reference)
	return result, nil
}

// RegisterCheckoutWorker wires up the Temporal worker consuming the checkout
// task queue.
func RegisterCheckoutWorker(c client.Client, acts *CheckoutActivities) temporalworker.Worker {
	w := temporalworker.New(c, checkoutTaskQueue, temporalworker.Options{})
	w.RegisterWorkflowWithOptions(CheckoutWorkflow, workflow.RegisterOptions{Name: checkoutWorkflowName})
	w.RegisterActivityWithOptions(acts.ChargeActivity, activity.RegisterOptions{Name: chargeActivityName})
	w.RegisterActivityWithOptions(acts.PlaceOrderActivity, activity.RegisterOptions{Name: placeOrderActivityName})
	return w
}

// TemporalOrchestrator starts checkout workflows through the Temporal client.
type TemporalOrchestrator struct {
	client client.Client
	logger *slog.Logger
}

func NewTemporalOrchestrator(c client.Client, logger *slog.Logger) *TemporalOrchestrator {
	return &TemporalOrchestrator{client: c, logger: logger.With("component", "checkout.orchestrator")}
}

func (o *TemporalOrchestrator) RunCheckout(ctx context.Context, input CheckoutInput) (CheckoutResult, error) {
	workflowID := fmt.Sprintf("checkout-%s-%d", input.SessionID, time.Now().UnixNano())
	options := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                checkoutTaskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionTimeout: 10 * time.Minute,
	}
	we, err := o.client.ExecuteWorkflow(ctx, options, checkoutWorkflowName, input)
	if err != nil {
		o.logger.Error("start checkout workflow failed", "session_id", input.SessionID, "error", err)
		return CheckoutResult{}, err
	}
	var result CheckoutResult
	if err := we.Get(ctx, &result); err != nil {
		o.logger.Error("checkout workflow failed", "workflow_id", we.GetID(), "error", err)
		result.WorkflowID = we.GetID()
		result.RunID = we.GetRunID()
		return result, err
	}
	result.WorkflowID = we.GetID()
	result.RunID = we.GetRunID()
	o.logger.Info("checkout workflow completed", "workflow_id", result.WorkflowID, "run_id", result.RunID, "order_id", result.Order.ID)
	return result, nil
}

// InlineOrchestrator executes the same charge/commit sequence in-process. It
// backs local development without a Temporal server and the handler tests.
type InlineOrchestrator struct {
	activities *CheckoutActivities
	logger     *slog.Logger
}

func NewInlineOrchestrator(acts *CheckoutActivities, logger *slog.Logger) *InlineOrchestrator {
	return &InlineOrchestrator{activities: acts, logger: logger.With("component", "checkout.inline")}
}

func (o *InlineOrchestrator) RunCheckout(ctx context.Context, input CheckoutInput) (CheckoutResult, error) {
	result := CheckoutResult{StartedAt: time.Now().UTC()}
	if len(input.Items) == 0 {
		return result, errors.New("empty item snapshot")
	}
	charge, err := o.activities.charge(ctx, input)
	if err != nil {
		return result, err
	}
	result.ChargeRef = charge.Reference
	order, err := o.activities.commit(ctx, input)
	if err != nil {
		return result, err
	}
	result.Order = order
	result.CompletedAt = time.Now().UTC()
	o.logger.Info("inline checkout completed", "order_id", order.ID, "charge_ref", charge.Reference)
	return result, nil
}

// IsPaymentDeclined reports whether the error, from either orchestrator path,
// is a simulated charge rejection.
func IsPaymentDeclined(err error) bool {
	if errors.Is(err, ErrPaymentDeclined) {
		return true
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type() == paymentDeclinedErrorType
	}
	return false
}

// CheckoutTaskQueue exposes the queue name for metrics and tests.
func CheckoutTaskQueue() string {
	return checkoutTaskQueue
}
