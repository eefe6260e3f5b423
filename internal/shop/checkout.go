package shop

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Checkout preconditions and flow errors. The HTTP layer maps the first two
// to redirects rather than error payloads.
var (
	ErrNotAuthenticated   = errors.New("user not authenticated")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutNotStarted = errors.New("checkout not started")
	ErrShippingIncomplete = errors.New("shipping details incomplete")
)

// CheckoutStep enumerates the wizard's ordered steps.
type CheckoutStep int

const (
	StepReviewCart CheckoutStep = 1
	StepShipping   CheckoutStep = 2
	StepPayment    CheckoutStep = 3
)

// ShippingForm collects the step-2 fields. Validation is shape-only.
type ShippingForm struct {
	FullName string `json:"full_name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=10"`
	Address  string `json:"address" validate:"required,min=5"`
	City     string `json:"city" validate:"required,min=2"`
	State    string `json:"state" validate:"required,min=2"`
	ZipCode  string `json:"zip_code" validate:"required,min=4"`
	Country  string `json:"country" validate:"required,min=2"`
}

// ShippingAddress converts the form into the order's address record.
func (f ShippingForm) ShippingAddress() ShippingAddress {
	return ShippingAddress{
		FullName: f.FullName,
		Address:  f.Address,
		City:     f.City,
		State:    f.State,
		ZipCode:  f.ZipCode,
		Country:  f.Country,
	}
}

// PaymentForm collects the step-3 fields. No Luhn or expiry-in-future check;
// the processor is simulated. Only the last four digits leave this form.
type PaymentForm struct {
	CardNumber string `json:"card_number" validate:"required,min=16,max=19"`
	CardName   string `json:"card_name" validate:"required,min=3"`
	Expiry     string `json:"expiry" validate:"required,expiry"`
	CVV        string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidationError carries field-level messages for inline display.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "is too short"
	case "max":
		return "is too long"
	case "numeric":
		return "must be numeric"
	case "expiry":
		return "must use MM/YY format"
	}
	return "is invalid"
}

// Checkout is the per-session wizard draft. Form state lives here only; it is
// never persisted, and abandoning the wizard leaves the cart untouched.
// Callers serialize access through the owning session.
type Checkout struct {
	step     CheckoutStep
	shipping *ShippingForm
	method   ShippingMethod
	pricing  PricingPolicy
}

// BeginCheckout enforces the entry preconditions: an authenticated user and a
// non-empty cart. Step 1 edits operate on the live shared cart.
func BeginCheckout(users *UserStore, cart *CartStore, pricing PricingPolicy) (*Checkout, error) {
	if !users.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	if cart.ItemCount() == 0 {
		return nil, ErrEmptyCart
	}
	return &Checkout{step: StepReviewCart, method: ShippingStandard, pricing: pricing}, nil
}

// Step reports the current wizard position.
func (c *Checkout) Step() CheckoutStep { return c.step }

// Shipping returns the stored step-2 form, if set.
func (c *Checkout) Shipping() (ShippingForm, bool) {
	if c.shipping == nil {
		return ShippingForm{}, false
	}
	return *c.shipping, true
}

// Method returns the selected shipping method.
func (c *Checkout) Method() ShippingMethod { return c.method }

// Advance moves from cart review to the shipping step.
func (c *Checkout) Advance() {
	if c.step == StepReviewCart {
		c.step = StepShipping
	}
}

// Back steps the wizard backward without losing any collected data.
func (c *Checkout) Back() {
	if c.step > StepReviewCart {
		c.step--
	}
}

// SetShipping validates and stores the step-2 form plus the shipping method,
// advancing to payment. Re-submitting from step 3 just replaces the draft.
func (c *Checkout) SetShipping(form ShippingForm, method ShippingMethod) error {
	if err := validateForm(form); err != nil {
		return err
	}
	c.shipping = &form
	c.method = method
	if c.step <= StepShipping {
		c.step = StepPayment
	}
	return nil
}

// Quote prices the current cart under the selected shipping method.
func (c *Checkout) Quote(cart *CartStore) (Quote, error) {
	return c.pricing.Quote(cart.Total(), c.method)
}

// PreparePayment validates the step-3 form and returns the masked payment
// method description recorded on the order. The full card number goes no
// further than this call.
func (c *Checkout) PreparePayment(form PaymentForm) (string, error) {
	if c.step != StepPayment {
		return "", ErrShippingIncomplete
	}
	if c.shipping == nil {
		return "", ErrShippingIncomplete
	}
	if err := validateForm(form); err != nil {
		return "", err
	}
	return maskCard(form.CardNumber), nil
}

func maskCard(number string) string {
	last4 := cardLast4(number)
	if last4 == "" {
		return "Card"
	}
	return "Card ending in " + last4
}

func cardLast4(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, number)
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}

func newTrackingNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TRK-" + raw[:12]
}

// ErrPaymentDeclined marks a simulated charge rejection. Recoverable by
// retrying the same step; nothing is committed on this path.
var ErrPaymentDeclined = errors.New("payment declined")

// ChargeRequest describes the amount the processor should authorize.
type ChargeRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	CardLast4 string  `json:"card_last4"`
	Reference string  `json:"reference"`
}

// ChargeResult reports a successful authorization.
type ChargeResult struct {
	Reference    string    `json:"reference"`
	AuthorizedAt time.Time `json:"authorized_at"`
}

// PaymentProcessor is the port a real gateway would implement.
type PaymentProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// SimulatedProcessor approves charges after a fixed latency, declining a
// configurable fraction at random. DeclineRate 0 and 1 are deterministic.
type SimulatedProcessor struct {
	Latency     time.Duration
	DeclineRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulatedProcessor(latency time.Duration, declineRate float64) *SimulatedProcessor {
	return &SimulatedProcessor{
		Latency:     latency,
		DeclineRate: declineRate,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *SimulatedProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		}
	}
	p.mu.Lock()
	declined := p.rnd.Float64() < p.DeclineRate
	p.mu.Unlock()
	if declined {
		return ChargeResult{}, ErrPaymentDeclined
	}
	reference := req.Reference
	if reference == "" {
		reference = uuid.NewString()
	}
	return ChargeResult{
		Reference:    reference,
		AuthorizedAt: time.Now().UTC(),
	}, nil
}
