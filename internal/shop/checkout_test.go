package shop

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginCheckoutPreconditions(t *testing.T) {
	t.Run("anonymous user", func(t *testing.T) {
		_, session := newTestSession(t)
		fillCart(t, session, sneakerFixture("sn-1", 150))

		_, err := session.StartCheckout(DefaultPricing())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("empty cart", func(t *testing.T) {
		_, session := newTestSession(t)
		loginTestUser(t, session)

		_, err := session.StartCheckout(DefaultPricing())
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("ready", func(t *testing.T) {
		_, session := newTestSession(t)
		loginTestUser(t, session)
		fillCart(t, session, sneakerFixture("sn-1", 150))

		checkout, err := session.StartCheckout(DefaultPricing())
		require.NoError(t, err)
		assert.Equal(t, StepReviewCart, checkout.Step())
		assert.Equal(t, ShippingStandard, checkout.Method())
	})
}

func startedCheckout(t *testing.T) (*Session, *Checkout) {
	t.Helper()
	_, session := newTestSession(t)
	loginTestUser(t, session)
	fillCart(t, session, sneakerFixture("sn-1", 150), sneakerFixture("sn-2", 100))
	checkout, err := session.StartCheckout(DefaultPricing())
	require.NoError(t, err)
	return session, checkout
}

func TestCheckoutStepMachine(t *testing.T) {
	_, checkout := startedCheckout(t)

	checkout.Advance()
	assert.Equal(t, StepShipping, checkout.Step())

	require.NoError(t, checkout.SetShipping(validShippingForm(), ShippingExpress))
	assert.Equal(t, StepPayment, checkout.Step())
	assert.Equal(t, ShippingExpress, checkout.Method())

	checkout.Back()
	assert.Equal(t, StepShipping, checkout.Step())

	// Stepping back keeps the collected form.
	form, ok := checkout.Shipping()
	require.True(t, ok)
	assert.Equal(t, validShippingForm(), form)

	checkout.Back()
	checkout.Back()
	assert.Equal(t, StepReviewCart, checkout.Step())
}

func TestSetShippingValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ShippingForm)
		field  string
	}{
		{name: "missing name", mutate: func(f *ShippingForm) { f.FullName = "" }, field: "full_name"},
		{name: "bad email", mutate: func(f *ShippingForm) { f.Email = "not-an-email" }, field: "email"},
		{name: "short phone", mutate: func(f *ShippingForm) { f.Phone = "555" }, field: "phone"},
		{name: "short address", mutate: func(f *ShippingForm) { f.Address = "a" }, field: "address"},
		{name: "short zip", mutate: func(f *ShippingForm) { f.ZipCode = "12" }, field: "zip_code"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, checkout := startedCheckout(t)
			checkout.Advance()

			form := validShippingForm()
			tc.mutate(&form)
			err := checkout.SetShipping(form, ShippingStandard)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tc.field)
			assert.Equal(t, StepShipping, checkout.Step())
			_, ok := checkout.Shipping()
			assert.False(t, ok)
		})
	}
}

func TestCheckoutQuoteTracksLiveCart(t *testing.T) {
	session, checkout := startedCheckout(t)

	quote, err := checkout.Quote(session.Cart)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, quote.Subtotal, 1e-9)
	assert.InDelta(t, 275.0, quote.GrandTotal, 1e-9)

	// Step 1 edits operate on the shared cart, so the quote follows.
	require.NoError(t, session.Cart.RemoveItem(context.Background(), "sn-2"))
	quote, err = checkout.Quote(session.Cart)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, quote.Subtotal, 1e-9)
}

func TestPreparePaymentRequiresShipping(t *testing.T) {
	_, checkout := startedCheckout(t)

	_, err := checkout.PreparePayment(validPaymentForm())
	assert.ErrorIs(t, err, ErrShippingIncomplete)
}

func TestPreparePaymentMasksCard(t *testing.T) {
	_, checkout := startedCheckout(t)
	require.NoError(t, checkout.SetShipping(validShippingForm(), ShippingStandard))

	method, err := checkout.PreparePayment(validPaymentForm())
	require.NoError(t, err)
	assert.Equal(t, "Card ending in 4242", method)
}

func TestPreparePaymentValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PaymentForm)
		field  string
	}{
		{name: "short card number", mutate: func(f *PaymentForm) { f.CardNumber = "4242" }, field: "card_number"},
		{name: "missing card name", mutate: func(f *PaymentForm) { f.CardName = "" }, field: "card_name"},
		{name: "bad expiry month", mutate: func(f *PaymentForm) { f.Expiry = "13/30" }, field: "expiry"},
		{name: "bad expiry shape", mutate: func(f *PaymentForm) { f.Expiry = "1230" }, field: "expiry"},
		{name: "alpha cvv", mutate: func(f *PaymentForm) { f.CVV = "abc" }, field: "cvv"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, checkout := startedCheckout(t)
			require.NoError(t, checkout.SetShipping(validShippingForm(), ShippingStandard))

			form := validPaymentForm()
			tc.mutate(&form)
			_, err := checkout.PreparePayment(form)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tc.field)
		})
	}
}

func TestAbandoningCheckoutKeepsCart(t *testing.T) {
	session, checkout := startedCheckout(t)
	require.NoError(t, checkout.SetShipping(validShippingForm(), ShippingOvernight))

	session.EndCheckout()
	_, err := session.ActiveCheckout()
	assert.ErrorIs(t, err, ErrCheckoutNotStarted)
	assert.Equal(t, 2, session.Cart.ItemCount())

	restarted, err := session.StartCheckout(DefaultPricing())
	require.NoError(t, err)
	assert.Equal(t, StepReviewCart, restarted.Step())
	assert.Equal(t, ShippingStandard, restarted.Method())
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "Card ending in 4242", maskCard("4242 4242 4242 4242"))
	assert.Equal(t, "Card", maskCard("99"))
}

func TestNewTrackingNumber(t *testing.T) {
	tracking := newTrackingNumber()
	require.True(t, strings.HasPrefix(tracking, "TRK-"))
	assert.Len(t, tracking, len("TRK-")+12)
}

func TestSimulatedProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("approves", func(t *testing.T) {
		processor := NewSimulatedProcessor(0, 0)
		result, err := processor.Charge(ctx, ChargeRequest{Amount: 275, Currency: "USD", CardLast4: "4242"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Reference)
		assert.False(t, result.AuthorizedAt.IsZero())
	})

	t.Run("declines", func(t *testing.T) {
		processor := NewSimulatedProcessor(0, 1)
		_, err := processor.Charge(ctx, ChargeRequest{Amount: 275, Currency: "USD", CardLast4: "4242"})
		assert.ErrorIs(t, err, ErrPaymentDeclined)
	})
}
