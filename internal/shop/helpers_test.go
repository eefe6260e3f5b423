package shop

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessions() *Sessions {
	return NewSessions(NewMemorySnapshots(), SimulatedAuthenticator{})
}

func newTestSession(t *testing.T) (*Sessions, *Session) {
	t.Helper()
	sessions := newTestSessions()
	session, err := sessions.Create(context.Background())
	require.NoError(t, err)
	return sessions, session
}

func loginTestUser(t *testing.T, session *Session) User {
	t.Helper()
	user, err := session.User.Login(context.Background(), "user@test.com", "123456")
	require.NoError(t, err)
	return user
}

func sneakerFixture(id string, price float64) Sneaker {
	return Sneaker{
		ID:        id,
		Brand:     "Nike",
		Name:      "Air Max 95 " + id,
		Price:     price,
		Image:     "https://images.example.com/" + id + ".png",
		Thumbnail: "https://images.example.com/" + id + "-thumb.png",
	}
}

func fillCart(t *testing.T, session *Session, sneakers ...Sneaker) {
	t.Helper()
	for _, sneaker := range sneakers {
		require.NoError(t, session.Cart.AddItem(context.Background(), sneaker))
	}
}

func validShippingForm() ShippingForm {
	return ShippingForm{
		FullName: "Jordan Smith",
		Email:    "jordan@example.com",
		Phone:    "5551234567",
		Address:  "123 Main Street",
		City:     "Springfield",
		State:    "IL",
		ZipCode:  "62704",
		Country:  "US",
	}
}

func validPaymentForm() PaymentForm {
	return PaymentForm{
		CardNumber: "4242424242424242",
		CardName:   "Jordan Smith",
		Expiry:     "12/30",
		CVV:        "123",
	}
}
