package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SessionHeader carries the profile id the client obtained from POST
// /store/sessions. It plays the role the browser profile played in the
// original storefront.
const SessionHeader = "X-Session-ID"

// Server exposes the storefront's public API surface: session handling, the
// four stores, and the checkout wizard.
type Server struct {
	sessions     *Sessions
	orders       *OrdersStore
	catalog      *CatalogClient
	orchestrator CheckoutOrchestrator
	tokens       *TokenIssuer
	pricing      PricingPolicy
	logger       *slog.Logger
}

// NewServer creates a storefront server with the required collaborators wired in.
func NewServer(sessions *Sessions, orders *OrdersStore, catalog *CatalogClient, orchestrator CheckoutOrchestrator, tokens *TokenIssuer, pricing PricingPolicy, logger *slog.Logger) *Server {
	return &Server{
		sessions:     sessions,
		orders:       orders,
		catalog:      catalog,
		orchestrator: orchestrator,
		tokens:       tokens,
		pricing:      pricing,
		logger:       logger,
	}
}

// Router configures all storefront routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/store", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)

			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/me", s.handleMe)

			r.Get("/cart", s.handleGetCart)
			r.Post("/cart/items", s.handleAddCartItem)
			r.Patch("/cart/items/{itemID}", s.handleUpdateQuantity)
			r.Delete("/cart/items/{itemID}", s.handleRemoveCartItem)
			r.Delete("/cart", s.handleClearCart)

			r.Get("/favorites", s.handleListFavorites)
			r.Post("/favorites/{sneakerID}/toggle", s.handleToggleFavorite)
			r.Delete("/favorites", s.handleClearFavorites)

			// The checkout wizard: preconditions are corrected by redirect,
			// not surfaced as errors, matching the original navigation flow.
			r.Post("/checkout", s.handleStartCheckout)
			r.Get("/checkout", s.handleGetCheckout)
			r.Post("/checkout/advance", s.handleCheckoutAdvance)
			r.Put("/checkout/shipping", s.handleCheckoutShipping)
			r.Post("/checkout/back", s.handleCheckoutBack)
			r.Post("/checkout/submit", s.handleCheckoutSubmit)
			r.Delete("/checkout", s.handleAbandonCheckout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.tokens.RequireAuth)
			r.Get("/orders", s.handleListOrders)
			r.Get("/orders/{orderID}", s.handleGetOrder)
			r.Post("/orders/{orderID}/cancel", s.handleCancelOrder)
			r.Post("/orders/{orderID}/status", s.handleOrderStatus)
		})
	})

	return r
}

type sessionContextKey struct{}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id == "" {
			writeError(w, http.StatusBadRequest, "%s header required", SessionHeader)
			return
		}
		session, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "resolve session: %v", err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *Session {
	session, _ := r.Context().Value(sessionContextKey{}).(*Session)
	return session
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create session: %v", err)
		return
	}
	s.logger.Info("session created", "session_id", session.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": session.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	session := sessionFrom(r)
	user, err := session.User.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "login: %v", err)
		return
	}
	s.respondWithIdentity(w, session, user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	session := sessionFrom(r)
	user, err := session.User.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "name, email, and a password of at least 6 characters are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "register: %v", err)
		return
	}
	s.respondWithIdentity(w, session, user)
}

func (s *Server) respondWithIdentity(w http.ResponseWriter, session *Session, user User) {
	token, err := s.tokens.Mint(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "mint token: %v", err)
		return
	}
	s.logger.Info("user authenticated", "session_id", session.ID, "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":             user,
		"is_authenticated": true,
		"token":            token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := session.User.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "logout: %v", err)
		return
	}
	s.logger.Info("user logged out", "session_id", session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	user, ok := session.User.Current()
	payload := map[string]any{"is_authenticated": ok}
	if ok {
		payload["user"] = user
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) cartPayload(session *Session) map[string]any {
	return map[string]any{
		"items":      session.Cart.Items(),
		"total":      session.Cart.Total(),
		"item_count": session.Cart.ItemCount(),
	}
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cartPayload(sessionFrom(r)))
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SneakerID string `json:"sneaker_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	if strings.TrimSpace(payload.SneakerID) == "" {
		writeError(w, http.StatusBadRequest, "sneaker_id required")
		return
	}
	sneaker, err := s.catalog.GetSneakerByID(r.Context(), payload.SneakerID)
	if err != nil {
		if errors.Is(err, ErrSneakerNotFound) {
			writeError(w, http.StatusNotFound, "sneaker not found")
			return
		}
		writeError(w, http.StatusBadGateway, "lookup sneaker: %v", err)
		return
	}
	session := sessionFrom(r)
	if err := session.Cart.AddItem(r.Context(), sneaker); err != nil {
		writeError(w, http.StatusInternalServerError, "add item: %v", err)
		return
	}
	s.logger.Info("cart item added", "session_id", session.ID, "sneaker_id", sneaker.ID)
	writeJSON(w, http.StatusCreated, s.cartPayload(session))
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	session := sessionFrom(r)
	if err := session.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "itemID"), payload.Quantity); err != nil {
		writeError(w, http.StatusInternalServerError, "update quantity: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartPayload(session))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := session.Cart.RemoveItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		writeError(w, http.StatusInternalServerError, "remove item: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartPayload(session))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := session.Cart.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "clear cart: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{"favorites": session.Favorites.List()})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	sneakerID := chi.URLParam(r, "sneakerID")
	nowFavorite, err := session.Favorites.Toggle(r.Context(), sneakerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "toggle favorite: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sneaker_id":  sneakerID,
		"is_favorite": nowFavorite,
		"favorites":   session.Favorites.List(),
	})
}

func (s *Server) handleClearFavorites(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := session.Favorites.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "clear favorites: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	checkout, err := session.StartCheckout(s.pricing)
	if err != nil {
		s.redirectOnPrecondition(w, r, session, err)
		return
	}
	quote, err := checkout.Quote(session.Cart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "quote: %v", err)
		return
	}
	s.logger.Info("checkout started", "session_id", session.ID, "item_count", session.Cart.ItemCount())
	writeJSON(w, http.StatusCreated, map[string]any{
		"step":  checkout.Step(),
		"items": session.Cart.Items(),
		"quote": quote,
	})
}

// redirectOnPrecondition silently corrects navigation state the way the UI
// did: unauthenticated users go home, empty carts go to the product listing.
func (s *Server) redirectOnPrecondition(w http.ResponseWriter, r *http.Request, session *Session, err error) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		s.logger.Info("checkout redirected", "session_id", session.ID, "reason", "not authenticated")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, ErrEmptyCart):
		s.logger.Info("checkout redirected", "session_id", session.ID, "reason", "empty cart")
		http.Redirect(w, r, "/productos", http.StatusSeeOther)
	default:
		writeError(w, http.StatusInternalServerError, "start checkout: %v", err)
	}
}

func (s *Server) activeCheckout(w http.ResponseWriter, r *http.Request) (*Session, *Checkout, bool) {
	session := sessionFrom(r)
	checkout, err := session.ActiveCheckout()
	if err != nil {
		writeError(w, http.StatusConflict, "checkout not started")
		return nil, nil, false
	}
	return session, checkout, true
}

func (s *Server) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	session, checkout, ok := s.activeCheckout(w, r)
	if !ok {
		return
	}
	quote, err := checkout.Quote(session.Cart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "quote: %v", err)
		return
	}
	payload := map[string]any{
		"step":  checkout.Step(),
		"items": session.Cart.Items(),
		"quote": quote,
	}
	if shipping, ok := checkout.Shipping(); ok {
		payload["shipping"] = shipping
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCheckoutShipping(w http.ResponseWriter, r *http.Request) {
	session, checkout, ok := s.activeCheckout(w, r)
	if !ok {
		return
	}
	var payload struct {
		ShippingForm
		Method string `json:"shipping_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	method, err := ParseShippingMethod(payload.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}
	if err := checkout.SetShipping(payload.ShippingForm, method); err != nil {
		writeValidationError(w, err)
		return
	}
	quote, err := checkout.Quote(session.Cart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "quote: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"step":  checkout.Step(),
		"quote": quote,
	})
}

func (s *Server) handleCheckoutAdvance(w http.ResponseWriter, r *http.Request) {
	_, checkout, ok := s.activeCheckout(w, r)
	if !ok {
		return
	}
	checkout.Advance()
	writeJSON(w, http.StatusOK, map[string]any{"step": checkout.Step()})
}

func (s *Server) handleCheckoutBack(w http.ResponseWriter, r *http.Request) {
	_, checkout, ok := s.activeCheckout(w, r)
	if !ok {
		return
	}
	checkout.Back()
	writeJSON(w, http.StatusOK, map[string]any{"step": checkout.Step()})
}

func (s *Server) handleCheckoutSubmit(w http.ResponseWriter, r *http.Request) {
	session, checkout, ok := s.activeCheckout(w, r)
	if !ok {
		return
	}
	user, authed := session.User.Current()
	if !authed {
		s.redirectOnPrecondition(w, r, session, ErrNotAuthenticated)
		return
	}
	items := snapshotItems(session.Cart.Items())
	if len(items) == 0 {
		s.redirectOnPrecondition(w, r, session, ErrEmptyCart)
		return
	}

	var form PaymentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	masked, err := checkout.PreparePayment(form)
	if err != nil {
		if errors.Is(err, ErrShippingIncomplete) {
			writeError(w, http.StatusConflict, "shipping details incomplete")
			return
		}
		writeValidationError(w, err)
		return
	}
	shipping, _ := checkout.Shipping()
	quote, err := checkout.Quote(session.Cart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "quote: %v", err)
		return
	}

	result, err := s.orchestrator.RunCheckout(r.Context(), CheckoutInput{
		SessionID:       session.ID,
		UserID:          user.ID,
		Items:           items,
		Quote:           quote,
		ShippingAddress: shipping.ShippingAddress(),
		PaymentMethod:   masked,
		CardLast4:       cardLast4(form.CardNumber),
	})
	if err != nil {
		// Failure leaves the wizard on the payment step with the cart and
		// all collected form data intact, so a retry needs no re-entry.
		if IsPaymentDeclined(err) {
			s.logger.Info("checkout payment declined", "session_id", session.ID)
			writeError(w, http.StatusPaymentRequired, "payment declined, please try again")
			return
		}
		s.logger.Error("checkout failed", "session_id", session.ID, "error", err)
		writeError(w, http.StatusBadGateway, "process checkout: %v", err)
		return
	}

	session.EndCheckout()
	s.logger.Info("checkout committed", "session_id", session.ID, "order_id", result.Order.ID, "total", result.Order.Total)
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":       result.Order,
		"charge_ref":  result.ChargeRef,
		"workflow_id": result.WorkflowID,
		"run_id":      result.RunID,
		"redirect":    "/checkout/success",
	})
}

func (s *Server) handleAbandonCheckout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	session.EndCheckout()
	w.WriteHeader(http.StatusNoContent)
}

func snapshotItems(items []CartItem) []OrderItem {
	snapshot := make([]OrderItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Brand:    item.Brand,
			Price:    item.Price,
			Image:    item.Image,
			Quantity: item.Quantity,
		})
	}
	return snapshot
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token required")
		return
	}
	orders := s.orders.UserOrders(user.ID)
	if orders == nil {
		orders = []Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

func (s *Server) orderForRequester(w http.ResponseWriter, r *http.Request) (Order, bool) {
	user, _ := IdentityFrom(r.Context())
	order, err := s.orders.GetByID(chi.URLParam(r, "orderID"))
	if err != nil || order.UserID != user.ID {
		writeError(w, http.StatusNotFound, "order not found")
		return Order{}, false
	}
	return order, true
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := s.orderForRequester(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := s.orderForRequester(w, r)
	if !ok {
		return
	}
	cancelled, err := s.orders.Cancel(r.Context(), order.ID)
	if err != nil {
		s.writeOrderError(w, err)
		return
	}
	s.logger.Info("order cancelled", "order_id", cancelled.ID, "user_id", cancelled.UserID)
	writeJSON(w, http.StatusOK, cancelled)
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	order, ok := s.orderForRequester(w, r)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	status, err := ParseOrderStatus(payload.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}
	updated, err := s.orders.UpdateStatus(r.Context(), order.ID, status)
	if err != nil {
		s.writeOrderError(w, err)
		return
	}
	s.logger.Info("order status updated", "order_id", updated.ID, "status", updated.Status)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) writeOrderError(w http.ResponseWriter, err error) {
	var illegal *IllegalTransitionError
	switch {
	case errors.As(err, &illegal):
		writeError(w, http.StatusConflict, "%s", illegal)
	case errors.Is(err, ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	default:
		writeError(w, http.StatusInternalServerError, "update order: %v", err)
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]any{
				"message": "validation failed",
				"status":  http.StatusUnprocessableEntity,
				"fields":  ve.Fields,
			},
		})
		return
	}
	writeError(w, http.StatusBadRequest, "%s", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}
