package shop

import (
	"fmt"
	"time"
)

// Sneaker mirrors the catalog's JSON representation of a product. The
// storefront treats it as read-only input; only the fields copied into a
// CartItem ever enter storefront state.
type Sneaker struct {
	ID          string    `json:"id"`
	Brand       string    `json:"brand"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	RetailPrice float64   `json:"retail_price"`
	Image       string    `json:"image"`
	Thumbnail   string    `json:"thumbnail"`
	Category    string    `json:"category"`
	Colorway    string    `json:"colorway"`
	Gender      string    `json:"gender"`
	Rating      float64   `json:"rating"`
	Colors      []string  `json:"colors"`
	Description string    `json:"description"`
	SKU         string    `json:"sku"`
	StyleID     string    `json:"style_id"`
	ReleaseDate time.Time `json:"release_date"`
}

// CartItem is one line item in the cart. One entry exists per product id;
// repeat adds bump the quantity.
type CartItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// User is the simulated authenticated identity.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(raw) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return OrderStatus(raw), nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// OrderItem is a by-value snapshot of a cart line at commit time. Mutating or
// clearing the cart afterwards never touches it.
type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// ShippingAddress is the delivery destination recorded on an order.
type ShippingAddress struct {
	FullName string `json:"full_name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	Country  string `json:"country"`
}

// Order is a committed purchase. Immutable except for status, updated_at,
// and tracking_number; never deleted (cancellation is a status, not removal).
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	Total           float64         `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
}

// OrderDraft carries everything the orders store needs to mint a new order.
type OrderDraft struct {
	UserID          string
	Items           []OrderItem
	Total           float64
	ShippingAddress ShippingAddress
	PaymentMethod   string
	TrackingNumber  string
}
