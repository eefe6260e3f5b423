// Command smoke drives a full purchase against locally running catalog and
// storefront services: seed the catalog, open a session, register, fill the
// cart, and walk the checkout wizard to a committed order.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"
)

func main() {
	var (
		catalogURL    = flag.String("catalog", "http://localhost:8081", "catalog base URL")
		storefrontURL = flag.String("storefront", "http://localhost:8082", "storefront base URL")
	)
	flag.Parse()

	c := &smokeClient{
		catalog:    *catalogURL,
		storefront: *storefrontURL,
		http:       &http.Client{Timeout: 30 * time.Second},
	}

	c.call(http.MethodPost, c.catalog+"/catalog/sneakers/seed?count=8", nil)

	var listing struct {
		Sneakers []struct {
			ID    string  `json:"id"`
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"sneakers"`
	}
	c.callJSON(http.MethodGet, c.catalog+"/catalog/sneakers?limit=2", nil, &listing)
	if len(listing.Sneakers) < 2 {
		log.Fatal("catalog returned fewer than 2 sneakers")
	}

	var session struct {
		SessionID string `json:"session_id"`
	}
	c.callJSON(http.MethodPost, c.storefront+"/store/sessions", nil, &session)
	c.session = session.SessionID
	log.Printf("session: %s", c.session)

	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
	}
	c.callJSON(http.MethodPost, c.storefront+"/store/auth/register", map[string]any{
		"name":     "Smoke Tester",
		"email":    "smoke@example.com",
		"password": "hunter22",
	}, &auth)
	c.token = auth.Token
	log.Printf("registered as %s (%s)", auth.User.Name, auth.User.ID)

	for _, sneaker := range listing.Sneakers {
		c.call(http.MethodPost, c.storefront+"/store/cart/items", map[string]any{"sneaker_id": sneaker.ID})
		log.Printf("added to cart: %s ($%.2f)", sneaker.Name, sneaker.Price)
	}

	c.call(http.MethodPost, c.storefront+"/store/checkout", nil)
	c.call(http.MethodPut, c.storefront+"/store/checkout/shipping", map[string]any{
		"full_name":       "Smoke Tester",
		"email":           "smoke@example.com",
		"phone":           "5551234567",
		"address":         "123 Demo Street",
		"city":            "Springfield",
		"state":           "IL",
		"zip_code":        "62704",
		"country":         "US",
		"shipping_method": "express",
	})

	var committed struct {
		Order struct {
			ID             string  `json:"id"`
			Total          float64 `json:"total"`
			TrackingNumber string  `json:"tracking_number"`
		} `json:"order"`
	}
	c.callJSON(http.MethodPost, c.storefront+"/store/checkout/submit", map[string]any{
		"card_number": "4242424242424242",
		"card_name":   "Smoke Tester",
		"expiry":      "12/30",
		"cvv":         "123",
	}, &committed)
	log.Printf("order %s committed, total $%.2f, tracking %s",
		committed.Order.ID, committed.Order.Total, committed.Order.TrackingNumber)
}

type smokeClient struct {
	catalog    string
	storefront string
	session    string
	token      string
	http       *http.Client
}

func (c *smokeClient) call(method, url string, body any) []byte {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session != "" {
		req.Header.Set("X-Session-ID", c.session)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode >= 400 {
		log.Fatalf("%s %s: %s: %s", method, url, resp.Status, buf.String())
	}
	return buf.Bytes()
}

func (c *smokeClient) callJSON(method, url string, body, out any) {
	raw := c.call(method, url, body)
	if err := json.Unmarshal(raw, out); err != nil {
		log.Fatalf("decode %s %s: %v", method, url, err)
	}
}
