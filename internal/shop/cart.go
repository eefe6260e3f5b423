package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// CartStore holds the session's line items in insertion order and persists the
// full cart after every mutation. Adds never fail on business grounds: the
// catalog is static, so there is no inventory check.
type CartStore struct {
	mu    sync.Mutex
	items []CartItem
	repo  SnapshotRepo
	key   string
}

type cartSnapshot struct {
	Items []CartItem `json:"items"`
}

// NewCartStore loads the persisted cart for the given session, if any.
func NewCartStore(ctx context.Context, repo SnapshotRepo, sessionID string) (*CartStore, error) {
	c := &CartStore{
		repo: repo,
		key:  cartStorageKey + "/" + sessionID,
	}
	blob, ok, err := repo.Load(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if ok {
		var snap cartSnapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return nil, fmt.Errorf("decode cart snapshot: %w", err)
		}
		c.items = snap.Items
	}
	return c, nil
}

// AddItem merges the sneaker into the cart: existing lines gain quantity 1,
// new lines start at quantity 1 with the image falling back to the thumbnail.
func (c *CartStore) AddItem(ctx context.Context, sneaker Sneaker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == sneaker.ID {
			c.items[i].Quantity++
			return c.persist(ctx)
		}
	}
	image := sneaker.Image
	if image == "" {
		image = sneaker.Thumbnail
	}
	c.items = append(c.items, CartItem{
		ID:       sneaker.ID,
		Name:     sneaker.Name,
		Brand:    sneaker.Brand,
		Price:    sneaker.Price,
		Image:    image,
		Quantity: 1,
	})
	return c.persist(ctx)
}

// RemoveItem deletes the line item; unknown ids are a no-op.
func (c *CartStore) RemoveItem(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.persist(ctx)
		}
	}
	return nil
}

// UpdateQuantity sets the line quantity, clamping to a minimum of 1 so a line
// total can never go to zero or negative.
func (c *CartStore) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = quantity
			return c.persist(ctx)
		}
	}
	return nil
}

// Clear empties the cart.
func (c *CartStore) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.persist(ctx)
}

// Items returns a copy of the line items in insertion order.
func (c *CartStore) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Total is the sum of price*quantity over all lines.
func (c *CartStore) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, item := range c.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (c *CartStore) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

func (c *CartStore) persist(ctx context.Context) error {
	blob, err := json.Marshal(cartSnapshot{Items: c.items})
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	return c.repo.Save(ctx, c.key, blob)
}
