package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSneakerNotFound is returned when the catalog has no such product.
var ErrSneakerNotFound = errors.New("sneaker not found")

// CatalogClient captures the HTTP calls the storefront issues toward the
// catalog service. The catalog is an opaque, read-only collaborator.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCatalogClient configures a client with sane defaults.
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetSneakers fetches the newest sneakers up to limit.
func (c *CatalogClient) GetSneakers(ctx context.Context, limit int) ([]Sneaker, error) {
	endpoint := fmt.Sprintf("%s/catalog/sneakers?limit=%d", c.baseURL, limit)
	var payload struct {
		Sneakers []Sneaker `json:"sneakers"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Sneakers, nil
}

// GetSneakerByID fetches one sneaker, mapping 404 to ErrSneakerNotFound.
func (c *CatalogClient) GetSneakerByID(ctx context.Context, id string) (Sneaker, error) {
	endpoint := fmt.Sprintf("%s/catalog/sneakers/%s", c.baseURL, url.PathEscape(id))
	var sneaker Sneaker
	if err := c.getJSON(ctx, endpoint, &sneaker); err != nil {
		return Sneaker{}, err
	}
	return sneaker, nil
}

// SearchSneakers queries the catalog's search endpoint.
func (c *CatalogClient) SearchSneakers(ctx context.Context, query string, limit int) ([]Sneaker, error) {
	endpoint := fmt.Sprintf("%s/catalog/search?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), limit)
	var payload struct {
		Sneakers []Sneaker `json:"sneakers"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Sneakers, nil
}

// GetPopularBrands lists brand names ordered by catalog presence.
func (c *CatalogClient) GetPopularBrands(ctx context.Context, limit int) ([]string, error) {
	endpoint := fmt.Sprintf("%s/catalog/brands?limit=%d", c.baseURL, limit)
	var payload struct {
		Brands []string `json:"brands"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Brands, nil
}

func (c *CatalogClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call catalog: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrSneakerNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog returned %s for %s", resp.Status, endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
