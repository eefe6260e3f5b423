package catalog

import "time"

// Sneaker is the full catalog record served to the storefront. The catalog is
// the system of record for product data; the storefront never writes to it.
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

// BrandCount pairs a brand with how many sneakers it has in the catalog.
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// CreateSneakerInput carries the writable fields for the admin create endpoint.
type CreateSneakerInput struct {
	Brand       string   `json:"brand"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	RetailPrice float64  `json:"retail_price"`
	Image       string   `json:"image"`
	Thumbnail   string   `json:"thumbnail"`
	Category    string   `json:"category"`
	Colorway    string   `json:"colorway"`
	Gender      string   `json:"gender"`
	Rating      float64  `json:"rating"`
	Colors      []string `json:"colors"`
	Description string   `json:"description"`
	SKU         string   `json:"sku"`
	StyleID     string   `json:"style_id"`
	ReleaseDate string   `json:"release_date"`
}
