package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Store contains all catalog persistence logic.
type Store struct {
	db  *sql.DB
	rnd *rand.Rand
}

// NewStore wires a catalog data store backed by SQLite.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Init applies schema migrations for the catalog database.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sneakers (
			id TEXT PRIMARY KEY,
			brand TEXT NOT NULL,
			name TEXT NOT NULL,
			price REAL NOT NULL,
			retail_price REAL NOT NULL,
			image TEXT,
			thumbnail TEXT,
			category TEXT,
			colorway TEXT,
			gender TEXT,
			rating REAL NOT NULL DEFAULT 0,
			colors TEXT NOT NULL DEFAULT '[]',
			description TEXT,
			sku TEXT,
			style_id TEXT,
			release_date TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sneakers_brand ON sneakers(brand);`,
		`CREATE INDEX IF NOT EXISTS idx_sneakers_release ON sneakers(release_date DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply catalog schema: %w", err)
		}
	}
	return nil
}

// CreateSneaker inserts a sneaker and generates its id and sku when absent.
func (s *Store) CreateSneaker(ctx context.Context, input CreateSneakerInput) (Sneaker, error) {
	if strings.TrimSpace(input.Brand) == "" || strings.TrimSpace(input.Name) == "" {
		return Sneaker{}, errors.New("brand and name required")
	}
	if input.Price <= 0 {
		return Sneaker{}, errors.New("price must be positive")
	}

	release := time.Now().UTC()
	if input.ReleaseDate != "" {
		parsed, err := time.Parse("2006-01-02", input.ReleaseDate)
		if err != nil {
			return Sneaker{}, fmt.Errorf("release_date: %w", err)
		}
		release = parsed
	}
	sku := input.SKU
	if sku == "" {
		sku = fmt.Sprintf("%s-%s", brandPrefix(input.Brand), uuid.NewString()[:8])
	}

	sneaker := Sneaker{
		ID:          uuid.NewString(),
		Brand:       input.Brand,
		Name:        input.Name,
		Price:       input.Price,
		RetailPrice: input.RetailPrice,
		Image:       input.Image,
		Thumbnail:   input.Thumbnail,
		Category:    input.Category,
		Colorway:    input.Colorway,
		Gender:      input.Gender,
		Rating:      input.Rating,
		Colors:      input.Colors,
		Description: input.Description,
		SKU:         sku,
		StyleID:     input.StyleID,
		ReleaseDate: release,
	}
	if sneaker.RetailPrice == 0 {
		sneaker.RetailPrice = sneaker.Price
	}
	if sneaker.Colors == nil {
		sneaker.Colors = []string{}
	}
	if err := s.insert(ctx, sneaker); err != nil {
		return Sneaker{}, err
	}
	return sneaker, nil
}

func (s *Store) insert(ctx context.Context, sneaker Sneaker) error {
	colors, err := json.Marshal(sneaker.Colors)
	if err != nil {
		return fmt.Errorf("marshal colors: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sneakers(id, brand, name, price, retail_price, image, thumbnail, category,
			colorway, gender, rating, colors, description, sku, style_id, release_date)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sneaker.ID, sneaker.Brand, sneaker.Name, sneaker.Price, sneaker.RetailPrice,
		sneaker.Image, sneaker.Thumbnail, sneaker.Category, sneaker.Colorway, sneaker.Gender,
		sneaker.Rating, string(colors), sneaker.Description, sneaker.SKU, sneaker.StyleID,
		sneaker.ReleaseDate.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert sneaker: %w", err)
	}
	return nil
}

// GetSneaker fetches one sneaker by id.
func (s *Store) GetSneaker(ctx context.Context, id string) (Sneaker, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sneakerColumns+` FROM sneakers WHERE id = ?`, id)
	sneaker, err := scanSneaker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Sneaker{}, err
		}
		return Sneaker{}, fmt.Errorf("get sneaker: %w", err)
	}
	return sneaker, nil
}

// ListSneakers returns the newest sneakers up to limit.
func (s *Store) ListSneakers(ctx context.Context, limit int) ([]Sneaker, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sneakerColumns+` FROM sneakers ORDER BY release_date DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sneakers: %w", err)
	}
	return collectSneakers(rows)
}

// SearchSneakers matches the query against brand, name, and colorway.
func (s *Store) SearchSneakers(ctx context.Context, query string, limit int) ([]Sneaker, error) {
	limit = clampLimit(limit)
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sneakerColumns+` FROM sneakers
		 WHERE brand LIKE ? OR name LIKE ? OR colorway LIKE ?
		 ORDER BY rating DESC, release_date DESC LIMIT ?`,
		pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search sneakers: %w", err)
	}
	return collectSneakers(rows)
}

// PopularBrands returns brands ordered by catalog presence.
func (s *Store) PopularBrands(ctx context.Context, limit int) ([]BrandCount, error) {
	if limit <= 0 || limit > 20 {
		limit = 8
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT brand, COUNT(*) AS n FROM sneakers GROUP BY brand ORDER BY n DESC, brand LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("popular brands: %w", err)
	}
	defer rows.Close()
	var brands []BrandCount
	for rows.Next() {
		var bc BrandCount
		if err := rows.Scan(&bc.Brand, &bc.Count); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, bc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter brands: %w", err)
	}
	return brands, nil
}

// Seed inserts n random sneakers for local development.
func (s *Store) Seed(ctx context.Context, n int) ([]Sneaker, error) {
	if n <= 0 || n > 200 {
		n = 24
	}
	seeded := make([]Sneaker, 0, n)
	for i := 0; i < n; i++ {
		sneaker, err := s.CreateRandomSneaker(ctx)
		if err != nil {
			return seeded, err
		}
		seeded = append(seeded, sneaker)
	}
	return seeded, nil
}

// CreateRandomSneaker generates a plausible catalog entry.
func (s *Store) CreateRandomSneaker(ctx context.Context) (Sneaker, error) {
	brand := randomBrands[s.rnd.Intn(len(randomBrands))]
	model := randomModels[s.rnd.Intn(len(randomModels))]
	colorway := randomColorways[s.rnd.Intn(len(randomColorways))]
	price := float64(80+s.rnd.Intn(180)) + 0.99
	styleID := fmt.Sprintf("%s%04d", brandPrefix(brand), s.rnd.Intn(10000))

	sneaker := Sneaker{
		ID:          uuid.NewString(),
		Brand:       brand,
		Name:        fmt.Sprintf("%s %s", brand, model),
		Price:       price,
		RetailPrice: price + float64(s.rnd.Intn(40)),
		Image:       fmt.Sprintf("https://images.example.com/sneakers/%s.png", styleID),
		Thumbnail:   fmt.Sprintf("https://images.example.com/sneakers/%s-thumb.png", styleID),
		Category:    randomCategories[s.rnd.Intn(len(randomCategories))],
		Colorway:    colorway,
		Gender:      randomGenders[s.rnd.Intn(len(randomGenders))],
		Rating:      3.5 + s.rnd.Float64()*1.5,
		Colors:      strings.Split(strings.ToLower(colorway), "/"),
		Description: fmt.Sprintf("The %s %s in the %s colorway.", brand, model, colorway),
		SKU:         fmt.Sprintf("%s-%s", brandPrefix(brand), uuid.NewString()[:8]),
		StyleID:     styleID,
		ReleaseDate: time.Now().UTC().AddDate(0, 0, -s.rnd.Intn(720)),
	}
	if err := s.insert(ctx, sneaker); err != nil {
		return Sneaker{}, err
	}
	return sneaker, nil
}

// brandPrefix derives the uppercase SKU/style prefix, tolerating brands
// shorter than two characters.
func brandPrefix(brand string) string {
	prefix := strings.ToUpper(strings.TrimSpace(brand))
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return prefix
}

const sneakerColumns = `id, brand, name, price, retail_price, image, thumbnail, category,
	colorway, gender, rating, colors, description, sku, style_id, release_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSneaker(row rowScanner) (Sneaker, error) {
	var (
		sneaker Sneaker
		colors  string
	)
	err := row.Scan(
		&sneaker.ID, &sneaker.Brand, &sneaker.Name, &sneaker.Price, &sneaker.RetailPrice,
		&sneaker.Image, &sneaker.Thumbnail, &sneaker.Category, &sneaker.Colorway,
		&sneaker.Gender, &sneaker.Rating, &colors, &sneaker.Description, &sneaker.SKU,
		&sneaker.StyleID, &sneaker.ReleaseDate,
	)
	if err != nil {
		return Sneaker{}, err
	}
	if err := json.Unmarshal([]byte(colors), &sneaker.Colors); err != nil {
		return Sneaker{}, fmt.Errorf("decode colors: %w", err)
	}
	return sneaker, nil
}

func collectSneakers(rows *sql.Rows) ([]Sneaker, error) {
	defer rows.Close()
	var sneakers []Sneaker
	for rows.Next() {
		sneaker, err := scanSneaker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sneaker: %w", err)
		}
		sneakers = append(sneakers, sneaker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter sneakers: %w", err)
	}
	return sneakers, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

var (
	randomBrands     = []string{"Nike", "Adidas", "Jordan", "New Balance", "Puma", "Asics", "Reebok", "Converse"}
	randomModels     = []string{"Air Max 95", "Dunk Low", "Samba OG", "990v6", "Gel-Kayano 14", "Club C 85", "Suede Classic", "Chuck 70", "Forum Low", "Air Force 1"}
	randomColorways  = []string{"White/Black", "Triple Black", "Sail/Gum", "University Blue/White", "Wolf Grey/Volt", "Cream/Green", "Navy/Red", "Bred"}
	randomCategories = []string{"running", "basketball", "lifestyle", "skate", "training"}
	randomGenders    = []string{"men", "women", "unisex"}
)
