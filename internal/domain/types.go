package domain

import (
	"time"
)

// AssignmentSource tells how a product got its category.
type AssignmentSource string

const (
	// AssignmentManual is set by an operator and never overwritten by jobs.
	AssignmentManual AssignmentSource = "manual"
	// AssignmentAutomatic is set by the category matcher.
	AssignmentAutomatic AssignmentSource = "automatic"
)

// Crawler is a configured site scraper owned by a hub.
type Crawler struct {
	ID          int       `json:"id"`
	HubID       int       `json:"hub_id"`
	Name        string    `json:"name"`
	Selector    string    `json:"selector"` // rusteaco, 101tea, gutenberg
	Processing  bool      `json:"processing"`
	NumProducts int       `json:"num_products"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Benchmark is a reference item products are ranked against.
type Benchmark struct {
	ID          int       `json:"id"`
	HubID       int       `json:"hub_id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Category    string    `json:"category"`
	Units       string    `json:"units"`
	Price       float64   `json:"price"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Embedding   []byte    `json:"-"`
	Processing  bool      `json:"processing"`
	NumProducts int       `json:"num_products"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category is one entry of a hub's category directory.
type Category struct {
	ID        int    `json:"id"`
	HubID     int    `json:"hub_id"`
	Name      string `json:"name"`
	Embedding []byte `json:"-"`
}

// Product is a persisted product row including its image URLs.
type Product struct {
	ID                       int              `json:"id"`
	CrawlerID                int              `json:"crawler_id"`
	SKU                      string           `json:"sku"`
	Name                     string           `json:"name"`
	Price                    float64          `json:"price"`
	Category                 string           `json:"category"`
	Units                    string           `json:"units"`
	Amount                   float64          `json:"amount"`
	Description              string           `json:"description"`
	URL                      string           `json:"url"`
	Images                   []string         `json:"images"`
	Embedding                []byte           `json:"-"`
	CategoryID               *int             `json:"category_id"`
	CategoryAssignmentSource AssignmentSource `json:"category_assignment_source"`
	UpdatedAt                time.Time        `json:"updated_at"`
}
