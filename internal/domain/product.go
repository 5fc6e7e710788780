package domain

import (
	"math"
	"strings"
)

// ValidationError reports why a scraped record cannot become a product.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid product " + e.Field + ": " + e.Reason
}

// RawProduct is what an extractor pulls off a page: trimmed nowhere,
// numbers still text. Either AmountUnits carries a combined string like
// "/100 г", or Amount and Units are separate fields; both may be empty.
type RawProduct struct {
	SKU         string
	Name        string
	Price       string
	Category    string
	Units       string
	Amount      string
	AmountUnits string
	Description string
	URL         string
	Images      []string
}

// NewProduct is a validated record ready to be persisted. It has no ID;
// the repository assigns one on insert or matches an existing row by
// (crawler_id, url).
type NewProduct struct {
	CrawlerID   int
	SKU         string
	Name        string
	Price       float64
	Category    string
	Units       string
	Amount      float64
	Description string
	URL         string
	Images      []string
}

// BuildProduct canonicalises a raw record into a NewProduct. Numeric
// fields accept a comma decimal separator and embedded spaces. Records
// failing validation are rejected with a *ValidationError; callers log
// and drop them rather than aborting the whole page.
func BuildProduct(crawlerID int, raw RawProduct) (NewProduct, error) {
	sku := strings.TrimSpace(raw.SKU)
	if sku == "" {
		return NewProduct{}, &ValidationError{Field: "sku", Reason: "empty"}
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return NewProduct{}, &ValidationError{Field: "name", Reason: "empty"}
	}
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return NewProduct{}, &ValidationError{Field: "url", Reason: "empty"}
	}

	price, err := parseDecimal(strings.TrimSpace(raw.Price))
	if err != nil {
		return NewProduct{}, &ValidationError{Field: "price", Reason: "not a number: " + raw.Price}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return NewProduct{}, &ValidationError{Field: "price", Reason: "not finite"}
	}
	if price <= 0 {
		return NewProduct{}, &ValidationError{Field: "price", Reason: "must be positive"}
	}

	amount, units, err := resolveAmountUnits(raw)
	if err != nil {
		return NewProduct{}, err
	}

	images := make([]string, 0, len(raw.Images))
	for _, img := range raw.Images {
		img = strings.TrimSpace(img)
		if img != "" {
			images = append(images, img)
		}
	}

	return NewProduct{
		CrawlerID:   crawlerID,
		SKU:         sku,
		Name:        name,
		Price:       price,
		Category:    strings.TrimSpace(raw.Category),
		Units:       units,
		Amount:      amount,
		Description: strings.TrimSpace(raw.Description),
		URL:         url,
		Images:      images,
	}, nil
}

func resolveAmountUnits(raw RawProduct) (float64, string, error) {
	var amount float64
	var units string

	if combined := strings.TrimSpace(raw.AmountUnits); combined != "" {
		amount, units = ParseAmountUnits(combined)
	} else {
		units = strings.TrimSpace(raw.Units)
		if units == "" {
			units = DefaultUnits
		}
		text := strings.TrimSpace(raw.Amount)
		if text == "" {
			amount = 1.0
		} else {
			var err error
			amount, err = parseDecimal(text)
			if err != nil {
				return 0, "", &ValidationError{Field: "amount", Reason: "not a number: " + raw.Amount}
			}
		}
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, "", &ValidationError{Field: "amount", Reason: "not finite"}
	}
	if amount <= 0 {
		return 0, "", &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return amount, units, nil
}
