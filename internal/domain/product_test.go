package domain

import (
	"errors"
	"testing"
)

func TestBuildProduct(t *testing.T) {
	raw := RawProduct{
		SKU:         "  TEA-001 ",
		Name:        " Да Хун Пао ",
		Price:       "1 250,00",
		Category:    " Чай / Улун ",
		Units:       "г",
		Amount:      "50",
		Description: " Утёсный улун ",
		URL:         " https://shop.example.ru/products/da-hong-pao ",
		Images:      []string{" https://cdn.example.ru/1.jpg", "", "https://cdn.example.ru/2.jpg "},
	}

	p, err := BuildProduct(7, raw)
	if err != nil {
		t.Fatalf("BuildProduct returned error: %v", err)
	}
	if p.CrawlerID != 7 {
		t.Errorf("CrawlerID = %d, want 7", p.CrawlerID)
	}
	if p.SKU != "TEA-001" {
		t.Errorf("SKU = %q, want %q", p.SKU, "TEA-001")
	}
	if p.Name != "Да Хун Пао" {
		t.Errorf("Name = %q, want %q", p.Name, "Да Хун Пао")
	}
	if p.Price != 1250.0 {
		t.Errorf("Price = %v, want 1250", p.Price)
	}
	if p.Units != "г" || p.Amount != 50.0 {
		t.Errorf("Amount/Units = %v %q, want 50 г", p.Amount, p.Units)
	}
	if p.URL != "https://shop.example.ru/products/da-hong-pao" {
		t.Errorf("URL not trimmed: %q", p.URL)
	}
	if len(p.Images) != 2 || p.Images[0] != "https://cdn.example.ru/1.jpg" || p.Images[1] != "https://cdn.example.ru/2.jpg" {
		t.Errorf("Images = %v, want two trimmed URLs", p.Images)
	}
}

func TestBuildProductCombinedAmountUnits(t *testing.T) {
	raw := RawProduct{
		SKU:         "GB-100",
		Name:        "Кофе молотый",
		Price:       "540",
		AmountUnits: "/100 г",
		URL:         "https://gutenberg.ru/catalog/coffee/100",
	}

	p, err := BuildProduct(1, raw)
	if err != nil {
		t.Fatalf("BuildProduct returned error: %v", err)
	}
	if p.Amount != 100.0 || p.Units != "г" {
		t.Errorf("Amount/Units = %v %q, want 100 г", p.Amount, p.Units)
	}
}

func TestBuildProductDefaults(t *testing.T) {
	raw := RawProduct{
		SKU:   "X-1",
		Name:  "Пуэр",
		Price: "300",
		URL:   "https://shop.example.ru/products/puer",
	}

	p, err := BuildProduct(1, raw)
	if err != nil {
		t.Fatalf("BuildProduct returned error: %v", err)
	}
	if p.Amount != 1.0 {
		t.Errorf("Amount = %v, want default 1", p.Amount)
	}
	if p.Units != DefaultUnits {
		t.Errorf("Units = %q, want default %q", p.Units, DefaultUnits)
	}
	if p.Images == nil {
		t.Error("Images should be an empty slice, not nil")
	}
}

func TestBuildProductRejections(t *testing.T) {
	valid := RawProduct{
		SKU:   "X-1",
		Name:  "Пуэр",
		Price: "300",
		URL:   "https://shop.example.ru/products/puer",
	}

	tests := []struct {
		name      string
		mutate    func(r *RawProduct)
		wantField string
	}{
		{"Empty SKU", func(r *RawProduct) { r.SKU = "  " }, "sku"},
		{"Empty name", func(r *RawProduct) { r.Name = "" }, "name"},
		{"Empty URL", func(r *RawProduct) { r.URL = "\t" }, "url"},
		{"Price not a number", func(r *RawProduct) { r.Price = "договорная" }, "price"},
		{"Zero price", func(r *RawProduct) { r.Price = "0" }, "price"},
		{"Negative price", func(r *RawProduct) { r.Price = "-10" }, "price"},
		{"Empty price", func(r *RawProduct) { r.Price = "" }, "price"},
		{"Zero amount", func(r *RawProduct) { r.Amount = "0" }, "amount"},
		{"Negative amount", func(r *RawProduct) { r.Amount = "-2" }, "amount"},
		{"Amount not a number", func(r *RawProduct) { r.Amount = "много" }, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := valid
			tt.mutate(&raw)
			_, err := BuildProduct(1, raw)
			if err == nil {
				t.Fatal("BuildProduct accepted an invalid record")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is %T, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}
