// Package stores holds scraping profiles for the supported web stores.
// Extraction is fully selector-driven: adding a store means writing a
// profile, not a crawler.
package stores

// Profile describes how one store lays out its catalog and product
// pages. Selector fields hold CSS selectors; empty fields mean the
// store does not expose that piece of data.
type Profile struct {
	// Selector is the name control messages use to address this store.
	Selector string
	// BaseURL is the landing page; relative links resolve against it.
	BaseURL string

	// Listing traversal.
	CategoryLinks   string // anchors to category pages on the landing page
	PaginationBlock string // container of the pager on a category page
	PaginationLinks string // page-number anchors inside the block
	PageParam       string // query parameter carrying the page number
	ProductLinks    string // anchors to product pages on a listing page

	// Product page fields.
	Name        string
	Description string
	Breadcrumbs string // all matches joined with " / " form the category path
	SKU         string
	Price       string
	Units       string
	Amount      string
	AmountUnits string // combined text like "/100 г", split by the canonicaliser
	Images      string // img elements; src resolved against BaseURL

	// Variant products. When VariantSelector matches an element whose
	// VariantAttr attribute holds JSON with a "variants" array, every
	// variant becomes its own product and the page URL gets a "#<sku>"
	// suffix so variants stay distinct rows.
	VariantSelector string
	VariantAttr     string
}

// HasVariants reports whether the profile expects embedded variant JSON.
func (p Profile) HasVariants() bool {
	return p.VariantSelector != "" && p.VariantAttr != ""
}
