package stores

// SelectorGutenberg addresses the gutenberg.ru profile.
const SelectorGutenberg = "gutenberg"

// Gutenberg is the profile for the Gutenberg coffee and tea store.
// Amount and units share one span ("/100 г"); the canonicaliser
// splits it. The store exposes no product gallery worth scraping.
var Gutenberg = Profile{
	Selector: SelectorGutenberg,
	BaseURL:  "https://gutenberg.ru/",

	CategoryLinks:   "ul.menu-type-1 li a",
	PaginationBlock: "div.module-pagination",
	PaginationLinks: "div.nums > a",
	PageParam:       "page",
	ProductLinks:    "div.item-title > a",

	Name:        "h1#pagetitle",
	Description: "div[itemprop='description']",
	Breadcrumbs: "a.breadcrumbs__link",
	SKU:         "span.article__value",
	Price:       "span.price_value",
	AmountUnits: "span.price_measure",
}
