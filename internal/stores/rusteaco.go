package stores

// SelectorRusteaco addresses the shop.rusteaco.ru profile.
const SelectorRusteaco = "rusteaco"

// Rusteaco is the profile for the Russian Tea Company web store.
// Product pages embed variant JSON in a data attribute on the order
// form; pages without it fall back to a plain SKU span and carry no
// usable price.
var Rusteaco = Profile{
	Selector: SelectorRusteaco,
	BaseURL:  "https://shop.rusteaco.ru/",

	CategoryLinks:   "a.header__collections-link",
	PaginationBlock: "div.pagination-items",
	PaginationLinks: "a.pagination-link",
	PageParam:       "page",
	ProductLinks:    "div.product-preview__title > a",

	Name:        "h1.product__title",
	Description: "div.product__short-description",
	Breadcrumbs: "ul.breadcrumb li a",
	SKU:         "span.sku-value",
	Images:      "div.product__images img",

	VariantSelector: "form.product",
	VariantAttr:     "data-product-json",
}
