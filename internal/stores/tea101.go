package stores

// Selector101Tea addresses the 101tea.ru profile.
const Selector101Tea = "101tea"

// Tea101 is the profile for the 101 Tea web store. The site runs on
// Bitrix, hence the PAGEN_1 pagination parameter. Units and amount
// come from separate spans next to the price.
var Tea101 = Profile{
	Selector: Selector101Tea,
	BaseURL:  "https://101tea.ru/",

	CategoryLinks:   "a.catalog-nav__link",
	PaginationBlock: "div.pagination",
	PaginationLinks: "a.pagination-links",
	PageParam:       "PAGEN_1",
	ProductLinks:    "div.product-card__info-bottom > a",

	Name:        "h1",
	Description: "div.catalog-table_content-item_about_product",
	Breadcrumbs: "a.breadcrumbs__list-link",
	SKU:         "div.product_art span:nth-child(2)",
	Price:       "span.js-price-val",
	Units:       "span.product-card__calculus-unit",
	Amount:      "span.js-product-calc-value",
	Images:      "div.product-card__slider img",
}
