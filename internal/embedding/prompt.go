package embedding

import "strconv"

// ProductPrompt builds the text embedded for a product or a benchmark.
// Products and benchmarks share one prompt shape so their vectors live
// in the same space. Numbers render in minimal decimal form ("1250",
// "0.5"), never scientific notation.
func ProductPrompt(name, sku, category, units string, price, amount float64, description string) string {
	return "Name: " + name +
		"\nSKU: " + sku +
		"\nCategory: " + category +
		"\nUnits: " + units +
		"\nPrice: " + formatNumber(price) +
		"\nAmount: " + formatNumber(amount) +
		"\nDescription: " + description
}

// CategoryPrompt is the category name verbatim.
func CategoryPrompt(name string) string {
	return name
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
