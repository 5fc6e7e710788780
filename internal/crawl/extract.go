package crawl

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pushkind/crawler-service/internal/domain"
	"github.com/pushkind/crawler-service/internal/stores"
)

// ExtractLinks collects the href of every element matched by selector,
// resolved against base. Unparsable hrefs are skipped.
func ExtractLinks(doc *goquery.Document, selector string, base *url.URL) []string {
	var links []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		links = append(links, abs.String())
	})
	return links
}

// ExtractPageLinks returns pageURL itself plus a derived URL for every
// further page of the listing. The page count comes from the text of
// the last pagination link; pages 2..N get the profile's page
// parameter appended with any previous value dropped. A listing
// without a pager is a single page.
func ExtractPageLinks(doc *goquery.Document, profile stores.Profile, pageURL string) []string {
	result := []string{pageURL}

	block := doc.Find(profile.PaginationBlock).First()
	if block.Length() == 0 {
		return result
	}
	links := block.Find(profile.PaginationLinks)
	if links.Length() == 0 {
		return result
	}

	lastPage, err := strconv.Atoi(strings.TrimSpace(links.Last().Text()))
	if err != nil {
		return result
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return result
	}

	for i := 2; i <= lastPage; i++ {
		page := *parsed
		query := url.Values{}
		for k, vs := range parsed.Query() {
			if k == profile.PageParam {
				continue
			}
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		query.Set(profile.PageParam, strconv.Itoa(i))
		page.RawQuery = query.Encode()
		result = append(result, page.String())
	}
	return result
}

// variantJSON mirrors the payload embedded by stores that sell one
// page as several variants. Prices and weights arrive as strings with
// comma decimal separators.
type variantJSON struct {
	Variants []variantEntry `json:"variants"`
}

type variantEntry struct {
	SKU    string `json:"sku"`
	Price  string `json:"price"`
	Weight string `json:"weight"`
}

// ExtractProducts pulls every raw product record off a product page.
// Pages with embedded variant JSON yield one record per variant, each
// with "#<sku>" appended to the page URL so variants stay distinct.
// The records are unvalidated; the caller canonicalises them and drops
// the ones that fail.
func ExtractProducts(doc *goquery.Document, profile stores.Profile, base *url.URL, pageURL string) ([]domain.RawProduct, error) {
	name := textOf(doc, profile.Name)
	description := textOf(doc, profile.Description)
	category := breadcrumbsOf(doc, profile.Breadcrumbs)
	images := extractImages(doc, profile.Images, base)

	if profile.HasVariants() {
		form := doc.Find(profile.VariantSelector).First()
		if form.Length() == 0 {
			return nil, fmt.Errorf("no %s element on %s", profile.VariantSelector, pageURL)
		}
		if raw, ok := form.Attr(profile.VariantAttr); ok {
			return variantProducts(raw, name, category, description, pageURL, images)
		}
		// No variant attribute: fall through to plain extraction.
	}

	record := domain.RawProduct{
		SKU:         textOf(doc, profile.SKU),
		Name:        name,
		Price:       textOf(doc, profile.Price),
		Category:    category,
		Units:       textOf(doc, profile.Units),
		Amount:      textOf(doc, profile.Amount),
		AmountUnits: textOf(doc, profile.AmountUnits),
		Description: description,
		URL:         pageURL,
		Images:      images,
	}
	return []domain.RawProduct{record}, nil
}

func variantProducts(attr, name, category, description, pageURL string, images []string) ([]domain.RawProduct, error) {
	// The attribute value is HTML-escaped JSON.
	decoded := html.UnescapeString(attr)

	var payload variantJSON
	if err := json.Unmarshal([]byte(decoded), &payload); err != nil {
		return nil, fmt.Errorf("malformed variant JSON on %s: %w", pageURL, err)
	}

	records := make([]domain.RawProduct, 0, len(payload.Variants))
	for _, v := range payload.Variants {
		amount, units := weightToAmountUnits(v.Weight)
		records = append(records, domain.RawProduct{
			SKU:         v.SKU,
			Name:        name,
			Price:       v.Price,
			Category:    category,
			Units:       units,
			Amount:      amount,
			Description: description,
			URL:         VariantURL(pageURL, v.SKU),
			Images:      images,
		})
	}
	return records, nil
}

// weightToAmountUnits maps a variant weight to an amount/units pair.
// A parseable weight is kilograms; anything else sells by the piece.
func weightToAmountUnits(weight string) (string, string) {
	w := strings.ReplaceAll(strings.TrimSpace(weight), ",", ".")
	if w == "" {
		return "1", domain.DefaultUnits
	}
	if _, err := strconv.ParseFloat(w, 64); err != nil {
		return "1", domain.DefaultUnits
	}
	return w, "кг"
}

// VariantURL appends "#<sku>" to a product page URL, replacing any
// existing fragment. The result is the variant's natural key within
// its crawler.
func VariantURL(pageURL, sku string) string {
	if i := strings.IndexByte(pageURL, '#'); i >= 0 {
		pageURL = pageURL[:i]
	}
	return pageURL + "#" + sku
}

func textOf(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func breadcrumbsOf(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	var parts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(s.Text()))
	})
	return strings.Join(parts, " / ")
}

func extractImages(doc *goquery.Document, selector string, base *url.URL) []string {
	if selector == "" {
		return nil
	}
	var urls []string
	seen := make(map[string]struct{})
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			src, ok = s.Attr("data-src")
		}
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		abs, err := base.Parse(strings.TrimSpace(src))
		if err != nil {
			return
		}
		u := abs.String()
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	})
	return urls
}
