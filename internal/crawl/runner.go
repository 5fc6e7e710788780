package crawl

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pushkind/crawler-service/internal/domain"
	"github.com/pushkind/crawler-service/internal/stores"
)

// Runner walks one store's catalog end to end: landing page, category
// pages, paginated listings, product pages. Stages run concurrently;
// the shared Fetcher caps how many requests are actually in flight.
type Runner struct {
	fetcher   *Fetcher
	profile   stores.Profile
	base      *url.URL
	crawlerID int
	logger    zerolog.Logger
}

// NewRunner builds a runner for one crawl of a store. The crawler ID
// is stamped onto every produced product.
func NewRunner(fetcher *Fetcher, profile stores.Profile, crawlerID int) (*Runner, error) {
	base, err := url.Parse(profile.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL for %s: %w", profile.Selector, err)
	}
	return &Runner{
		fetcher:   fetcher,
		profile:   profile,
		base:      base,
		crawlerID: crawlerID,
		logger: log.With().
			Str("component", "crawl_runner").
			Str("store", profile.Selector).
			Logger(),
	}, nil
}

// GetProducts crawls the whole store and returns every valid product
// found. Failed pages are logged and skipped; the crawl itself never
// fails, it just yields fewer products.
func (r *Runner) GetProducts(ctx context.Context) []domain.NewProduct {
	categories := r.categoryLinks(ctx)
	r.logger.Info().Int("categories", len(categories)).Msg("Discovered category pages")

	pages := r.fanOutLinks(ctx, categories, r.pageLinks)
	productLinks := dedupe(r.fanOutLinks(ctx, pages, r.productLinks))
	r.logger.Info().
		Int("pages", len(pages)).
		Int("product_links", len(productLinks)).
		Msg("Discovered product pages")

	var mu sync.Mutex
	var wg sync.WaitGroup
	var products []domain.NewProduct

	for _, link := range productLinks {
		wg.Add(1)
		go func(pageURL string) {
			defer wg.Done()
			found := r.GetProduct(ctx, pageURL)
			mu.Lock()
			products = append(products, found...)
			mu.Unlock()
		}(link)
	}
	wg.Wait()

	// Variants share a page but not a URL; duplicates can only come
	// from listings that link the same page twice.
	seen := make(map[string]struct{}, len(products))
	unique := products[:0]
	for _, p := range products {
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}
		unique = append(unique, p)
	}

	r.logger.Info().Int("products", len(unique)).Msg("Crawl finished")
	return unique
}

// GetProduct fetches one product page and returns its valid products.
// A page with variants yields several; a broken or invalid page yields
// none.
func (r *Runner) GetProduct(ctx context.Context, pageURL string) []domain.NewProduct {
	doc, err := r.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", pageURL).Msg("Skipping product page")
		return nil
	}

	raws, err := ExtractProducts(doc, r.profile, r.base, pageURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to extract products")
		return nil
	}

	products := make([]domain.NewProduct, 0, len(raws))
	for _, raw := range raws {
		p, err := domain.BuildProduct(r.crawlerID, raw)
		if err != nil {
			r.logger.Warn().Err(err).Str("url", raw.URL).Msg("Dropping invalid product record")
			continue
		}
		products = append(products, p)
	}
	return products
}

func (r *Runner) categoryLinks(ctx context.Context) []string {
	doc, err := r.fetcher.FetchDocument(ctx, r.base.String())
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to fetch landing page")
		return nil
	}
	return ExtractLinks(doc, r.profile.CategoryLinks, r.base)
}

func (r *Runner) pageLinks(ctx context.Context, categoryURL string) []string {
	doc, err := r.fetcher.FetchDocument(ctx, categoryURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", categoryURL).Msg("Skipping category page")
		return nil
	}
	return ExtractPageLinks(doc, r.profile, categoryURL)
}

func (r *Runner) productLinks(ctx context.Context, pageURL string) []string {
	doc, err := r.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", pageURL).Msg("Skipping listing page")
		return nil
	}
	return ExtractLinks(doc, r.profile.ProductLinks, r.base)
}

// fanOutLinks applies fn to every input concurrently and concatenates
// the results. Order follows goroutine completion, not input order;
// callers that care must dedupe or sort.
func (r *Runner) fanOutLinks(ctx context.Context, inputs []string, fn func(context.Context, string) []string) []string {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var out []string

	for _, input := range inputs {
		wg.Add(1)
		go func(in string) {
			defer wg.Done()
			links := fn(ctx, in)
			mu.Lock()
			out = append(out, links...)
			mu.Unlock()
		}(input)
	}
	wg.Wait()
	return out
}

func dedupe(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}
