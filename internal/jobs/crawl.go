package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushkind/crawler-service/internal/domain"
	"github.com/pushkind/crawler-service/internal/stores"
)

// ProcessCrawl runs one crawl of the named store. A nil urls list means
// a full replace of the crawler's product set; an explicit list patches
// only those product pages, even when it is empty.
func (p *Processor) ProcessCrawl(ctx context.Context, selector string, urls []string) error {
	start := time.Now()
	logger := p.logger.With().Str("job", "crawl").Str("selector", selector).Logger()
	logger.Info().Int("urls", len(urls)).Msg("Received crawler")

	profile, err := stores.Get(selector)
	if err != nil {
		logger.Error().Err(err).Msg("Unknown crawler")
		jobsProcessed.WithLabelValues("crawl", "error").Inc()
		return err
	}

	crawler, err := p.store.GetCrawler(ctx, selector)
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving crawler")
		jobsProcessed.WithLabelValues("crawl", "error").Inc()
		return err
	}
	if crawler.Processing {
		logger.Warn().Msg("Crawler is already running")
		jobsProcessed.WithLabelValues("crawl", "skipped").Inc()
		return nil
	}

	skipped, err := p.runWithHubGuard(ctx, crawler.HubID, logger, func(ctx context.Context) error {
		return p.runCrawl(ctx, logger, profile, crawler, urls)
	})
	if skipped {
		lockSkips.WithLabelValues("crawl").Inc()
		jobsProcessed.WithLabelValues("crawl", "skipped").Inc()
		return nil
	}
	if err != nil {
		jobsProcessed.WithLabelValues("crawl", "error").Inc()
		return err
	}

	jobsProcessed.WithLabelValues("crawl", "ok").Inc()
	jobDuration.WithLabelValues("crawl").Observe(time.Since(start).Seconds())
	logger.Info().Dur("took", time.Since(start)).Msg("Finished processing crawler")
	return nil
}

func (p *Processor) runCrawl(ctx context.Context, logger zerolog.Logger, profile stores.Profile, crawler *domain.Crawler, urls []string) error {
	source, err := p.newSource(profile, crawler.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build crawl runner")
		return err
	}

	// Crawler statistics refresh however the run went; the recount also
	// clears the per-entity processing flag.
	defer func() {
		statsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := p.store.UpdateCrawlerStats(statsCtx, crawler.ID); err != nil {
			logger.Error().Err(err).Msg("Error updating crawler stats")
		}
	}()

	if urls == nil {
		return p.replaceProducts(ctx, logger, source, crawler)
	}
	return p.patchProducts(ctx, logger, source, crawler, urls)
}

// replaceProducts is the full crawl: the old product set goes away first,
// then the freshly scraped one is inserted.
func (p *Processor) replaceProducts(ctx context.Context, logger zerolog.Logger, source ProductSource, crawler *domain.Crawler) error {
	if _, err := p.store.DeleteProducts(ctx, crawler.ID); err != nil {
		logger.Error().Err(err).Msg("Error deleting products")
		return err
	}

	products := source.GetProducts(ctx)

	created, err := p.store.CreateProducts(ctx, products)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating products")
		return err
	}
	productsPersisted.WithLabelValues(crawler.Selector, "full").Add(float64(created))
	logger.Info().Int("products", created).Msg("Replaced product set")
	return nil
}

// patchProducts re-scrapes the given product pages and upserts whatever
// they currently serve.
func (p *Processor) patchProducts(ctx context.Context, logger zerolog.Logger, source ProductSource, crawler *domain.Crawler, urls []string) error {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var products []domain.NewProduct

	for _, u := range urls {
		wg.Add(1)
		go func(pageURL string) {
			defer wg.Done()
			found := source.GetProduct(ctx, pageURL)
			mu.Lock()
			products = append(products, found...)
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	updated, err := p.store.UpdateProducts(ctx, products)
	if err != nil {
		logger.Error().Err(err).Msg("Error updating products")
		return err
	}
	productsPersisted.WithLabelValues(crawler.Selector, "patch").Add(float64(updated))
	logger.Info().Int("products", updated).Msg("Patched product set")
	return nil
}
