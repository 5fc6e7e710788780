// Package jobs runs the three job kinds the worker accepts: crawl,
// benchmark matching and category matching. Each job owns its run from the
// envelope payload to the final statistics update.
package jobs

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pushkind/crawler-service/internal/crawl"
	"github.com/pushkind/crawler-service/internal/domain"
	"github.com/pushkind/crawler-service/internal/embedding"
	"github.com/pushkind/crawler-service/internal/stores"
)

// SimilarityThreshold is the minimum cosine similarity for recording a
// match, shared by the benchmark and category matchers.
const SimilarityThreshold = 0.80

// BenchmarkTopK bounds how many candidate products one crawler contributes
// to a benchmark.
const BenchmarkTopK = 10

// Store is the repository surface the jobs depend on.
type Store interface {
	GetCrawler(ctx context.Context, selector string) (*domain.Crawler, error)
	ListCrawlers(ctx context.Context, hubID int) ([]domain.Crawler, error)
	UpdateCrawlerStats(ctx context.Context, crawlerID int) error

	ListProducts(ctx context.Context, crawlerID int) ([]domain.Product, error)
	CreateProducts(ctx context.Context, products []domain.NewProduct) (int, error)
	UpdateProducts(ctx context.Context, products []domain.NewProduct) (int, error)
	DeleteProducts(ctx context.Context, crawlerID int) (int, error)
	SetProductEmbedding(ctx context.Context, productID int, embedding []byte) error

	GetBenchmark(ctx context.Context, benchmarkID int) (*domain.Benchmark, error)
	SetBenchmarkEmbedding(ctx context.Context, benchmarkID int, embedding []byte) error
	RemoveBenchmarkAssociations(ctx context.Context, benchmarkID int) (int, error)
	SetBenchmarkAssociation(ctx context.Context, benchmarkID, productID int, distance float32) error
	UpdateBenchmarkStats(ctx context.Context, benchmarkID int) error

	ListCategories(ctx context.Context, hubID int) ([]domain.Category, error)
	SetCategoryEmbedding(ctx context.Context, categoryID int, embedding []byte) error
	SetProductCategoryAutomatic(ctx context.Context, productID int, categoryID *int) error

	HubGuard
}

// ProductSource yields scraped products for one store crawl. Implemented
// by crawl.Runner; swapped for a fake in tests.
type ProductSource interface {
	GetProducts(ctx context.Context) []domain.NewProduct
	GetProduct(ctx context.Context, url string) []domain.NewProduct
}

// Config wires a Processor. Optional fields left zero fall back to
// production defaults.
type Config struct {
	Store Store

	// NewProvider builds the embedding provider for one job. Jobs never
	// share a provider instance.
	NewProvider func() embedding.Provider

	// NewSource overrides how crawl runners are built. Tests use it to
	// avoid real HTTP.
	NewSource func(profile stores.Profile, crawlerID int) (ProductSource, error)

	Retry   embedding.RetryConfig
	Fetcher crawl.FetcherConfig
}

// Processor executes jobs against the shared store. Safe for concurrent
// use; each job runs independently under the hub processing lock.
type Processor struct {
	store       Store
	newProvider func() embedding.Provider
	newSource   func(profile stores.Profile, crawlerID int) (ProductSource, error)
	retry       embedding.RetryConfig
	active      *hubRegistry
	logger      zerolog.Logger
}

// New builds a Processor from the given configuration.
func New(cfg Config) *Processor {
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.InitialDelay == 0 {
		retry = embedding.DefaultRetryConfig()
	}

	newSource := cfg.NewSource
	if newSource == nil {
		fetcherCfg := cfg.Fetcher
		newSource = func(profile stores.Profile, crawlerID int) (ProductSource, error) {
			return crawl.NewRunner(crawl.NewFetcher(fetcherCfg), profile, crawlerID)
		}
	}

	return &Processor{
		store:       cfg.Store,
		newProvider: cfg.NewProvider,
		newSource:   newSource,
		retry:       retry,
		active:      newHubRegistry(),
		logger:      log.With().Str("component", "jobs").Logger(),
	}
}

// productEmbedding resolves a product's vector from its stored blob or the
// provider, persisting freshly generated ones.
func (p *Processor) productEmbedding(ctx context.Context, provider embedding.Provider, product domain.Product) ([]float32, bool, error) {
	prompt := embedding.ProductPrompt(product.Name, product.SKU, product.Category,
		product.Units, product.Price, product.Amount, product.Description)
	return embedding.LoadOrGenerate(ctx, product.Embedding, prompt, provider, p.retry, func(vec []float32) error {
		return p.store.SetProductEmbedding(ctx, product.ID, embedding.EncodeBlob(vec))
	})
}
