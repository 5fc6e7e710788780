package jobs

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pushkind/crawler-service/internal/domain"
	"github.com/pushkind/crawler-service/internal/embedding"
	"github.com/pushkind/crawler-service/internal/stores"
)

// fakeStore implements Store in memory with an event log, mirroring what
// the real repository would do per call.
type fakeStore struct {
	mu sync.Mutex

	crawlers   []domain.Crawler
	benchmarks map[int]domain.Benchmark
	products   map[int][]domain.Product
	categories map[int][]domain.Category

	lockHeld map[int]bool

	created        []domain.NewProduct
	updated        []domain.NewProduct
	associations   map[int]float32
	assignments    map[int]*int
	productBlobs   map[int][]byte
	categoryBlobs  map[int][]byte
	benchmarkBlobs map[int][]byte

	events []string

	getCrawlerErr           error
	listProductsErr         error
	deleteProductsErr       error
	createProductsErr       error
	updateProductsErr       error
	claimErr                error
	releaseErr              error
	setCategoryEmbeddingErr error
	associationFailFor      map[int]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		benchmarks:         map[int]domain.Benchmark{},
		products:           map[int][]domain.Product{},
		categories:         map[int][]domain.Category{},
		lockHeld:           map[int]bool{},
		associations:       map[int]float32{},
		assignments:        map[int]*int{},
		productBlobs:       map[int][]byte{},
		categoryBlobs:      map[int][]byte{},
		benchmarkBlobs:     map[int][]byte{},
		associationFailFor: map[int]bool{},
	}
}

func (s *fakeStore) event(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *fakeStore) eventLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *fakeStore) GetCrawler(ctx context.Context, selector string) (*domain.Crawler, error) {
	if s.getCrawlerErr != nil {
		return nil, s.getCrawlerErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.crawlers {
		if c.Selector == selector {
			crawler := c
			return &crawler, nil
		}
	}
	return nil, fmt.Errorf("crawler %q: not found", selector)
}

func (s *fakeStore) ListCrawlers(ctx context.Context, hubID int) ([]domain.Crawler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Crawler
	for _, c := range s.crawlers {
		if c.HubID == hubID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateCrawlerStats(ctx context.Context, crawlerID int) error {
	s.event(fmt.Sprintf("crawler_stats:%d", crawlerID))
	return nil
}

func (s *fakeStore) ListProducts(ctx context.Context, crawlerID int) ([]domain.Product, error) {
	if s.listProductsErr != nil {
		return nil, s.listProductsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[crawlerID], nil
}

func (s *fakeStore) CreateProducts(ctx context.Context, products []domain.NewProduct) (int, error) {
	s.event("create")
	if s.createProductsErr != nil {
		return 0, s.createProductsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, products...)
	return len(products), nil
}

func (s *fakeStore) UpdateProducts(ctx context.Context, products []domain.NewProduct) (int, error) {
	s.event("update")
	if s.updateProductsErr != nil {
		return 0, s.updateProductsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, products...)
	return len(products), nil
}

func (s *fakeStore) DeleteProducts(ctx context.Context, crawlerID int) (int, error) {
	s.event("delete")
	if s.deleteProductsErr != nil {
		return 0, s.deleteProductsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := len(s.products[crawlerID])
	delete(s.products, crawlerID)
	return deleted, nil
}

func (s *fakeStore) SetProductEmbedding(ctx context.Context, productID int, embedding []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productBlobs[productID] = embedding
	return nil
}

func (s *fakeStore) GetBenchmark(ctx context.Context, benchmarkID int) (*domain.Benchmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.benchmarks[benchmarkID]
	if !ok {
		return nil, fmt.Errorf("benchmark %d: not found", benchmarkID)
	}
	return &b, nil
}

func (s *fakeStore) SetBenchmarkEmbedding(ctx context.Context, benchmarkID int, embedding []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarkBlobs[benchmarkID] = embedding
	return nil
}

func (s *fakeStore) RemoveBenchmarkAssociations(ctx context.Context, benchmarkID int) (int, error) {
	s.event("remove_associations")
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.associations)
	s.associations = map[int]float32{}
	return removed, nil
}

func (s *fakeStore) SetBenchmarkAssociation(ctx context.Context, benchmarkID, productID int, distance float32) error {
	if s.associationFailFor[productID] {
		return fmt.Errorf("injected association failure for product %d", productID)
	}
	s.event(fmt.Sprintf("associate:%d", productID))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associations[productID] = distance
	return nil
}

func (s *fakeStore) UpdateBenchmarkStats(ctx context.Context, benchmarkID int) error {
	s.event(fmt.Sprintf("benchmark_stats:%d", benchmarkID))
	return nil
}

func (s *fakeStore) ListCategories(ctx context.Context, hubID int) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories[hubID], nil
}

func (s *fakeStore) SetCategoryEmbedding(ctx context.Context, categoryID int, embedding []byte) error {
	if s.setCategoryEmbeddingErr != nil {
		return s.setCategoryEmbeddingErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categoryBlobs[categoryID] = embedding
	return nil
}

func (s *fakeStore) SetProductCategoryAutomatic(ctx context.Context, productID int, categoryID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if categoryID == nil {
		s.assignments[productID] = nil
		return nil
	}
	id := *categoryID
	s.assignments[productID] = &id
	return nil
}

func (s *fakeStore) ClaimHubProcessing(ctx context.Context, hubID int) (bool, error) {
	if s.claimErr != nil {
		return false, s.claimErr
	}
	s.mu.Lock()
	held := s.lockHeld[hubID]
	if !held {
		s.lockHeld[hubID] = true
	}
	s.mu.Unlock()
	if held {
		s.event("claim->busy")
		return false, nil
	}
	s.event("claim")
	return true, nil
}

func (s *fakeStore) ReleaseHubProcessing(ctx context.Context, hubID int) error {
	s.event("release")
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.mu.Lock()
	s.lockHeld[hubID] = false
	s.mu.Unlock()
	return nil
}

// fakeProvider answers embedding requests from a lookup function.
type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	err      error
	response func(text string) []float32
}

func (p *fakeProvider) GenerateEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if p.response != nil {
			out[i] = p.response(text)
		} else {
			out[i] = []float32{1, 0}
		}
	}
	return out, nil
}

func (p *fakeProvider) ModelVersion() string { return "fake-embedder" }

func (p *fakeProvider) Dimension() int { return 2 }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeSource serves canned products instead of scraping.
type fakeSource struct {
	all    []domain.NewProduct
	byURL  map[string][]domain.NewProduct
	called []string
	mu     sync.Mutex
}

func (s *fakeSource) GetProducts(ctx context.Context) []domain.NewProduct {
	return s.all
}

func (s *fakeSource) GetProduct(ctx context.Context, url string) []domain.NewProduct {
	s.mu.Lock()
	s.called = append(s.called, url)
	s.mu.Unlock()
	return s.byURL[url]
}

func newTestProcessor(store *fakeStore, provider embedding.Provider, source ProductSource) *Processor {
	return New(Config{
		Store:       store,
		NewProvider: func() embedding.Provider { return provider },
		NewSource: func(profile stores.Profile, crawlerID int) (ProductSource, error) {
			return source, nil
		},
		Retry: embedding.RetryConfig{
			MaxRetries:    1,
			InitialDelay:  time.Millisecond,
			MaxDelay:      time.Millisecond,
			BackoffFactor: 2,
		},
	})
}

// blob encodes a vector the way the repository stores it.
func blob(vec ...float32) []byte {
	return embedding.EncodeBlob(vec)
}

// simBlob encodes a unit vector whose cosine similarity to (1, 0) is sim.
func simBlob(sim float64) []byte {
	return blob(float32(sim), float32(math.Sqrt(1-sim*sim)))
}
