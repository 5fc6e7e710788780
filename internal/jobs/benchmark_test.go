package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkind/crawler-service/internal/domain"
)

func benchmarkFixture() (*fakeStore, *fakeProvider, *Processor) {
	store := newFakeStore()
	store.benchmarks[9] = domain.Benchmark{
		ID:        9,
		HubID:     2,
		Name:      "Чай чёрный цейлонский",
		SKU:       "BM-009",
		Embedding: blob(1, 0),
	}
	provider := &fakeProvider{}
	processor := newTestProcessor(store, provider, &fakeSource{})
	return store, provider, processor
}

func TestProcessBenchmarkAssociations(t *testing.T) {
	store, _, processor := benchmarkFixture()
	store.crawlers = []domain.Crawler{
		{ID: 21, HubID: 2, Selector: "rusteaco"},
		{ID: 22, HubID: 2, Selector: "101tea"},
	}

	// Crawler 21 carries four products inside the similarity threshold and
	// eight well outside it; crawler 22 carries one exact match.
	sims := []float64{0.95, 0.90, 0.85, 0.81}
	for i, sim := range sims {
		store.products[21] = append(store.products[21], domain.Product{
			ID: 2101 + i, CrawlerID: 21, Name: fmt.Sprintf("Чай %d", i), Embedding: simBlob(sim),
		})
	}
	for i := 0; i < 8; i++ {
		store.products[21] = append(store.products[21], domain.Product{
			ID: 2110 + i, CrawlerID: 21, Name: fmt.Sprintf("Кофе %d", i), Embedding: simBlob(0.5),
		})
	}
	store.products[22] = []domain.Product{
		{ID: 2201, CrawlerID: 22, Name: "Чай цейлонский", Embedding: blob(1, 0)},
	}

	err := processor.ProcessBenchmark(context.Background(), 9)

	require.NoError(t, err)
	assert.Len(t, store.associations, 5)
	for _, productID := range []int{2101, 2102, 2103, 2104, 2201} {
		assert.Contains(t, store.associations, productID)
	}
	assert.InDelta(t, 0.05, store.associations[2101], 1e-3)
	assert.InDelta(t, 0.19, store.associations[2104], 1e-3)
	assert.InDelta(t, 0.0, store.associations[2201], 1e-3)

	events := store.eventLog()
	assert.Equal(t, "claim", events[0])
	assert.Equal(t, "remove_associations", events[1], "old associations go away before new ones are written")
	assert.Equal(t, "benchmark_stats:9", events[len(events)-2])
	assert.Equal(t, "release", events[len(events)-1])
}

func TestProcessBenchmarkTopKCap(t *testing.T) {
	store, _, processor := benchmarkFixture()
	store.crawlers = []domain.Crawler{{ID: 21, HubID: 2, Selector: "rusteaco"}}
	for i := 1; i <= 11; i++ {
		store.products[21] = append(store.products[21], domain.Product{
			ID: i, CrawlerID: 21, Name: fmt.Sprintf("Чай %d", i), Embedding: blob(1, 0),
		})
	}

	err := processor.ProcessBenchmark(context.Background(), 9)

	require.NoError(t, err)
	assert.Len(t, store.associations, BenchmarkTopK)
	assert.NotContains(t, store.associations, 11, "ties keep input order, so the last product falls off")
}

func TestProcessBenchmarkGeneratesMissingEmbeddings(t *testing.T) {
	store, provider, processor := benchmarkFixture()
	benchmark := store.benchmarks[9]
	benchmark.Embedding = nil
	store.benchmarks[9] = benchmark
	store.crawlers = []domain.Crawler{{ID: 21, HubID: 2, Selector: "rusteaco"}}
	store.products[21] = []domain.Product{
		{ID: 2101, CrawlerID: 21, Name: "Чай чёрный", SKU: "T-1"},
	}

	err := processor.ProcessBenchmark(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, 2, provider.callCount(), "one batch for the benchmark, one for the product")
	assert.Equal(t, blob(1, 0), store.benchmarkBlobs[9])
	assert.Equal(t, blob(1, 0), store.productBlobs[2101])
	assert.Contains(t, store.associations, 2101)
}

func TestProcessBenchmarkReusesStoredEmbeddings(t *testing.T) {
	store, provider, processor := benchmarkFixture()
	store.crawlers = []domain.Crawler{{ID: 21, HubID: 2, Selector: "rusteaco"}}
	store.products[21] = []domain.Product{
		{ID: 2101, CrawlerID: 21, Name: "Чай чёрный", Embedding: blob(1, 0)},
	}

	err := processor.ProcessBenchmark(context.Background(), 9)

	require.NoError(t, err)
	assert.Zero(t, provider.callCount(), "stored vectors must not hit the model")
	assert.Empty(t, store.benchmarkBlobs)
	assert.Empty(t, store.productBlobs)
}

func TestProcessBenchmarkAlreadyRunning(t *testing.T) {
	store, _, processor := benchmarkFixture()
	benchmark := store.benchmarks[9]
	benchmark.Processing = true
	store.benchmarks[9] = benchmark

	err := processor.ProcessBenchmark(context.Background(), 9)

	assert.NoError(t, err)
	assert.Empty(t, store.eventLog())
}

func TestProcessBenchmarkSkipsWhenHubBusy(t *testing.T) {
	store, _, processor := benchmarkFixture()
	store.lockHeld[2] = true

	err := processor.ProcessBenchmark(context.Background(), 9)

	assert.NoError(t, err)
	assert.Equal(t, []string{"claim->busy"}, store.eventLog())
	assert.Empty(t, store.associations)
}

func TestProcessBenchmarkNotFound(t *testing.T) {
	store, _, processor := benchmarkFixture()

	err := processor.ProcessBenchmark(context.Background(), 404)

	require.Error(t, err)
	assert.Empty(t, store.eventLog())
}

func TestProcessBenchmarkAssociationFailureContinues(t *testing.T) {
	store, _, processor := benchmarkFixture()
	store.crawlers = []domain.Crawler{{ID: 21, HubID: 2, Selector: "rusteaco"}}
	store.products[21] = []domain.Product{
		{ID: 2101, CrawlerID: 21, Name: "Чай чёрный", Embedding: blob(1, 0)},
		{ID: 2102, CrawlerID: 21, Name: "Чай зелёный", Embedding: simBlob(0.9)},
	}
	store.associationFailFor[2101] = true

	err := processor.ProcessBenchmark(context.Background(), 9)

	require.NoError(t, err, "one failed insert must not abort the run")
	assert.NotContains(t, store.associations, 2101)
	assert.Contains(t, store.associations, 2102)
	assert.Contains(t, store.eventLog(), "benchmark_stats:9")
}

func TestProcessBenchmarkEmbeddingFailureReleasesLock(t *testing.T) {
	store, provider, processor := benchmarkFixture()
	benchmark := store.benchmarks[9]
	benchmark.Embedding = nil
	store.benchmarks[9] = benchmark
	provider.err = errors.New("model endpoint unavailable")

	err := processor.ProcessBenchmark(context.Background(), 9)

	require.Error(t, err)
	assert.Equal(t, []string{"claim", "release"}, store.eventLog())
	assert.False(t, store.lockHeld[2])
}
