package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushkind/crawler-service/internal/domain"
	"github.com/pushkind/crawler-service/internal/embedding"
)

// ProcessBenchmark refreshes the product associations of one benchmark:
// per crawler of the benchmark's hub, the top candidates by cosine
// similarity are recorded together with their distance.
func (p *Processor) ProcessBenchmark(ctx context.Context, benchmarkID int) error {
	start := time.Now()
	logger := p.logger.With().Str("job", "benchmark").Int("benchmark_id", benchmarkID).Logger()
	logger.Info().Msg("Received benchmark")

	benchmark, err := p.store.GetBenchmark(ctx, benchmarkID)
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving benchmark")
		jobsProcessed.WithLabelValues("benchmark", "error").Inc()
		return err
	}
	if benchmark.Processing {
		logger.Warn().Msg("Benchmark is already running")
		jobsProcessed.WithLabelValues("benchmark", "skipped").Inc()
		return nil
	}

	skipped, err := p.runWithHubGuard(ctx, benchmark.HubID, logger, func(ctx context.Context) error {
		return p.runBenchmark(ctx, logger, benchmark)
	})
	if skipped {
		lockSkips.WithLabelValues("benchmark").Inc()
		jobsProcessed.WithLabelValues("benchmark", "skipped").Inc()
		return nil
	}
	if err != nil {
		jobsProcessed.WithLabelValues("benchmark", "error").Inc()
		return err
	}

	jobsProcessed.WithLabelValues("benchmark", "ok").Inc()
	jobDuration.WithLabelValues("benchmark").Observe(time.Since(start).Seconds())
	logger.Info().Dur("took", time.Since(start)).Msg("Finished processing benchmark")
	return nil
}

func (p *Processor) runBenchmark(ctx context.Context, logger zerolog.Logger, benchmark *domain.Benchmark) error {
	provider := p.newProvider()

	prompt := embedding.ProductPrompt(benchmark.Name, benchmark.SKU, benchmark.Category,
		benchmark.Units, benchmark.Price, benchmark.Amount, benchmark.Description)
	benchVec, generated, err := embedding.LoadOrGenerate(ctx, benchmark.Embedding, prompt, provider, p.retry, func(vec []float32) error {
		return p.store.SetBenchmarkEmbedding(ctx, benchmark.ID, embedding.EncodeBlob(vec))
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve benchmark embedding")
		return err
	}
	if generated {
		embeddingsGenerated.WithLabelValues("benchmark").Inc()
	}

	crawlers, err := p.store.ListCrawlers(ctx, benchmark.HubID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list crawlers")
		return err
	}

	// Stale associations go away before any new ones are written, so an
	// aborted run never leaves a mix of old and new rows.
	if _, err := p.store.RemoveBenchmarkAssociations(ctx, benchmark.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to remove benchmark associations")
		return err
	}

	written := 0
	for _, crawler := range crawlers {
		products, err := p.store.ListProducts(ctx, crawler.ID)
		if err != nil {
			logger.Error().Err(err).Int("crawler_id", crawler.ID).Msg("Failed to list products")
			return err
		}

		items := make([]embedding.IndexItem, 0, len(products))
		for _, product := range products {
			vec, generated, err := p.productEmbedding(ctx, provider, product)
			if err != nil {
				logger.Error().Err(err).Int("product_id", product.ID).Msg("Failed to resolve product embedding")
				return err
			}
			if generated {
				embeddingsGenerated.WithLabelValues("product").Inc()
			}
			items = append(items, embedding.IndexItem{ID: product.ID, Vector: vec})
		}

		for _, neighbor := range embedding.SearchTopK(benchVec, items, BenchmarkTopK) {
			similarity := 1 - neighbor.Distance
			if float64(similarity) < SimilarityThreshold {
				continue
			}
			if err := p.store.SetBenchmarkAssociation(ctx, benchmark.ID, neighbor.ID, neighbor.Distance); err != nil {
				logger.Warn().Err(err).Int("product_id", neighbor.ID).Msg("Skipping benchmark association")
				continue
			}
			written++
		}
	}
	associationsWritten.Add(float64(written))

	if err := p.store.UpdateBenchmarkStats(ctx, benchmark.ID); err != nil {
		logger.Error().Err(err).Msg("Error updating benchmark stats")
		return err
	}

	logger.Info().Int("associations", written).Msg("Benchmark associations refreshed")
	return nil
}
