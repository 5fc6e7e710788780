package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushkind/crawler-service/internal/domain"
	"github.com/pushkind/crawler-service/internal/embedding"
)

// MatchStats summarises one category-match run.
type MatchStats struct {
	CategoriesLoaded            int
	ProductsLoaded              int
	CategoryEmbeddingsGenerated int
	ProductEmbeddingsGenerated  int
	Matched                     int
	Unmatched                   int
	SkippedBelowThreshold       int
	SkippedInvalidCategoryID    int
	SkippedNoCategoryCandidate  int
}

func (s MatchStats) anySkipped() bool {
	return s.SkippedBelowThreshold > 0 ||
		s.SkippedInvalidCategoryID > 0 ||
		s.SkippedNoCategoryCandidate > 0
}

// ProcessCategoryMatch assigns every product of the hub to its nearest
// category, or clears the automatic assignment when no category is close
// enough. Manual assignments are never touched.
func (p *Processor) ProcessCategoryMatch(ctx context.Context, hubID int) error {
	start := time.Now()
	logger := p.logger.With().Str("job", "category_match").Int("hub_id", hubID).Logger()
	logger.Info().Msg("Received category match")

	var stats MatchStats
	skipped, err := p.runWithHubGuard(ctx, hubID, logger, func(ctx context.Context) error {
		var jobErr error
		stats, jobErr = p.runCategoryMatch(ctx, logger, hubID)
		return jobErr
	})
	if skipped {
		lockSkips.WithLabelValues("category_match").Inc()
		jobsProcessed.WithLabelValues("category_match", "skipped").Inc()
		return nil
	}
	if err != nil {
		logger.Error().Msg("Category match failed")
		jobsProcessed.WithLabelValues("category_match", "error").Inc()
		return err
	}

	logger.Info().
		Int("categories_loaded", stats.CategoriesLoaded).
		Int("products_loaded", stats.ProductsLoaded).
		Int("category_embeddings_generated", stats.CategoryEmbeddingsGenerated).
		Int("product_embeddings_generated", stats.ProductEmbeddingsGenerated).
		Int("matched", stats.Matched).
		Int("unmatched", stats.Unmatched).
		Int("skipped_below_threshold", stats.SkippedBelowThreshold).
		Int("skipped_invalid_category_id", stats.SkippedInvalidCategoryID).
		Int("skipped_no_category_candidate", stats.SkippedNoCategoryCandidate).
		Msg("Finished category match")
	if stats.anySkipped() {
		logger.Warn().
			Int("below_threshold", stats.SkippedBelowThreshold).
			Int("invalid_category_id", stats.SkippedInvalidCategoryID).
			Int("no_candidate", stats.SkippedNoCategoryCandidate).
			Msg("Category match had skipped assignments")
	}

	jobsProcessed.WithLabelValues("category_match", "ok").Inc()
	jobDuration.WithLabelValues("category_match").Observe(time.Since(start).Seconds())
	return nil
}

func (p *Processor) runCategoryMatch(ctx context.Context, logger zerolog.Logger, hubID int) (MatchStats, error) {
	var stats MatchStats
	provider := p.newProvider()

	crawlers, err := p.store.ListCrawlers(ctx, hubID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list crawlers")
		return stats, err
	}

	var products []domain.Product
	for _, crawler := range crawlers {
		crawlerProducts, err := p.store.ListProducts(ctx, crawler.ID)
		if err != nil {
			logger.Error().Err(err).Int("crawler_id", crawler.ID).Msg("Failed to list products")
			return stats, err
		}
		products = append(products, crawlerProducts...)
	}
	stats.ProductsLoaded = len(products)

	categories, err := p.store.ListCategories(ctx, hubID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list categories")
		return stats, err
	}
	stats.CategoriesLoaded = len(categories)

	items := make([]embedding.IndexItem, 0, len(categories))
	for _, category := range categories {
		vec, generated, err := embedding.LoadOrGenerate(ctx, category.Embedding,
			embedding.CategoryPrompt(category.Name), provider, p.retry, func(vec []float32) error {
				return p.store.SetCategoryEmbedding(ctx, category.ID, embedding.EncodeBlob(vec))
			})
		if err != nil {
			logger.Error().Err(err).Int("category_id", category.ID).Msg("Failed to resolve category embedding")
			return stats, err
		}
		if generated {
			stats.CategoryEmbeddingsGenerated++
			embeddingsGenerated.WithLabelValues("category").Inc()
		}
		items = append(items, embedding.IndexItem{ID: category.ID, Vector: vec})
	}

	if stats.CategoriesLoaded == 0 && stats.ProductsLoaded > 0 {
		logger.Warn().Int("products", stats.ProductsLoaded).
			Msg("No categories found; automatic assignments will be cleared")
	}

	for _, product := range products {
		vec, generated, err := p.productEmbedding(ctx, provider, product)
		if err != nil {
			logger.Error().Err(err).Int("product_id", product.ID).Msg("Failed to resolve product embedding")
			return stats, err
		}
		if generated {
			stats.ProductEmbeddingsGenerated++
			embeddingsGenerated.WithLabelValues("product").Inc()
		}

		var assigned *int
		if neighbors := embedding.SearchTopK(vec, items, 1); len(neighbors) == 0 {
			stats.SkippedNoCategoryCandidate++
		} else {
			neighbor := neighbors[0]
			similarity := 1 - neighbor.Distance
			switch {
			case float64(similarity) < SimilarityThreshold:
				stats.SkippedBelowThreshold++
			case neighbor.ID <= 0:
				stats.SkippedInvalidCategoryID++
				logger.Warn().Int("category_id", neighbor.ID).Int("product_id", product.ID).
					Msg("Skipping invalid category id from similarity index")
			default:
				id := neighbor.ID
				assigned = &id
			}
		}

		// Every product gets written: a nil assignment clears a previous
		// automatic one. Manual rows are protected by the store itself.
		if err := p.store.SetProductCategoryAutomatic(ctx, product.ID, assigned); err != nil {
			logger.Error().Err(err).Int("product_id", product.ID).Msg("Failed to set product category")
			return stats, err
		}
		if assigned != nil {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
	}

	return stats, nil
}
