package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-detmir/config"
	"github.com/aluiziolira/go-scrape-detmir/models"
	"github.com/aluiziolira/go-scrape-detmir/pipeline"
	"github.com/aluiziolira/go-scrape-detmir/session"
)

// Scraper runs the catalog walk for every configured city.
type Scraper struct {
	cfg     *config.Config
	fetcher *Fetcher
	walker  *Walker
	Metrics *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		walker:  NewWalker(fetcher, cfg, metrics),
		Metrics: metrics,
	}, nil
}

// Run walks each city in order with fresh cookies from provider and
// appends the records to dataset. A city whose session or catalog size
// cannot be obtained is skipped. Only context cancellation stops the run
// early; the partial result is returned along with the error.
func (s *Scraper) Run(ctx context.Context, provider session.Provider, dataset *pipeline.Dataset) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.ScraperResult{
		StartTime:     time.Now(),
		RecordsByCity: make(map[string]int),
		FailedPages:   make(map[string][]int),
	}
	finish := func() *models.ScraperResult {
		result.EndTime = time.Now()
		result.TotalCount = dataset.Len()
		result.RequestCount = s.fetcher.Requests()
		result.RetryCount = s.fetcher.Retries()
		return result
	}

	for _, city := range s.cfg.Cities {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		slog.Info("scraping city",
			slog.String("city", city.Label()),
			slog.String("catalog", s.cfg.CatalogURL),
		)

		cookies, err := provider.Cookies(ctx, s.cfg.CatalogURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(), ctxErr
			}
			s.Metrics.IncTargetFailed("session")
			result.FailedTargets = append(result.FailedTargets, city.Label())
			slog.Error("session unavailable, skipping city",
				slog.String("city", city.Label()),
				slog.Any("error", err),
			)
			continue
		}

		records, stats, err := s.walker.Walk(ctx, city, cookies)
		result.PageCount += stats.Pages
		result.InvalidItems += stats.InvalidItems
		if len(stats.FailedPages) > 0 {
			result.FailedPages[city.Label()] = stats.FailedPages
		}
		dataset.Append(records...)
		result.RecordsByCity[city.Label()] += len(records)

		if err != nil {
			if errors.Is(err, ErrCatalogUnavailable) {
				s.Metrics.IncTargetFailed("catalog")
				result.FailedTargets = append(result.FailedTargets, city.Label())
				slog.Error("catalog size unavailable, skipping city",
					slog.String("city", city.Label()),
					slog.Any("error", err),
				)
				continue
			}
			return finish(), err
		}

		slog.Info("city complete",
			slog.String("city", city.Label()),
			slog.Int("records", len(records)),
			slog.Int("failed_pages", len(stats.FailedPages)),
		)
	}

	return finish(), nil
}
