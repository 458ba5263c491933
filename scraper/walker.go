package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-detmir/config"
	"github.com/aluiziolira/go-scrape-detmir/models"
	"github.com/aluiziolira/go-scrape-detmir/parser"
)

const maxPrealloc = 4096

// PageFetcher fetches one catalog page.
type PageFetcher interface {
	Fetch(ctx context.Context, city models.City, offset int, cookies map[string]string) (*models.PageResult, error)
}

// WalkStats summarises one city walk.
type WalkStats struct {
	TotalItems   int
	Pages        int
	FailedPages  []int // 1-based page numbers
	InvalidItems int
}

// Walker pages through the whole catalog of a city.
type Walker struct {
	fetcher   PageFetcher
	pageSize  int
	pageDelay time.Duration
	metrics   *Metrics
	sleep     func(context.Context, time.Duration) error
}

// NewWalker builds a walker on top of fetcher.
func NewWalker(fetcher PageFetcher, cfg *config.Config, metrics *Metrics) *Walker {
	return &Walker{
		fetcher:   fetcher,
		pageSize:  cfg.PageSize,
		pageDelay: cfg.PageDelay,
		metrics:   metrics,
		sleep:     sleepContext,
	}
}

// Walk reads the item count from offset 0, then fetches every page in
// order. Pages that fail after all attempts are skipped; the records of
// the other pages are kept. If the item count cannot be read the error
// wraps ErrCatalogUnavailable.
func (w *Walker) Walk(ctx context.Context, city models.City, cookies map[string]string) ([]models.Record, WalkStats, error) {
	var stats WalkStats

	first, err := w.fetcher.Fetch(ctx, city, 0, cookies)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, stats, ctxErr
		}
		return nil, stats, fmt.Errorf("%w: %s: %w", ErrCatalogUnavailable, city, err)
	}

	total, err := first.Meta.Count()
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %s: %w", ErrCatalogUnavailable, city, err)
	}
	stats.TotalItems = total
	stats.Pages = parser.PageCount(stats.TotalItems, w.pageSize)
	slog.Info("catalog size",
		slog.String("city", city.Label()),
		slog.Int("pages", stats.Pages),
		slog.Int("items", stats.TotalItems),
	)

	// The count is server supplied; preallocation stays capped.
	records := make([]models.Record, 0, min(stats.TotalItems, maxPrealloc))
	for page := 0; page < stats.Pages; page++ {
		offset := page * w.pageSize
		number := page + 1

		// Page 0 is requested again on purpose so every page goes through
		// the same path.
		result, err := w.fetcher.Fetch(ctx, city, offset, cookies)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return records, stats, ctxErr
		}

		if err != nil {
			stats.FailedPages = append(stats.FailedPages, number)
			w.metrics.IncPageFailed(city.String())
			slog.Warn("page skipped",
				slog.String("city", city.Label()),
				slog.Int("page", number),
				slog.Int("offset", offset),
				slog.Any("error", err),
			)
		} else {
			pageRecords, invalid := parser.NormalizePage(city, result)
			records = append(records, pageRecords...)
			stats.InvalidItems += invalid
			w.metrics.AddRecords(city.String(), len(pageRecords))
			slog.Info("page fetched",
				slog.String("city", city.Label()),
				slog.Int("page", number),
				slog.Int("records", len(pageRecords)),
			)
			if invalid > 0 {
				slog.Warn("invalid items skipped",
					slog.String("city", city.Label()),
					slog.Int("page", number),
					slog.Int("count", invalid),
				)
			}
		}

		if err := w.sleep(ctx, w.pageDelay); err != nil {
			return records, stats, err
		}
	}

	return records, stats, nil
}
