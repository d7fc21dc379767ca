package fetch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/wallsky/wallsky/internal/tracker"
)

// BatchSource supplies the images still missing from the cache and
// records completed downloads.
type BatchSource interface {
	NextDownloadBatch(theme string, count int) []tracker.ImageRecord
	MarkDownloaded(theme, url, localPath string)
}

// Prefetcher downloads batches of images through a bounded worker pool.
type Prefetcher struct {
	downloader *Downloader
	source     BatchSource
	batchSize  int
	workers    int
	logger     *slog.Logger
}

// NewPrefetcher wires a downloader to a batch source. workers bounds
// the number of concurrent downloads.
func NewPrefetcher(downloader *Downloader, source BatchSource, batchSize, workers int, logger *slog.Logger) *Prefetcher {
	if logger == nil {
		logger = slog.Default()
	}

	if workers < 1 {
		workers = 1
	}

	return &Prefetcher{
		downloader: downloader,
		source:     source,
		batchSize:  batchSize,
		workers:    workers,
		logger:     logger,
	}
}

// PrefetchTheme downloads the theme's next batch. Individual download
// failures are logged and skipped so one dead URL cannot starve the
// rest of the batch; only context cancellation aborts the whole run.
// Returns the number of images actually downloaded.
func (p *Prefetcher) PrefetchTheme(ctx context.Context, theme string) (int, error) {
	batch := p.source.NextDownloadBatch(theme, p.batchSize)
	if len(batch) == 0 {
		return 0, nil
	}

	p.logger.Debug("prefetching batch",
		slog.String("theme", theme),
		slog.Int("count", len(batch)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var fetched atomic.Int64

	for _, rec := range batch {
		rec := rec
		g.Go(func() error {
			path, err := p.downloader.Fetch(gctx, theme, rec.Filename, rec.SourceURL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				p.logger.Warn("download failed, skipping image",
					slog.String("theme", theme),
					slog.String("url", rec.SourceURL),
					slog.String("error", err.Error()),
				)

				return nil
			}

			p.source.MarkDownloaded(theme, rec.SourceURL, path)
			fetched.Add(1)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(fetched.Load()), err
	}

	return int(fetched.Load()), nil
}
