// Package fetch downloads catalog images into the local cache.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFilePermissions = 0o644
	cacheDirPermissions  = 0o755
)

// Downloader streams images from the archive into per-theme cache
// subdirectories.
type Downloader struct {
	cacheDir   string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewDownloader creates a downloader rooted at cacheDir.
func NewDownloader(cacheDir string, timeout time.Duration, userAgent string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Downloader{
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Fetch downloads one image into the theme's cache subdirectory and
// returns its local path. An already-cached file is returned as is. The
// file appears atomically: content streams to a temp file first and is
// renamed into place only on success.
func (d *Downloader) Fetch(ctx context.Context, theme, filename, url string) (string, error) {
	dir := filepath.Join(d.cacheDir, theme)
	dest := filepath.Join(dir, filename)

	if _, err := os.Stat(dest); err == nil {
		d.logger.Debug("image already cached", slog.String("path", dest))
		return dest, nil
	}

	if err := os.MkdirAll(dir, cacheDirPermissions); err != nil {
		return "", fmt.Errorf("fetch: creating theme dir %s: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("fetch: creating request for %s: %w", url, err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("fetch: downloading %s: unexpected status %d", url, resp.StatusCode)
	}

	n, err := d.writeAtomic(dest, resp.Body)
	if err != nil {
		return "", err
	}

	d.logger.Info("image downloaded",
		slog.String("theme", theme),
		slog.String("filename", filename),
		slog.Int64("bytes", n),
	)

	return dest, nil
}

// writeAtomic streams r to a temp file next to dest, then renames it
// into place. The temp file is removed on any failure.
func (d *Downloader) writeAtomic(dest string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".partial-*")
	if err != nil {
		return 0, fmt.Errorf("fetch: creating temp file for %s: %w", dest, err)
	}

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())

		if copyErr != nil {
			return n, fmt.Errorf("fetch: streaming to %s: %w", dest, copyErr)
		}

		return n, fmt.Errorf("fetch: closing temp file for %s: %w", dest, closeErr)
	}

	if err := os.Chmod(tmp.Name(), cacheFilePermissions); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("fetch: setting permissions on %s: %w", dest, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("fetch: moving %s into place: %w", dest, err)
	}

	return n, nil
}
