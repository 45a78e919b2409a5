package papers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Downloader fetches open-access papers over HTTP into a local directory.
// Files already present are reused, so re-running a search does not
// re-download the corpus.
type Downloader struct {
	dir        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewDownloader(dir string, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		dir:        dir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Fetch downloads the URL into dir/filename and returns the local path.
func (d *Downloader) Fetch(ctx context.Context, url, filename string) (string, error) {
	path := filepath.Join(d.dir, filename)
	if _, err := os.Stat(path); err == nil {
		d.logger.Debug("paper already downloaded", zap.String("path", path))
		return path, nil
	}
	if url == "" {
		return "", fmt.Errorf("fetch %s: no download url", filename)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create papers dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("save %s: %w", filename, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	d.logger.Info("paper downloaded", zap.String("path", path))
	return path, nil
}
