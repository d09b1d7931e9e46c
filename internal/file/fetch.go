package file

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"
)

// Fetcher downloads a stored document to a scoped temp file and extracts
// its text. Used by the processing consumer and by quiz generation.
type Fetcher struct {
	httpClient *http.Client
	extractor  TextExtractor
	timeout    time.Duration
}

func NewFetcher(extractor TextExtractor, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{},
		extractor:  extractor,
		timeout:    timeout,
	}
}

// FetchText downloads the resource and returns its plain text. The temp
// file is removed on every exit path.
func (f *Fetcher) FetchText(ctx context.Context, sourceURL, mimeType string) (string, error) {
	tmpPath, err := f.downloadToTemp(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	return f.extractor.Extract(tmpPath, mimeType)
}

// downloadToTemp fetches the resource under a hard wall-clock cap so a dead
// upstream cannot stall a consumer holding an unacked message.
func (f *Fetcher) downloadToTemp(ctx context.Context, sourceURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %d", sourceURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "fileproc-*"+path.Ext(sourceURL))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}
