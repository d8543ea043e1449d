// Package fetcher downloads registry source files for staging. Registries
// publish over plain HTTP or legacy FTP; the scheme picks the transport.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/config"
)

// Fetcher downloads a remote source file.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into a local file and returns bytes written.
	DownloadToFile(ctx context.Context, url, path string) (int64, error)
}

// ForURL returns the fetcher matching the URL scheme.
func ForURL(rawURL string, cfg config.FetchConfig) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{
			UserAgent:      cfg.UserAgent,
			Timeout:        time.Duration(cfg.TimeoutSecs) * time.Second,
			MaxRetries:     cfg.MaxRetries,
			RequestsPerSec: cfg.RequestsPerSec,
		}), nil
	case "ftp":
		return NewFTPFetcher(FTPOptions{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
