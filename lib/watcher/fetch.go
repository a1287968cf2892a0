package watcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"

	"github.com/lgimportados/pricewatch/config"
)

const scrapeEndpoint = "http://api.scrape.do"

// Bodies shorter than this are treated as empty or garbage rather than a
// rendered page.
const minRenderedLength = 100

// Fetcher retrieves rendered HTML through the scrape.do proxy. Rendering is
// requested so client-side price widgets end up in the returned markup.
type Fetcher struct {
	log       *zap.Logger
	token     string
	transport http.RoundTripper
}

func NewFetcher(cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *Fetcher {
	return &Fetcher{log, cfg.ScrapeDoToken, transport}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.token == "" {
		return "", &ConfigError{Name: "SCRAPE_DO_TOKEN"}
	}

	target := NormalizeURL(rawURL)

	var html string
	err := requests.URL(scrapeEndpoint).
		Param("token", f.token).
		Param("url", target).
		Param("render", "true").
		Transport(f.transport).
		ToString(&html).
		Fetch(ctx)
	if err != nil {
		return "", &FetchError{URL: target, cause: err}
	}

	if len(html) < minRenderedLength {
		return "", &FetchError{URL: target, cause: fmt.Errorf("degenerate body (%d bytes)", len(html))}
	}

	f.log.Sugar().Debugw("Fetched rendered page", "url", target, "bytes", len(html))
	return html, nil
}

// NormalizeURL prepends https:// when the URL carries no scheme, so operators
// can paste bare hostnames into the admin form.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	if !strings.Contains(rawURL, "://") {
		return "https://" + rawURL
	}
	return rawURL
}

// IsConfigError reports whether the chain contains a missing-secret failure.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
