// Package web fetches HTML pages and runs structural queries over them.
package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/httpclient"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/version"
)

// Page is a fetched document.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	HTML        string
	FetchedAt   time.Time
}

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	client *httpclient.Client
	log    *logger.Logger
}

// NewFetcher creates a Fetcher. A User-Agent identifying stepflow is added
// unless cfg sets one.
func NewFetcher(cfg httpclient.Config, log *logger.Logger) (*Fetcher, error) {
	headers := map[string]string{
		"User-Agent": version.UserAgent(),
		"Accept":     "text/html,application/xhtml+xml",
	}
	for k, v := range cfg.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	cfg.Headers = headers

	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("web: create http client: %w", err)
	}
	return &Fetcher{client: client, log: log.WithComponent("web")}, nil
}

// Fetch GETs rawURL. A 404 becomes a NOT_FOUND AppError and any other failure
// an UPSTREAM_CALL_ERROR.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.InvalidInput("url", fmt.Sprintf("%q is not an absolute http(s) URL", rawURL))
	}

	start := time.Now()
	resp, err := f.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: rawURL})
	if err != nil {
		f.log.Warn("fetch failed", logger.Fields("url", rawURL, "error", err.Error()))
		if httpclient.IsNotFound(err) {
			return nil, apperrors.NotFound("page", rawURL).WithCause(err)
		}
		return nil, apperrors.UpstreamCall("web", err)
	}

	f.log.Debug("page fetched", logger.Fields("url", rawURL, "status", resp.StatusCode, "bytes", len(resp.Body), "duration_ms", time.Since(start).Milliseconds()))
	return &Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Headers["Content-Type"],
		HTML:        string(resp.Body),
		FetchedAt:   time.Now(),
	}, nil
}
