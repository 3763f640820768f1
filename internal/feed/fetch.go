package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "agenda/internal/log"
)

// Feed formats understood by Decode.
const (
	FormatJSON = "json"
	FormatICS  = "ics"
)

// Source represents a single event feed.
type Source struct {
	// ID is an internal identifier (e.g., config source ID). It also keys
	// the disk cache, so the URL may change (date parameters) without
	// losing the cached body.
	ID string
	// URL is the feed endpoint, including any query parameters.
	URL string
	// Format is FormatJSON or FormatICS.
	Format string
}

// FetchResult contains the outcome of fetching a single source.
type FetchResult struct {
	Source    Source
	Body      []byte // payload (either freshly fetched or from cache)
	FromCache bool   // true if we reused the cached body
}

// cacheEntry holds HTTP cache metadata for a single source.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches feeds with HTTP caching (ETag / Last-Modified) and a
// disk-backed copy of the last good body.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	validate func(Source, []byte) error
}

// NewFetcher creates a new Fetcher. A nil client gets a 15s timeout client.
//
// cacheDir is the base directory where per-source cache subdirectories are
// stored. Example: "/var/lib/agenda/feed-cache".
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/feed-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{
		client:   client,
		cacheDir: cacheDir,
	}
}

// WithValidator makes the fetcher check every 200 body with fn before it
// replaces the cached copy. A rejected body is treated like a failed
// request: the cached body is served instead, if there is one.
func (f *Fetcher) WithValidator(fn func(Source, []byte) error) *Fetcher {
	f.validate = fn
	return f
}

// FetchAll fetches all given sources and returns individual results.
// Errors for individual sources are logged and returned in the error slice;
// the returned results only contain sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	errs := make([]error, 0)

	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			appLog.Error("feed fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// FetchOne fetches a single source, honoring ETag and Last-Modified. On
// network errors and non-OK statuses it falls back to the cached body.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	cachePath := f.cachePathFor(src)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}

	// Validators are only meaningful for the exact URL they were issued for.
	if meta.URL == src.URL {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("feed fetch start", "id", src.ID, "url", redactURL(src.URL))

	cached := FetchResult{Source: src, Body: cachedBody, FromCache: true}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch network error, using cached body", err, "id", src.ID, "url", redactURL(src.URL))
			return cached, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}
		if f.validate != nil {
			if err := f.validate(src, body); err != nil {
				if len(cachedBody) > 0 {
					appLog.Error("feed body rejected, using cached body", err, "id", src.ID, "url", redactURL(src.URL))
					return cached, nil
				}
				return FetchResult{}, fmt.Errorf("invalid body: %w", err)
			}
		}

		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("feed cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}

		appLog.Info("feed fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("feed not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return cached, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch non-OK, using cached body", errors.New(resp.Status), "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
			return cached, nil
		}
		return FetchResult{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (f *Fetcher) cachePathFor(src Source) string {
	key := src.ID
	if key == "" {
		key = src.URL
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of a feed URL for logging; paths and
// query strings may carry tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "feed://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' && u[j] != '?' {
		j++
	}
	return u[:j] + redactedSuffix
}
