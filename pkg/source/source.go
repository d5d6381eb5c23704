// Package source loads the component catalog from a local file or a remote
// URL, with an optional persistent cache in front of remote fetches.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/storage"
	"github.com/pcsensei/pcsensei/pkg/whttp"
)

const (
	DefaultTTL      = 24 * time.Hour
	DefaultTimeout  = 10 * time.Second
	DefaultRetryMax = 3
)

var ErrNoSource = errors.New("no catalog url or path configured")

// Cache stores the raw catalog document. *storage.DB satisfies it.
type Cache interface {
	GetCatalog(ctx context.Context) ([]byte, time.Time, error)
	PutCatalog(ctx context.Context, doc []byte, fetchedAt time.Time) error
	ClearCatalog(ctx context.Context) error
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config selects where the catalog comes from. URL wins over Path when
// both are set. Path sources are read on every call and never cached,
// since the drift job rewrites that file in place.
type Config struct {
	URL  string
	Path string

	TTL    time.Duration         // optional; defaults to DefaultTTL
	Cache  Cache                 // optional; nil = fetch every time
	Client *retryablehttp.Client // optional
	Now    func() time.Time      // optional; defaults to time.Now
	Log    Logger                // optional; nil = no logging
}

type Source struct {
	cfg    Config
	client *retryablehttp.Client
	now    func() time.Time
	log    Logger
}

func New(cfg Config) (*Source, error) {
	if cfg.URL == "" && cfg.Path == "" {
		return nil, ErrNoSource
	}
	s := &Source{cfg: cfg, client: cfg.Client, now: cfg.Now, log: cfg.Log}
	if s.cfg.TTL <= 0 {
		s.cfg.TTL = DefaultTTL
	}
	if s.client == nil {
		s.client = whttp.NewClient(DefaultTimeout, DefaultRetryMax)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	return s, nil
}

// Catalog returns the current catalog. For URL sources a cached copy
// younger than the TTL is served without a fetch; if a fetch fails, any
// cached copy is served regardless of age.
func (s *Source) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if s.cfg.URL == "" {
		return catalog.Load(s.cfg.Path)
	}

	cached, fetchedAt, cacheErr := s.cached(ctx)
	if cacheErr == nil && s.now().Sub(fetchedAt) < s.cfg.TTL {
		c, err := decode(cached)
		if err == nil {
			s.log.Debugf("Using cached catalog from %s", fetchedAt.Format(time.RFC3339))
			return c, nil
		}
		s.log.Warnf("Cached catalog is unusable, refetching: %v", err)
		cacheErr = err
	}

	c, err := s.Refresh(ctx)
	if err == nil {
		return c, nil
	}
	if cacheErr != nil {
		return nil, err
	}
	stale, decodeErr := decode(cached)
	if decodeErr != nil {
		return nil, err
	}
	s.log.Warnf("Catalog fetch failed (%v), using cached copy from %s", err, fetchedAt.Format(time.RFC3339))
	return stale, nil
}

// Refresh bypasses the TTL and loads the catalog from its origin, updating
// the cache on success.
func (s *Source) Refresh(ctx context.Context) (*catalog.Catalog, error) {
	if s.cfg.URL == "" {
		return catalog.Load(s.cfg.Path)
	}

	s.log.Infof("Fetching catalog from %s", s.cfg.URL)
	doc, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c, err := decode(doc)
	if err != nil {
		return nil, fmt.Errorf("catalog from %s: %w", s.cfg.URL, err)
	}
	if s.cfg.Cache != nil {
		if err := s.cfg.Cache.PutCatalog(ctx, doc, s.now()); err != nil {
			s.log.Warnf("Failed to cache catalog: %v", err)
		}
	}
	return c, nil
}

// Invalidate drops the cached copy so the next Catalog call fetches.
func (s *Source) Invalidate(ctx context.Context) error {
	if s.cfg.Cache == nil {
		return nil
	}
	return s.cfg.Cache.ClearCatalog(ctx)
}

func (s *Source) cached(ctx context.Context) ([]byte, time.Time, error) {
	if s.cfg.Cache == nil {
		return nil, time.Time{}, storage.ErrCacheMiss
	}
	doc, at, err := s.cfg.Cache.GetCatalog(ctx)
	if err != nil && !errors.Is(err, storage.ErrCacheMiss) {
		s.log.Warnf("Reading catalog cache: %v", err)
	}
	return doc, at, err
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	res, err := whttp.Do(ctx, s.client, &whttp.Request{
		URL:     s.cfg.URL,
		Headers: []whttp.Header{{Name: "Accept", Value: "application/json"}},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching catalog: unexpected status %d", res.StatusCode)
	}
	return res.Body, nil
}

func decode(doc []byte) (*catalog.Catalog, error) {
	c, err := catalog.Parse(doc)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
