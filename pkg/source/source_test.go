package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/storage"
	"github.com/pcsensei/pcsensei/pkg/whttp"
)

const docV1 = `{"cpus":[{"id":"r5","name":"Ryzen 5 5600","price":11000}]}`
const docV2 = `{"cpus":[{"id":"r5","name":"Ryzen 5 5600","price":10500}]}`

type memCache struct {
	doc []byte
	at  time.Time
}

func (m *memCache) GetCatalog(context.Context) ([]byte, time.Time, error) {
	if m.doc == nil {
		return nil, time.Time{}, storage.ErrCacheMiss
	}
	return m.doc, m.at, nil
}

func (m *memCache) PutCatalog(_ context.Context, doc []byte, at time.Time) error {
	m.doc, m.at = doc, at
	return nil
}

func (m *memCache) ClearCatalog(context.Context) error {
	m.doc = nil
	return nil
}

type server struct {
	*httptest.Server
	calls  atomic.Int32
	body   atomic.Value
	status atomic.Int32
}

func newServer(t *testing.T, body string) *server {
	s := &server{}
	s.body.Store(body)
	s.status.Store(http.StatusOK)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		w.WriteHeader(int(s.status.Load()))
		w.Write([]byte(s.body.Load().(string)))
	}))
	t.Cleanup(s.Close)
	return s
}

func fastClient() *retryablehttp.Client { return whttp.NewClient(time.Second, 0) }

func price(t *testing.T, c *catalog.Catalog) int {
	t.Helper()
	items := c.Get(catalog.CPUs)
	if len(items) != 1 {
		t.Fatalf("cpus = %+v", items)
	}
	return items[0].Price
}

func TestNew_NoSource(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoSource) {
		t.Errorf("err = %v, want ErrNoSource", err)
	}
}

func TestCatalog_Path(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	c, _ := catalog.Parse([]byte(docV1))
	if err := catalog.Save(path, c); err != nil {
		t.Fatal(err)
	}
	src, err := New(Config{Path: path, Cache: &memCache{}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := src.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if price(t, got) != 11000 {
		t.Error("wrong price")
	}
}

func TestCatalog_CachesWithinTTL(t *testing.T) {
	srv := newServer(t, docV1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := &memCache{}
	src, _ := New(Config{URL: srv.URL, Cache: cache, Client: fastClient(), Now: func() time.Time { return now }})

	if _, err := src.Catalog(context.Background()); err != nil {
		t.Fatalf("first Catalog: %v", err)
	}
	srv.body.Store(docV2)

	now = now.Add(23 * time.Hour)
	c, err := src.Catalog(context.Background())
	if err != nil {
		t.Fatalf("second Catalog: %v", err)
	}
	if price(t, c) != 11000 || srv.calls.Load() != 1 {
		t.Errorf("expected cached copy, got price %d after %d fetches", price(t, c), srv.calls.Load())
	}

	now = now.Add(2 * time.Hour)
	c, err = src.Catalog(context.Background())
	if err != nil {
		t.Fatalf("third Catalog: %v", err)
	}
	if price(t, c) != 10500 || srv.calls.Load() != 2 {
		t.Errorf("expected refetch, got price %d after %d fetches", price(t, c), srv.calls.Load())
	}
}

func TestCatalog_FallsBackToStaleCache(t *testing.T) {
	srv := newServer(t, "")
	srv.status.Store(http.StatusNotFound)
	cache := &memCache{doc: []byte(docV1), at: time.Now().Add(-72 * time.Hour)}
	src, _ := New(Config{URL: srv.URL, Cache: cache, Client: fastClient()})

	c, err := src.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if price(t, c) != 11000 {
		t.Error("expected stale cached copy")
	}
}

func TestCatalog_FetchErrorWithoutCache(t *testing.T) {
	srv := newServer(t, "")
	srv.status.Store(http.StatusNotFound)
	src, _ := New(Config{URL: srv.URL, Cache: &memCache{}, Client: fastClient()})
	if _, err := src.Catalog(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRefresh_InvalidDocumentNotCached(t *testing.T) {
	srv := newServer(t, `[1,2,3]`)
	cache := &memCache{}
	src, _ := New(Config{URL: srv.URL, Cache: cache, Client: fastClient()})
	if _, err := src.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if cache.doc != nil {
		t.Error("invalid document was cached")
	}
}

func TestInvalidate(t *testing.T) {
	srv := newServer(t, docV1)
	cache := &memCache{}
	src, _ := New(Config{URL: srv.URL, Cache: cache, Client: fastClient()})
	if _, err := src.Catalog(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := src.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Catalog(context.Background()); err != nil {
		t.Fatal(err)
	}
	if srv.calls.Load() != 2 {
		t.Errorf("fetches = %d, want 2", srv.calls.Load())
	}
}

func TestCatalog_WithSQLiteCache(t *testing.T) {
	srv := newServer(t, docV1)
	db, err := storage.Open(filepath.Join(t.TempDir(), "pcsensei.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	src, _ := New(Config{URL: srv.URL, Cache: db, Client: fastClient()})
	for i := 0; i < 2; i++ {
		if _, err := src.Catalog(context.Background()); err != nil {
			t.Fatalf("Catalog #%d: %v", i, err)
		}
	}
	if srv.calls.Load() != 1 {
		t.Errorf("fetches = %d, want 1", srv.calls.Load())
	}
}

func TestCatalog_PathRejectsInvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `{"cpus":[{"id":"x","price":-500},{"id":"x","price":100}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := New(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Catalog(context.Background()); err == nil {
		t.Fatal("Catalog: expected validation error for negative price")
	}
	if _, err := src.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh: expected validation error for negative price")
	}
}

func TestInvalidate_PathSourceClearsCache(t *testing.T) {
	cache := &memCache{doc: []byte(docV1), at: time.Now()}
	src, err := New(Config{Path: "components.json", Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cache.doc != nil {
		t.Error("cached document should be dropped")
	}
}
