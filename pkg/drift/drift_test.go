package drift

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/storage"
)

type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

type fakeRecorder struct {
	at      time.Time
	changes []storage.PriceChange
	calls   int
}

func (f *fakeRecorder) RecordRun(_ context.Context, at time.Time, changes []storage.PriceChange) (int64, error) {
	f.calls++
	f.at = at
	f.changes = changes
	return int64(f.calls), nil
}

func writeCatalog(t *testing.T, c *catalog.Catalog) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := catalog.Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func march() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) }

func TestSeasonalFactor(t *testing.T) {
	tests := []struct {
		month time.Month
		want  float64
	}{
		{time.January, 0.97},
		{time.February, 0.97},
		{time.March, 1.0},
		{time.July, 1.0},
		{time.November, 1.03},
		{time.December, 1.03},
	}
	for _, tt := range tests {
		if got := SeasonalFactor(tt.month); got != tt.want {
			t.Errorf("SeasonalFactor(%s) = %v, want %v", tt.month, got, tt.want)
		}
	}
}

func TestPriceBounds(t *testing.T) {
	tests := []struct {
		price, lo, hi int
	}{
		{10000, 9500, 11000},
		{1999, 1899, 2199},
		{0, 0, 0},
	}
	for _, tt := range tests {
		lo, hi := PriceBounds(tt.price)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("PriceBounds(%d) = (%d, %d), want (%d, %d)", tt.price, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestNextPrice_StaysWithinBounds(t *testing.T) {
	s, err := New(Config{CatalogPath: "unused", Rand: rand.New(rand.NewPCG(7, 11))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cats := append([]catalog.Category{"unknown"}, catalog.Categories...)
	for _, cat := range cats {
		for i := 0; i < 1000; i++ {
			price := 500 + i*137
			month := time.Month(i%12 + 1)
			lo, hi := PriceBounds(price)
			got := s.NextPrice(cat, price, month)
			if got < lo || got > hi {
				t.Fatalf("%s: NextPrice(%d, %s) = %d, outside [%d, %d]", cat, price, month, got, lo, hi)
			}
		}
	}
}

func TestNextPrice_ClampsHigh(t *testing.T) {
	s, _ := New(Config{CatalogPath: "unused", Rand: constRand(0.99)})
	// gpus at the top of both ranges in December compound past +10%.
	if got := s.NextPrice(catalog.GPUs, 10000, time.December); got != 11000 {
		t.Errorf("NextPrice = %d, want 11000", got)
	}
}

func TestApply_SameSeedSameChanges(t *testing.T) {
	base := catalog.New()
	base.Items[catalog.CPUs] = []catalog.Component{
		{ID: "a", Name: "CPU A", Price: 12000},
		{ID: "b", Name: "CPU B", Price: 25000},
	}
	base.Items[catalog.RAM] = []catalog.Component{{ID: "r", Name: "16GB", Price: 3500}}

	run := func() []storage.PriceChange {
		s, _ := New(Config{CatalogPath: "unused", Rand: rand.New(rand.NewPCG(42, 43))})
		changes, err := s.Apply(context.Background(), base.Clone(), time.May)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		return changes
	}
	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("seeded runs differ:\n%+v\n%+v", first, second)
	}
}

func TestApply_CanceledContext(t *testing.T) {
	s, _ := New(Config{CatalogPath: "unused", Rand: constRand(0.5)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Apply(ctx, catalog.New(), time.May); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestRun_NoChangesWritesNothing(t *testing.T) {
	c := catalog.New()
	// psu at mid-range draws: 1.01 * 1.00 * 0.99 rounds back to 100.
	c.Items[catalog.PSUs] = []catalog.Component{{ID: "p", Name: "Tiny 300W", Price: 100}}
	path := writeCatalog(t, c)
	before, _ := os.ReadFile(path)
	logDir := filepath.Join(t.TempDir(), "logs")
	rec := &fakeRecorder{}

	s, err := New(Config{CatalogPath: path, LogDir: logDir, Rand: constRand(0.5), Now: march, Recorder: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	changes, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("changes = %+v, want none", changes)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("catalog was rewritten")
	}
	if _, err := os.Stat(logDir); !os.IsNotExist(err) {
		t.Errorf("log dir should not exist, stat err = %v", err)
	}
	if rec.calls != 0 {
		t.Errorf("recorder called %d times", rec.calls)
	}
}

func TestRun_PersistsChanges(t *testing.T) {
	c := catalog.New()
	c.Items[catalog.GPUs] = []catalog.Component{{ID: "4060", Name: "RTX 4060", Price: 10000}}
	path := writeCatalog(t, c)
	logDir := t.TempDir()
	rec := &fakeRecorder{}

	s, _ := New(Config{CatalogPath: path, LogDir: logDir, Rand: constRand(0.99), Now: march, Recorder: rec})
	changes, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []storage.PriceChange{storage.NewPriceChange("gpus", "4060", "RTX 4060", 10000, 11000)}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("changes = %+v, want %+v", changes, want)
	}

	reloaded, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := reloaded.Get(catalog.GPUs)[0].Price; got != 11000 {
		t.Errorf("saved price = %d, want 11000", got)
	}

	entries, err := ReadLog(logDir)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(entries) != 1 || entries[0].TotalUpdates != 1 || !entries[0].Timestamp.Equal(march()) {
		t.Errorf("log entries = %+v", entries)
	}

	summary, _ := os.ReadFile(filepath.Join(logDir, SummaryFileName))
	if !strings.Contains(string(summary), "Old: ₹10,000 → New: ₹11,000 (↑ 10.00%)") {
		t.Errorf("summary missing update line:\n%s", summary)
	}

	if rec.calls != 1 || !rec.at.Equal(march()) || len(rec.changes) != 1 {
		t.Errorf("recorder got calls=%d at=%v changes=%v", rec.calls, rec.at, rec.changes)
	}
}

func TestRun_MissingCatalog(t *testing.T) {
	s, _ := New(Config{CatalogPath: filepath.Join(t.TempDir(), "missing.json")})
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
}

func TestNew_RequiresCatalogPath(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_InvalidCatalogLeftUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := []byte(`{"cpus":[{"id":"x","name":"Broken","price":-500}]}`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}
	logDir := filepath.Join(t.TempDir(), "logs")
	s, _ := New(Config{CatalogPath: path, LogDir: logDir, Rand: constRand(0.99), Now: march})
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected validation error")
	}
	after, _ := os.ReadFile(path)
	if string(after) != string(doc) {
		t.Error("invalid catalog was rewritten")
	}
	if _, err := os.Stat(logDir); !os.IsNotExist(err) {
		t.Errorf("log dir should not exist, stat err = %v", err)
	}
}
