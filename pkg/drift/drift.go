package drift

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/storage"
)

// Bounds of a single run's price move, relative to the current price.
const (
	MinPriceFactor = 0.95
	MaxPriceFactor = 1.10
)

var ErrRunInProgress = errors.New("a price drift run is already in progress")

// Trends is the fixed market trend per category.
var Trends = map[catalog.Category]float64{
	catalog.Laptops:      0.98,
	catalog.CPUs:         1.02,
	catalog.GPUs:         1.05,
	catalog.Motherboards: 0.99,
	catalog.RAM:          0.97,
	catalog.Storage:      0.95,
	catalog.PSUs:         1.01,
	catalog.Cases:        0.98,
}

// Rand is the random source for a run. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Recorder persists a run's changes, e.g. *storage.DB.
type Recorder interface {
	RecordRun(ctx context.Context, at time.Time, changes []storage.PriceChange) (int64, error)
}

// Config holds everything a Simulator needs.
type Config struct {
	CatalogPath string
	LogDir      string

	Rand     Rand             // optional; defaults to a time-seeded PCG
	Now      func() time.Time // optional; defaults to time.Now
	Log      Logger           // optional; nil = no logging
	Recorder Recorder         // optional; nil = no history
}

// Simulator perturbs every catalog price within bounded factors.
type Simulator struct {
	cfg  Config
	rand Rand
	now  func() time.Time
	log  Logger
}

// New builds a Simulator.
func New(cfg Config) (*Simulator, error) {
	if cfg.CatalogPath == "" {
		return nil, errors.New("drift: catalog path is required")
	}
	s := &Simulator{cfg: cfg, rand: cfg.Rand, now: cfg.Now, log: cfg.Log}
	if s.rand == nil {
		seed := uint64(time.Now().UnixNano())
		s.rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	return s, nil
}

func (s *Simulator) uniform(lo, width float64) float64 {
	return lo + s.rand.Float64()*width
}

// MarketFactor is the category trend with a +/-2% random variation.
func (s *Simulator) MarketFactor(cat catalog.Category) float64 {
	trend, ok := Trends[cat]
	if !ok {
		trend = 1.0
	}
	return trend * s.uniform(0.98, 0.04)
}

// SeasonalFactor raises prices in the holiday months and lowers them in the
// post-holiday sales.
func SeasonalFactor(month time.Month) float64 {
	switch month {
	case time.November, time.December:
		return 1.03
	case time.January, time.February:
		return 0.97
	}
	return 1.0
}

// DemandFactor draws a demand multiplier for the category's demand band.
func (s *Simulator) DemandFactor(cat catalog.Category) float64 {
	switch cat {
	case catalog.GPUs, catalog.CPUs, catalog.Laptops:
		return s.uniform(1.00, 0.03)
	case catalog.RAM, catalog.Storage, catalog.Motherboards:
		return s.uniform(0.99, 0.02)
	default:
		return s.uniform(0.98, 0.02)
	}
}

// PriceBounds returns the inclusive range a price may move to in one run.
func PriceBounds(price int) (lo, hi int) {
	return int(math.Round(float64(price) * MinPriceFactor)), int(math.Round(float64(price) * MaxPriceFactor))
}

// NextPrice computes the new price of one item.
func (s *Simulator) NextPrice(cat catalog.Category, price int, month time.Month) int {
	market := s.MarketFactor(cat)
	seasonal := SeasonalFactor(month)
	demand := s.DemandFactor(cat)

	next := int(math.Round(float64(price) * (market * seasonal * demand)))
	lo, hi := PriceBounds(price)
	if next < lo {
		return lo
	}
	if next > hi {
		return hi
	}
	return next
}

// Apply runs the compute phase over c in place and returns the changes.
// It stops early if ctx is done, leaving c partially updated.
func (s *Simulator) Apply(ctx context.Context, c *catalog.Catalog, month time.Month) ([]storage.PriceChange, error) {
	var changes []storage.PriceChange
	for _, cat := range catalog.Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items := c.Items[cat]
		s.log.Debugf("Checking %s (%d items)", cat, len(items))
		for i := range items {
			old := items[i].Price
			next := s.NextPrice(cat, old, month)
			if next == old {
				continue
			}
			ch := storage.NewPriceChange(string(cat), items[i].ID, items[i].DisplayName(), old, next)
			changes = append(changes, ch)
			items[i].Price = next
			s.log.Debugf("  %s %s: %s -> %s (%+.2f%%)", arrow(ch.Change), ch.Name, utils.FormatINR(old), utils.FormatINR(next), ch.ChangePercent)
		}
	}
	return changes, nil
}

// Run performs one drift run: load, compute, and when anything changed,
// rewrite the catalog, append to the run log, rewrite the summary and
// record history. Nothing is written when no price moved.
func (s *Simulator) Run(ctx context.Context) ([]storage.PriceChange, error) {
	started := s.now()
	s.log.Infof("Price drift run started at %s", started.Format(time.RFC3339))

	lock, err := utils.NewFileLock(s.cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	c, err := catalog.Load(s.cfg.CatalogPath)
	if err != nil {
		s.log.Errorf("Failed to load catalog: %v", err)
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	changes, err := s.Apply(ctx, c, started.Month())
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		s.log.Infof("Price check complete: no changes needed")
		return nil, nil
	}

	if err := catalog.Save(s.cfg.CatalogPath, c); err != nil {
		s.log.Errorf("Failed to save catalog: %v", err)
		return nil, fmt.Errorf("save catalog: %w", err)
	}

	if s.cfg.LogDir != "" {
		if err := WriteReport(s.cfg.LogDir, started, changes); err != nil {
			s.log.Errorf("Failed to write price log: %v", err)
		} else {
			s.log.Infof("Logged %d price updates to %s", len(changes), s.cfg.LogDir)
		}
	}
	if s.cfg.Recorder != nil {
		if _, err := s.cfg.Recorder.RecordRun(ctx, started, changes); err != nil {
			s.log.Errorf("Failed to record price history: %v", err)
		}
	}

	s.log.Infof("Price check complete: %d prices updated", len(changes))
	return changes, nil
}

func arrow(change int) string {
	if change > 0 {
		return "↑"
	}
	return "↓"
}
