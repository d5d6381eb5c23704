package storage

import "time"

// PriceChange is one item whose price moved during a drift run. The JSON
// form is the shape written to the run log.
type PriceChange struct {
	Category      string  `json:"category"`
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	OldPrice      int     `json:"oldPrice"`
	NewPrice      int     `json:"newPrice"`
	Change        int     `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// NewPriceChange fills the derived fields from an old and new price.
func NewPriceChange(category, id, name string, oldPrice, newPrice int) PriceChange {
	change := newPrice - oldPrice
	pct := 0.0
	if oldPrice != 0 {
		pct = float64(change) / float64(oldPrice) * 100
	}
	return PriceChange{
		Category:      category,
		ID:            id,
		Name:          name,
		OldPrice:      oldPrice,
		NewPrice:      newPrice,
		Change:        change,
		ChangePercent: pct,
	}
}

// HistoryEntry is a stored price change with the run it belongs to.
type HistoryEntry struct {
	RunID      int64     `json:"runId"`
	OccurredAt time.Time `json:"occurredAt"`
	PriceChange
}

// Run summarizes one recorded drift run.
type Run struct {
	ID           int64     `json:"id"`
	RanAt        time.Time `json:"ranAt"`
	TotalUpdates int       `json:"totalUpdates"`
}

// CategoryStats aggregates recorded changes for one category.
type CategoryStats struct {
	Category      string
	Changes       int
	Increases     int
	Decreases     int
	AvgChangePct  float64
	LastChangedAt time.Time
}
