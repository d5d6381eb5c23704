package drift

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/storage"
)

const (
	LogFileName     = "price-updates.log"
	SummaryFileName = "price-summary.txt"

	summaryTitle    = "PCSensei Price Update Summary"
	generatedPrefix = "Generated:"
	// SummaryTimeLayout is the timestamp format of the summary's Generated line.
	SummaryTimeLayout = "2006-01-02 15:04:05 MST"
)

// LogEntry is one line of the append-only run log.
type LogEntry struct {
	Timestamp    time.Time             `json:"timestamp"`
	TotalUpdates int                   `json:"totalUpdates"`
	Updates      []storage.PriceChange `json:"updates"`
}

// WriteReport appends a log entry and rewrites the summary in dir.
func WriteReport(dir string, at time.Time, changes []storage.PriceChange) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := appendLog(filepath.Join(dir, LogFileName), at, changes); err != nil {
		return err
	}
	return catalog.WriteFileAtomic(filepath.Join(dir, SummaryFileName), []byte(Summary(at, changes)), 0o644)
}

func appendLog(path string, at time.Time, changes []storage.PriceChange) error {
	line, err := json.Marshal(LogEntry{Timestamp: at.UTC(), TotalUpdates: len(changes), Updates: changes})
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Summary renders the human-readable report of a run, grouped by category
// in the order categories first appear.
func Summary(at time.Time, changes []storage.PriceChange) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)

	fmt.Fprintf(&b, "%s\n", summaryTitle)
	fmt.Fprintf(&b, "%s %s\n", generatedPrefix, at.Format(SummaryTimeLayout))
	fmt.Fprintf(&b, "%s\n\n", rule)

	var order []string
	byCategory := make(map[string][]storage.PriceChange)
	for _, c := range changes {
		if _, ok := byCategory[c.Category]; !ok {
			order = append(order, c.Category)
		}
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}

	for _, cat := range order {
		fmt.Fprintf(&b, "%s\n%s\n", strings.ToUpper(cat), thin)
		for _, c := range byCategory[cat] {
			fmt.Fprintf(&b, "  %s\n", c.Name)
			fmt.Fprintf(&b, "    Old: %s → New: %s (%s %.2f%%)\n\n",
				utils.FormatINR(c.OldPrice), utils.FormatINR(c.NewPrice), arrow(c.Change), math.Abs(c.ChangePercent))
		}
	}

	increases, decreases := 0, 0
	for _, c := range changes {
		switch {
		case c.Change > 0:
			increases++
		case c.Change < 0:
			decreases++
		}
	}

	fmt.Fprintf(&b, "\nSummary Statistics:\n")
	fmt.Fprintf(&b, "  Total Updates: %d\n", len(changes))
	fmt.Fprintf(&b, "  Price Increases: %d\n", increases)
	fmt.Fprintf(&b, "  Price Decreases: %d\n", decreases)
	fmt.Fprintf(&b, "  No Change: %d\n", len(changes)-increases-decreases)
	return b.String()
}

// LastUpdate returns the Generated timestamp of the summary in dir. It
// reports false when no run has written a summary yet.
func LastUpdate(dir string) (string, bool, error) {
	f, err := os.Open(filepath.Join(dir, SummaryFileName))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, generatedPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, generatedPrefix)), true, nil
		}
	}
	return "", false, sc.Err()
}

// ReadLog returns every entry of the run log in dir, oldest first.
func ReadLog(dir string) ([]LogEntry, error) {
	f, err := os.Open(filepath.Join(dir, LogFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []LogEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return entries, fmt.Errorf("%s line %d: %w", LogFileName, n, err)
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
