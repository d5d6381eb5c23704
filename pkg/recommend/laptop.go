package recommend

import (
	"sort"
	"strings"

	"github.com/pcsensei/pcsensei/pkg/catalog"
)

const (
	// MaxLaptopResults is the number of laptops returned by a recommendation.
	MaxLaptopResults = 3
	// overBudgetLimit is how far past the budget a laptop may be priced.
	overBudgetLimit = 1.05
)

// ScoredLaptop is a laptop with its recommendation score.
type ScoredLaptop struct {
	Laptop catalog.Component `json:"laptop"`
	Score  int               `json:"score"`
}

// ScoreLaptop rates how well a laptop fits a budget and usage profile.
func ScoreLaptop(laptop catalog.Component, budget int, usage Usage) int {
	score := 0

	if budget > 0 {
		ratio := float64(laptop.Price) / float64(budget)
		if ratio >= 0.85 && ratio <= 1.0 {
			score += 25
		} else if ratio >= 0.70 {
			score += 15
		}
	}

	spec := laptop.Spec
	switch usage {
	case Gaming:
		if laptop.Type == "gaming" {
			score += 30
		}
		if strings.Contains(spec, "RTX") || strings.Contains(spec, "RX") {
			score += 20
		}
	case Content:
		if strings.Contains(spec, "OLED") {
			score += 20
		}
		if strings.Contains(spec, "16GB") || strings.Contains(spec, "32GB") {
			score += 25
		}
	case Coding:
		if strings.Contains(spec, "16GB") {
			score += 25
		}
		if strings.Contains(spec, "SSD") {
			score += 15
		}
	}
	return score
}

// RankLaptops drops laptops priced above 105% of budget, scores the rest and
// returns the best MaxLaptopResults. Equal scores keep catalog order.
func RankLaptops(laptops []catalog.Component, budget int, usage Usage) []ScoredLaptop {
	limit := float64(budget) * overBudgetLimit
	scored := make([]ScoredLaptop, 0, len(laptops))
	for _, l := range laptops {
		if float64(l.Price) > limit {
			continue
		}
		scored = append(scored, ScoredLaptop{Laptop: l, Score: ScoreLaptop(l, budget, usage)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > MaxLaptopResults {
		scored = scored[:MaxLaptopResults]
	}
	return scored
}
