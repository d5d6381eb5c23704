package recommend

import (
	"strings"

	"github.com/pcsensei/pcsensei/pkg/catalog"
)

// Usage is the workload a build is meant for.
type Usage string

const (
	Gaming  Usage = "gaming"
	Content Usage = "content"
	Coding  Usage = "coding"
	Office  Usage = "office"
	Student Usage = "student"
)

// Usages lists the recognized profiles.
var Usages = []Usage{Gaming, Content, Coding, Office, Student}

// ParseUsage normalizes user input. Unrecognized profiles are returned as-is;
// they get no usage bonus and the balanced allocation.
func ParseUsage(s string) Usage {
	return Usage(strings.ToLower(strings.TrimSpace(s)))
}

// Budget tier thresholds (inclusive upper bounds, INR).
const (
	EntryBudgetMax  = 20000
	BudgetBudgetMax = 45000
)

// Tier identifies which allocation policy was applied.
type Tier int

const (
	TierEntry    Tier = 1 // <= 20,000: CPU heavy, no GPU share
	TierBudget   Tier = 2 // <= 45,000: no GPU share
	TierGaming   Tier = 3 // > 45,000 and gaming: GPU heavy
	TierBalanced Tier = 4 // > 45,000 otherwise
)

func (t Tier) String() string {
	switch t {
	case TierEntry:
		return "entry"
	case TierBudget:
		return "budget"
	case TierGaming:
		return "gaming"
	case TierBalanced:
		return "balanced"
	}
	return "unknown"
}

// BudgetAllocation is the share of the total budget aimed at each desktop
// category. Shares are soft targets and do not add up to 1 in every tier;
// the remainder is headroom.
type BudgetAllocation struct {
	Tier        Tier    `json:"tier"`
	CPU         float64 `json:"cpu"`
	GPU         float64 `json:"gpu"`
	Motherboard float64 `json:"motherboard"`
	RAM         float64 `json:"ram"`
	Storage     float64 `json:"storage"`
	PSU         float64 `json:"psu"`
	Case        float64 `json:"case"`
}

var (
	entryAllocation    = BudgetAllocation{Tier: TierEntry, CPU: 0.60, GPU: 0, Motherboard: 0.15, RAM: 0.10, Storage: 0.08, PSU: 0.04, Case: 0.03}
	budgetAllocation   = BudgetAllocation{Tier: TierBudget, CPU: 0.50, GPU: 0, Motherboard: 0.20, RAM: 0.12, Storage: 0.10, PSU: 0.05, Case: 0.03}
	gamingAllocation   = BudgetAllocation{Tier: TierGaming, CPU: 0.20, GPU: 0.45, Motherboard: 0.12, RAM: 0.08, Storage: 0.08, PSU: 0.05, Case: 0.02}
	balancedAllocation = BudgetAllocation{Tier: TierBalanced, CPU: 0.30, GPU: 0.25, Motherboard: 0.15, RAM: 0.12, Storage: 0.10, PSU: 0.05, Case: 0.03}
)

// Allocate picks the allocation policy for a budget and usage profile.
// Below BudgetBudgetMax the tier depends on the budget alone.
func Allocate(budget int, usage Usage) BudgetAllocation {
	switch {
	case budget <= EntryBudgetMax:
		return entryAllocation
	case budget <= BudgetBudgetMax:
		return budgetAllocation
	case usage == Gaming:
		return gamingAllocation
	default:
		return balancedAllocation
	}
}

// Share returns the fraction for a desktop category, 0 for laptops or
// unknown categories.
func (a BudgetAllocation) Share(cat catalog.Category) float64 {
	switch cat {
	case catalog.CPUs:
		return a.CPU
	case catalog.GPUs:
		return a.GPU
	case catalog.Motherboards:
		return a.Motherboard
	case catalog.RAM:
		return a.RAM
	case catalog.Storage:
		return a.Storage
	case catalog.PSUs:
		return a.PSU
	case catalog.Cases:
		return a.Case
	}
	return 0
}

// Target is the price the selector aims for in a category.
func (a BudgetAllocation) Target(cat catalog.Category, budget int) float64 {
	return a.Share(cat) * float64(budget)
}

// Sum returns the total share; below 1 means headroom is left.
func (a BudgetAllocation) Sum() float64 {
	return a.CPU + a.GPU + a.Motherboard + a.RAM + a.Storage + a.PSU + a.Case
}
