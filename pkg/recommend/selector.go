package recommend

import (
	"fmt"
	"math"
	"strings"

	"github.com/pcsensei/pcsensei/pkg/catalog"
)

// NoPreference is the brand value meaning "no brand filter".
const NoPreference = "any"

// Constraint names a compatibility rule a selector tried to satisfy.
type Constraint string

const (
	ConstraintSocket  Constraint = "socket"
	ConstraintWattage Constraint = "wattage"
)

// Selection is the outcome of a compatibility-aware pick. When no candidate
// satisfies the constraint, Fallback is set and Component is the first
// candidate of the unfiltered list.
type Selection struct {
	Component catalog.Component `json:"component"`
	Fallback  bool              `json:"fallback"`
	Violation Constraint        `json:"violation,omitempty"`
}

// SelectClosest returns the candidate whose price is nearest to target. A
// brand filter narrows the pool by case-insensitive substring match on the
// brand, and is dropped when nothing matches. Ties keep input order.
func SelectClosest(candidates []catalog.Component, target float64, brand string) (catalog.Component, error) {
	if len(candidates) == 0 {
		return catalog.Component{}, ErrNoCandidates
	}

	pool := candidates
	if b := normalizeBrand(brand); b != "" {
		var filtered []catalog.Component
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.Brand), b) {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	return closest(pool, target), nil
}

// SelectMotherboard picks the closest-priced board whose socket matches the CPU.
func SelectMotherboard(mobos []catalog.Component, cpu catalog.Component, target float64) (Selection, error) {
	if len(mobos) == 0 {
		return Selection{}, ErrNoCandidates
	}

	var compatible []catalog.Component
	for _, m := range mobos {
		if m.Socket == cpu.Socket {
			compatible = append(compatible, m)
		}
	}
	if len(compatible) == 0 {
		return Selection{Component: mobos[0], Fallback: true, Violation: ConstraintSocket}, nil
	}
	return Selection{Component: closest(compatible, target)}, nil
}

// SelectPSU picks the closest-priced supply rated for the CPU and GPU. gpu
// may be nil when the build has no discrete card.
func SelectPSU(psus []catalog.Component, cpu catalog.Component, gpu *catalog.Component, target float64) (Selection, error) {
	if len(psus) == 0 {
		return Selection{}, ErrNoCandidates
	}

	required := RequiredWattage(cpu, gpu)
	var suitable []catalog.Component
	for _, p := range psus {
		if Wattage(p) >= required {
			suitable = append(suitable, p)
		}
	}
	if len(suitable) == 0 {
		return Selection{Component: psus[0], Fallback: true, Violation: ConstraintWattage}, nil
	}
	return Selection{Component: closest(suitable, target)}, nil
}

func closest(pool []catalog.Component, target float64) catalog.Component {
	best := pool[0]
	bestDist := math.Abs(float64(best.Price) - target)
	for _, c := range pool[1:] {
		if d := math.Abs(float64(c.Price) - target); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func normalizeBrand(brand string) string {
	b := strings.ToLower(strings.TrimSpace(brand))
	if b == NoPreference {
		return ""
	}
	return b
}

func (s Selection) warning(cat catalog.Category) string {
	switch s.Violation {
	case ConstraintSocket:
		return fmt.Sprintf("%s: no board matches the CPU socket, using %s (socket %s)", cat, s.Component.DisplayName(), s.Component.Socket)
	case ConstraintWattage:
		return fmt.Sprintf("%s: no supply meets the required wattage, using %s", cat, s.Component.DisplayName())
	}
	return ""
}
