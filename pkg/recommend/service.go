package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/pcsensei/pcsensei/pkg/catalog"
)

var (
	ErrNoCandidates  = errors.New("no candidates in category")
	ErrInvalidBudget = errors.New("budget must be positive")
)

// Logger abstracts logging so callers can plug in logrus or anything with
// the same method set.
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

// CatalogSource provides the catalog a request is answered from.
type CatalogSource interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

// Preferences carries optional brand filters. Empty or "any" means no preference.
type Preferences struct {
	CPU string `json:"cpu,omitempty"`
	GPU string `json:"gpu,omitempty"`
}

// Request is the input of both recommendation entry points.
type Request struct {
	Budget      int         `json:"budget"`
	Usage       Usage       `json:"usage"`
	Preferences Preferences `json:"preferences"`
}

// DesktopBuild is one selected part per desktop category. GPU is nil only
// when the catalog has no graphics cards and the tier allocates nothing to one.
type DesktopBuild struct {
	CPU         catalog.Component  `json:"cpu"`
	GPU         *catalog.Component `json:"gpu,omitempty"`
	Motherboard catalog.Component  `json:"motherboard"`
	RAM         catalog.Component  `json:"ram"`
	Storage     catalog.Component  `json:"storage"`
	PSU         catalog.Component  `json:"psu"`
	Case        catalog.Component  `json:"case"`

	TotalPrice int              `json:"totalPrice"`
	Usage      Usage            `json:"usage"`
	Budget     int              `json:"budget"`
	Allocation BudgetAllocation `json:"allocation"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Part is a labelled build component, used for printing.
type Part struct {
	Category  catalog.Category
	Component catalog.Component
}

// Parts lists the build's components in assembly order.
func (b *DesktopBuild) Parts() []Part {
	parts := []Part{{catalog.CPUs, b.CPU}}
	if b.GPU != nil {
		parts = append(parts, Part{catalog.GPUs, *b.GPU})
	}
	return append(parts,
		Part{catalog.Motherboards, b.Motherboard},
		Part{catalog.RAM, b.RAM},
		Part{catalog.Storage, b.Storage},
		Part{catalog.PSUs, b.PSU},
		Part{catalog.Cases, b.Case},
	)
}

// Service answers recommendation requests from a catalog source. It holds
// no per-request state and is safe for concurrent use if the source is.
type Service struct {
	src CatalogSource
	log Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService builds a Service reading from src.
func NewService(src CatalogSource, opts ...Option) *Service {
	s := &Service{src: src, log: nopLogger{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LaptopRecommendations returns up to three laptops ranked for the request.
func (s *Service) LaptopRecommendations(ctx context.Context, req Request) ([]ScoredLaptop, error) {
	if req.Budget <= 0 {
		return nil, ErrInvalidBudget
	}
	cat, err := s.src.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	ranked := RankLaptops(cat.Get(catalog.Laptops), req.Budget, req.Usage)
	s.log.Debugf("Ranked %d laptops for budget %d (%s)", len(ranked), req.Budget, req.Usage)
	return ranked, nil
}

// DesktopBuild assembles a full desktop build for the request.
func (s *Service) DesktopBuild(ctx context.Context, req Request) (*DesktopBuild, error) {
	if req.Budget <= 0 {
		return nil, ErrInvalidBudget
	}
	cat, err := s.src.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return s.assemble(cat, req)
}

func (s *Service) assemble(cat *catalog.Catalog, req Request) (*DesktopBuild, error) {
	alloc := Allocate(req.Budget, req.Usage)
	target := func(c catalog.Category) float64 { return alloc.Target(c, req.Budget) }
	build := &DesktopBuild{Usage: req.Usage, Budget: req.Budget, Allocation: alloc}

	pick := func(c catalog.Category, brand string) (catalog.Component, error) {
		comp, err := SelectClosest(cat.Get(c), target(c), brand)
		if err != nil {
			return comp, fmt.Errorf("%s: %w", c, err)
		}
		return comp, nil
	}

	var err error
	if build.CPU, err = pick(catalog.CPUs, req.Preferences.CPU); err != nil {
		return nil, err
	}

	if gpus := cat.Get(catalog.GPUs); len(gpus) > 0 || alloc.GPU > 0 {
		gpu, err := pick(catalog.GPUs, req.Preferences.GPU)
		if err != nil {
			return nil, err
		}
		build.GPU = &gpu
	}

	mobo, err := SelectMotherboard(cat.Get(catalog.Motherboards), build.CPU, target(catalog.Motherboards))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", catalog.Motherboards, err)
	}
	build.Motherboard = mobo.Component
	s.noteFallback(build, catalog.Motherboards, mobo)

	if build.RAM, err = pick(catalog.RAM, ""); err != nil {
		return nil, err
	}
	if build.Storage, err = pick(catalog.Storage, ""); err != nil {
		return nil, err
	}

	psu, err := SelectPSU(cat.Get(catalog.PSUs), build.CPU, build.GPU, target(catalog.PSUs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", catalog.PSUs, err)
	}
	build.PSU = psu.Component
	s.noteFallback(build, catalog.PSUs, psu)

	if build.Case, err = pick(catalog.Cases, ""); err != nil {
		return nil, err
	}

	for _, p := range build.Parts() {
		build.TotalPrice += p.Component.Price
	}
	return build, nil
}

func (s *Service) noteFallback(b *DesktopBuild, c catalog.Category, sel Selection) {
	if !sel.Fallback {
		return
	}
	msg := sel.warning(c)
	s.log.Warnf("Compatibility fallback: %s", msg)
	b.Warnings = append(b.Warnings, msg)
}
