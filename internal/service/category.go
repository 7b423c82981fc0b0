package service

import (
	"strconv"
	"strings"
	"sync"

	"github.com/Harshitk-cp/quorum/internal/domain"
)

// Tolerances holds the per-kind correctness tolerances. Values come from
// config; the defaults mirror the documented scoring rules.
type Tolerances struct {
	Score      float64
	Margin     float64
	YardagePct float64
	YardageAbs float64
	Counting   float64
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		Score:      3,
		Margin:     7,
		YardagePct: 0.20,
		YardageAbs: 25,
		Counting:   1,
	}
}

// CategoryRegistry maps category names to their kind. Outcomes in categories
// without an entry are stored but never verified.
type CategoryRegistry struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	tolerances Tolerances
}

func NewCategoryRegistry(t Tolerances) *CategoryRegistry {
	return &CategoryRegistry{
		categories: make(map[string]domain.Category),
		tolerances: t,
	}
}

// DefaultCategoryRegistry registers the standard bet types.
func DefaultCategoryRegistry(t Tolerances) *CategoryRegistry {
	r := NewCategoryRegistry(t)
	for _, c := range []domain.Category{
		{Name: "winner", Kind: domain.KindCategorical},
		{Name: "spread", Kind: domain.KindCategorical},
		{Name: "over_under", Kind: domain.KindCategorical},
		{Name: "exact_score", Kind: domain.KindExactScore},
		{Name: "margin_of_victory", Kind: domain.KindMargin},
		{Name: "passing_yards", Kind: domain.KindYardage},
		{Name: "rushing_yards", Kind: domain.KindYardage},
		{Name: "receiving_yards", Kind: domain.KindYardage},
		{Name: "touchdowns", Kind: domain.KindCounting},
		{Name: "receptions", Kind: domain.KindCounting},
	} {
		r.Register(c)
	}
	return r
}

func (r *CategoryRegistry) Register(c domain.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.Name] = c
}

func (r *CategoryRegistry) Lookup(name string) (domain.Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[name]
	return c, ok
}

// Judge applies the category's correctness rule. verifiable is false when the
// rule cannot be applied (numeric kind without parseable numbers); such
// predictions resolve unverified and never touch accuracy.
func (r *CategoryRegistry) Judge(kind domain.CategoryKind, p *domain.PredictionRecord, o *domain.OutcomeRecord) (correct, verifiable bool) {
	if kind == domain.KindCategorical {
		return strings.EqualFold(strings.TrimSpace(p.PredictedValue), strings.TrimSpace(o.ActualValue)), true
	}

	pred, okP := numericValue(p.PredictedNumeric, p.PredictedValue)
	actual, okA := numericValue(o.ActualNumeric, o.ActualValue)
	if !okP || !okA {
		return false, false
	}

	diff := pred - actual
	if diff < 0 {
		diff = -diff
	}

	r.mu.RLock()
	t := r.tolerances
	r.mu.RUnlock()

	switch kind {
	case domain.KindExactScore:
		return diff <= t.Score, true
	case domain.KindMargin:
		return diff <= t.Margin, true
	case domain.KindYardage:
		// Within 20% or 25 units, whichever is looser.
		tol := t.YardagePct * abs(actual)
		if t.YardageAbs > tol {
			tol = t.YardageAbs
		}
		return diff <= tol, true
	case domain.KindCounting:
		return diff <= t.Counting, true
	default:
		return false, false
	}
}

func numericValue(n *float64, raw string) (float64, bool) {
	if n != nil {
		return *n, true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
