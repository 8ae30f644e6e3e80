package anchor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xraph/n1c/types"
)

// Registry is the set of registered anchors. Lookups take a shared lock so
// concurrent quotes never block each other.
type Registry struct {
	mu      sync.RWMutex
	anchors map[string]*Anchor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{anchors: make(map[string]*Anchor)}
}

// Validate checks the id and both rates of a would-be anchor.
func Validate(id string, spread, taxRate decimal.Decimal) error {
	if id == "" {
		return fmt.Errorf("anchor: empty id: %w", types.ErrInvalidInput)
	}
	if !types.RateInRange(spread, MinSpread, MaxSpread) {
		return fmt.Errorf("anchor %s: spread %s%% outside [%d, %d]: %w",
			id, spread, MinSpread, MaxSpread, types.ErrInvalidRange)
	}
	if !types.RateInRange(taxRate, MinTaxRate, MaxTaxRate) {
		return fmt.Errorf("anchor %s: tax rate %s%% outside [%d, %d]: %w",
			id, taxRate, MinTaxRate, MaxTaxRate, types.ErrInvalidRange)
	}
	return nil
}

// Register adds a new anchor. It fails with types.ErrInvalidRange when a
// rate is out of bounds and types.ErrDuplicateID when id is taken.
func (r *Registry) Register(id string, spread, taxRate decimal.Decimal) (*Anchor, error) {
	if err := Validate(id, spread, taxRate); err != nil {
		return nil, err
	}

	a := &Anchor{
		Entity:  types.NewEntity(),
		ID:      id,
		Spread:  spread,
		TaxRate: taxRate,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.anchors[id]; ok {
		return nil, fmt.Errorf("anchor %s: %w", id, types.ErrDuplicateID)
	}
	r.anchors[id] = a
	return copyAnchor(a), nil
}

// RegisterDefault registers id with DefaultSpread and DefaultTaxRate.
func (r *Registry) RegisterDefault(id string) (*Anchor, error) {
	return r.Register(id, DefaultSpread, DefaultTaxRate)
}

// Get returns a copy of the anchor registered under id.
func (r *Registry) Get(id string) (*Anchor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		return nil, false
	}
	return copyAnchor(a), true
}

// List returns copies of every anchor sorted by id.
func (r *Registry) List() []*Anchor {
	r.mu.RLock()
	out := make([]*Anchor, 0, len(r.anchors))
	for _, a := range r.anchors {
		out = append(out, copyAnchor(a))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered anchors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.anchors)
}

// Fee returns the spread anchor id charges on amount. An unknown id charges nothing.
func (r *Registry) Fee(id string, amount types.Money) types.Money {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		return types.Zero(amount.Currency)
	}
	return a.Fee(amount)
}

// Tax returns the tax anchor id charges on amount. An unknown id charges nothing.
func (r *Registry) Tax(id string, amount types.Money) types.Money {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		return types.Zero(amount.Currency)
	}
	return a.Tax(amount)
}

// Quote returns fee and tax for amount under one lock acquisition.
func (r *Registry) Quote(id string, amount types.Money) Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		zero := types.Zero(amount.Currency)
		return Quote{Fee: zero, Tax: zero}
	}
	return Quote{Fee: a.Fee(amount), Tax: a.Tax(amount)}
}

// Restore replaces the registry contents with anchors loaded from a store.
// Every anchor is validated again; nothing is replaced on error.
func (r *Registry) Restore(anchors []*Anchor) error {
	next := make(map[string]*Anchor, len(anchors))
	for _, a := range anchors {
		if err := Validate(a.ID, a.Spread, a.TaxRate); err != nil {
			return err
		}
		if _, ok := next[a.ID]; ok {
			return fmt.Errorf("anchor %s: %w", a.ID, types.ErrDuplicateID)
		}
		next[a.ID] = copyAnchor(a)
	}

	r.mu.Lock()
	r.anchors = next
	r.mu.Unlock()
	return nil
}

func copyAnchor(a *Anchor) *Anchor {
	c := *a
	return &c
}
