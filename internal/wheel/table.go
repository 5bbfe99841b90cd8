// Package wheel holds the weighted probability tables of the prize wheel and
// the selector that draws from them.
package wheel

import (
	"errors"
	"fmt"
	"math"

	"github.com/core-coin/rota/internal/models"
)

var (
	// ErrInvalidTable is wrapped by every table validation failure.
	ErrInvalidTable = errors.New("invalid probability table")
	// ErrUnknownVariant is returned when no table is loaded for a variant.
	ErrUnknownVariant = errors.New("unknown wheel variant")
)

// ValidationError describes why a table was rejected.
type ValidationError struct {
	Variant string
	EntryID string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.EntryID != "" {
		return fmt.Sprintf("wheel %q: entry %q: %s", e.Variant, e.EntryID, e.Reason)
	}
	return fmt.Sprintf("wheel %q: %s", e.Variant, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTable
}

// Catalog is the set of prize codes a table may reference.
// A nil Catalog accepts any code.
type Catalog map[string]struct{}

// NewCatalog builds a catalog from prize codes.
func NewCatalog(codes []string) Catalog {
	c := make(Catalog, len(codes))
	for _, code := range codes {
		c[code] = struct{}{}
	}
	return c
}

func (c Catalog) allows(id string) bool {
	if c == nil {
		return true
	}
	_, ok := c[id]
	return ok
}

// Table is a validated, immutable probability table for one wheel variant.
type Table struct {
	variant    string
	entries    []models.PrizeEntry
	cumulative []float64
	total      float64
	fallback   int
}

// NewTable validates a wheel setting and builds its table.
// Entries are kept in the given order; order decides ties.
func NewTable(setting *models.WheelSetting, catalog Catalog) (*Table, error) {
	if setting == nil {
		return nil, &ValidationError{Reason: "missing setting"}
	}
	variant := setting.Variant
	invalid := func(id, format string, args ...interface{}) error {
		return &ValidationError{Variant: variant, EntryID: id, Reason: fmt.Sprintf(format, args...)}
	}

	if variant == "" {
		return nil, invalid("", "variant name is required")
	}
	if len(setting.Entries) == 0 {
		return nil, invalid("", "table has no entries")
	}

	t := &Table{
		variant:    variant,
		entries:    make([]models.PrizeEntry, len(setting.Entries)),
		cumulative: make([]float64, len(setting.Entries)),
		fallback:   -1,
	}
	seen := make(map[string]struct{}, len(setting.Entries))

	for i, e := range setting.Entries {
		if e.ID == "" {
			return nil, invalid("", "entry %d has no prize id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, invalid(e.ID, "duplicate prize id")
		}
		seen[e.ID] = struct{}{}
		if !catalog.allows(e.ID) {
			return nil, invalid(e.ID, "unknown prize id")
		}
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return nil, invalid(e.ID, "weight must be a finite number")
		}
		if e.Weight < 0 {
			return nil, invalid(e.ID, "weight must not be negative, got %v", e.Weight)
		}
		if e.Amount.IsNegative() {
			return nil, invalid(e.ID, "amount must not be negative")
		}

		t.total += e.Weight
		t.cumulative[i] = t.total
		t.entries[i] = copyEntry(e)
		if e.ID == setting.FallbackID {
			t.fallback = i
		}
	}

	if math.IsInf(t.total, 0) {
		return nil, invalid("", "total weight overflows")
	}
	if t.total <= 0 {
		return nil, invalid("", "total weight must be positive")
	}
	if setting.FallbackID == "" {
		return nil, invalid("", "fallback prize is required")
	}
	if t.fallback < 0 {
		return nil, invalid(setting.FallbackID, "fallback prize is not in the table")
	}

	return t, nil
}

// Variant returns the wheel variant name.
func (t *Table) Variant() string { return t.variant }

// TotalWeight returns the sum of all weights.
func (t *Table) TotalWeight() float64 { return t.total }

// Fallback returns the designated fallback entry.
func (t *Table) Fallback() models.PrizeEntry { return t.entries[t.fallback] }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Probabilities returns each entry's normalized weight, in table order. They sum to 1.
func (t *Table) Probabilities() map[string]float64 {
	out := make(map[string]float64, len(t.entries))
	for _, e := range t.entries {
		out[e.ID] = e.Weight / t.total
	}
	return out
}

// PickAt returns the entry selected by a draw r in [0, TotalWeight()).
// It walks entries in order and returns the first whose cumulative weight exceeds r,
// so the earlier entry wins identical boundaries. Anything left unmatched
// (rounding at the upper edge, NaN) resolves to the fallback entry.
func (t *Table) PickAt(r float64) models.PrizeEntry {
	for i, c := range t.cumulative {
		if r < c {
			return t.entries[i]
		}
	}
	return t.entries[t.fallback]
}

// Pick draws one entry using src.
func (t *Table) Pick(src Source) models.PrizeEntry {
	return t.PickAt(src.Float64() * t.total)
}

// Setting returns a copy of the table as a persistable setting.
func (t *Table) Setting() *models.WheelSetting {
	entries := make([]models.PrizeEntry, len(t.entries))
	for i, e := range t.entries {
		entries[i] = copyEntry(e)
	}
	return &models.WheelSetting{
		Variant:    t.variant,
		FallbackID: t.entries[t.fallback].ID,
		Entries:    entries,
	}
}

func copyEntry(e models.PrizeEntry) models.PrizeEntry {
	if e.Display != nil {
		display := make(map[string]string, len(e.Display))
		for k, v := range e.Display {
			display[k] = v
		}
		e.Display = display
	}
	return e
}
