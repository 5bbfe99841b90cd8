package wheel

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/core-coin/rota/internal/metrics"
	"github.com/core-coin/rota/internal/models"
)

// MaxSimulationDraws bounds operator test runs.
const MaxSimulationDraws = 1_000_000

// ErrInvalidDraws is returned for a non-positive or oversized simulation.
var ErrInvalidDraws = errors.New("invalid number of draws")

// Selector serves spins from the currently loaded tables.
// Readers never lock; a replacement swaps the whole variant map at once,
// so a spin sees either the old table or the new one, never a mix.
type Selector struct {
	src Source

	writeMu sync.Mutex
	tables  atomic.Pointer[map[string]*Table]
	catalog atomic.Pointer[Catalog]
}

// NewSelector creates an empty selector. src must be safe for concurrent use
// when the selector is shared; nil means CryptoSource.
func NewSelector(src Source) *Selector {
	if src == nil {
		src = CryptoSource()
	}
	s := &Selector{src: src}
	empty := map[string]*Table{}
	s.tables.Store(&empty)
	return s
}

// SetCatalog sets the prize codes later replacements are validated against.
// Tables already loaded are left untouched.
func (s *Selector) SetCatalog(codes []string) {
	c := NewCatalog(codes)
	s.catalog.Store(&c)
}

func (s *Selector) currentCatalog() Catalog {
	if c := s.catalog.Load(); c != nil {
		return *c
	}
	return nil
}

// Validate checks a setting without applying it.
func (s *Selector) Validate(setting *models.WheelSetting) (*Table, error) {
	return NewTable(setting, s.currentCatalog())
}

// Replace validates the setting and atomically swaps it in.
// On error the previously active table stays in effect.
func (s *Selector) Replace(setting *models.WheelSetting) error {
	t, err := s.Validate(setting)
	if err != nil {
		return err
	}
	s.swap(t)
	return nil
}

// Install swaps in an already validated table.
func (s *Selector) Install(t *Table) {
	s.swap(t)
}

func (s *Selector) swap(t *Table) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := *s.tables.Load()
	next := make(map[string]*Table, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[t.variant] = t
	s.tables.Store(&next)
}

// Table returns the active table of a variant.
func (s *Selector) Table(variant string) (*Table, bool) {
	t, ok := (*s.tables.Load())[variant]
	return t, ok
}

// Variants lists the loaded variant names, sorted.
func (s *Selector) Variants() []string {
	tables := *s.tables.Load()
	out := make([]string, 0, len(tables))
	for v := range tables {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *Selector) draw(t *Table) models.PrizeEntry {
	return t.Pick(s.src)
}

// Select draws a prize id from the variant's table. For a loaded variant it
// always returns an id present in the table.
func (s *Selector) Select(variant string) (string, error) {
	t, ok := s.Table(variant)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	entry := s.draw(t)
	metrics.DefaultMetrics.RecordSpin(variant, entry.ID)
	return entry.ID, nil
}

// Spin selects a prize and then scales its amount by multiplier.
func (s *Selector) Spin(variant string, multiplier decimal.Decimal) (*models.SpinResult, error) {
	t, ok := s.Table(variant)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	entry := s.draw(t)
	metrics.DefaultMetrics.RecordSpin(variant, entry.ID)
	return &models.SpinResult{
		Variant: variant,
		PrizeID: entry.ID,
		Amount:  ApplyMultiplier(entry.Amount, multiplier),
	}, nil
}

// Simulate runs draws selections through the production draw path and reports
// the empirical distribution. Simulated draws are not counted as spins.
func (s *Selector) Simulate(variant string, draws int) (*models.Distribution, error) {
	if draws <= 0 || draws > MaxSimulationDraws {
		return nil, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidDraws, draws, MaxSimulationDraws)
	}
	t, ok := s.Table(variant)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	counts := make(map[string]int, t.Len())
	for _, e := range t.entries {
		counts[e.ID] = 0
	}
	for i := 0; i < draws; i++ {
		counts[s.draw(t).ID]++
	}

	freq := make(map[string]float64, len(counts))
	for id, n := range counts {
		freq[id] = float64(n) / float64(draws)
	}
	return &models.Distribution{Variant: variant, Draws: draws, Counts: counts, Freq: freq}, nil
}
