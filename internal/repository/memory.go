package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lukechampine.com/frand"

	"github.com/core-coin/rota/internal/models"
)

// MemoryDB is an in-process implementation of models.Repository.
// Rows are copied on the way in and out, so callers never share state with the store.
type MemoryDB struct {
	mu sync.RWMutex

	channels      map[int64]*models.Channel
	subscriptions map[int64]*models.Subscription
	violations    map[int64]*models.Violation
	prizes        map[string]*models.Prize
	wheels        map[string]*models.WheelSetting
	userPrizes    map[int64]*models.UserPrize

	nextID int64
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		channels:      make(map[int64]*models.Channel),
		subscriptions: make(map[int64]*models.Subscription),
		violations:    make(map[int64]*models.Violation),
		prizes:        make(map[string]*models.Prize),
		wheels:        make(map[string]*models.WheelSetting),
		userPrizes:    make(map[int64]*models.UserPrize),
	}
}

func (m *MemoryDB) Close() error { return nil }

// id keeps a requested ID when it is free and allocates a new one otherwise,
// so an Add never overwrites an existing row.
func (m *MemoryDB) id(requested int64, taken func(int64) bool) int64 {
	if requested > 0 && !taken(requested) {
		if requested > m.nextID {
			m.nextID = requested
		}
		return requested
	}
	for {
		m.nextID++
		if !taken(m.nextID) {
			return m.nextID
		}
	}
}

// AddChannel stores a channel and returns its ID.
func (m *MemoryDB) AddChannel(c models.Channel) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id(c.ID, func(id int64) bool { _, ok := m.channels[id]; return ok })
	m.channels[c.ID] = &c
	return c.ID
}

// AddSubscription stores a subscription and returns its ID.
func (m *MemoryDB) AddSubscription(s models.Subscription) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id(s.ID, func(id int64) bool { _, ok := m.subscriptions[id]; return ok })
	m.subscriptions[s.ID] = &s
	return s.ID
}

// AddViolation stores a violation and returns its ID.
func (m *MemoryDB) AddViolation(v models.Violation) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.id(v.ID, func(id int64) bool { _, ok := m.violations[id]; return ok })
	m.violations[v.ID] = &v
	return v.ID
}

// AddPrize stores a catalog prize.
func (m *MemoryDB) AddPrize(p models.Prize) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prizes[p.Code] = &p
}

// AddUserPrize stores a won prize and returns its ID.
func (m *MemoryDB) AddUserPrize(p models.UserPrize) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id(p.ID, func(id int64) bool { _, ok := m.userPrizes[id]; return ok })
	m.userPrizes[p.ID] = &p
	return p.ID
}

// Subscription returns a copy of the stored subscription.
func (m *MemoryDB) Subscription(id int64) (models.Subscription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return models.Subscription{}, false
	}
	return *s, true
}

// ViolationCount returns the number of stored violations.
func (m *MemoryDB) ViolationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.violations)
}

func (m *MemoryDB) GetChannel(_ context.Context, id int64) (*models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.channels[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryDB) FindActiveChannelsPastEndDate(_ context.Context, now time.Time) ([]*models.Channel, error) {
	return m.findChannels(func(c *models.Channel) bool {
		return c.IsActive && c.Expired(now)
	}), nil
}

func (m *MemoryDB) FindActiveTargetChannels(_ context.Context) ([]*models.Channel, error) {
	return m.findChannels(func(c *models.Channel) bool {
		return c.IsActive && c.PlacementType == models.PlacementTarget
	}), nil
}

func (m *MemoryDB) findChannels(match func(*models.Channel) bool) []*models.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Channel
	for _, c := range m.channels {
		if match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryDB) SetChannelActive(_ context.Context, id int64, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if c.IsActive == active {
		return false, nil
	}
	c.IsActive = active
	c.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryDB) UpdateChannelSubscribers(_ context.Context, id int64, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return models.ErrNotFound
	}
	c.CurrentSubscribers = count
	return nil
}

func (m *MemoryDB) SetChannelHotOffer(_ context.Context, id int64, hot bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return models.ErrNotFound
	}
	c.IsHotOffer = hot
	c.HotOfferSince = nil
	if hot {
		since := at
		c.HotOfferSince = &since
	}
	return nil
}

func (m *MemoryDB) ClearStaleHotOffers(_ context.Context, now, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cleared int64
	for _, c := range m.channels {
		if !c.IsHotOffer {
			continue
		}
		if c.HotOfferSince == nil {
			since := now
			c.HotOfferSince = &since
			continue
		}
		if c.HotOfferSince.Before(cutoff) {
			c.IsHotOffer = false
			c.HotOfferSince = nil
			cleared++
		}
	}
	return cleared, nil
}

func (m *MemoryDB) CountActiveSubscriptions(_ context.Context, channelID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, s := range m.subscriptions {
		if s.ChannelID == channelID && s.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *MemoryDB) FindStaleSubscriptions(_ context.Context, olderThan time.Time, sampleSize int) ([]*models.SubscriptionCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.SubscriptionCheck
	for _, s := range m.subscriptions {
		if !s.IsActive || !s.SubscribedDate.Before(olderThan) {
			continue
		}
		c, ok := m.channels[s.ChannelID]
		if !ok {
			continue
		}
		out = append(out, &models.SubscriptionCheck{
			SubscriptionID:  s.ID,
			UserID:          s.UserID,
			ChannelID:       s.ChannelID,
			ChannelUsername: c.Username,
		})
	}
	frand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if sampleSize >= 0 && len(out) > sampleSize {
		out = out[:sampleSize]
	}
	return out, nil
}

func (m *MemoryDB) SetSubscriptionActive(_ context.Context, id int64, active bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return models.ErrNotFound
	}
	s.IsActive = active
	s.UnsubscribedDate = nil
	if !active {
		unsubscribed := at
		s.UnsubscribedDate = &unsubscribed
	}
	return nil
}

func (m *MemoryDB) DeleteOlderThan(_ context.Context, table models.RetentionTable, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	switch table {
	case models.RetentionViolations:
		for id, v := range m.violations {
			if v.CreatedAt.Before(cutoff) {
				delete(m.violations, id)
				deleted++
			}
		}
	case models.RetentionInactiveSubscriptions:
		for id, s := range m.subscriptions {
			if !s.IsActive && s.UnsubscribedDate != nil && s.UnsubscribedDate.Before(cutoff) {
				delete(m.subscriptions, id)
				deleted++
			}
		}
	default:
		return 0, fmt.Errorf("unknown retention table %q", table)
	}
	return deleted, nil
}

func (m *MemoryDB) CountUnfulfilledPrizesSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, p := range m.userPrizes {
		if !p.Fulfilled && !p.WonAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryDB) ListPrizeCodes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := make([]string, 0, len(m.prizes))
	for code := range m.prizes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *MemoryDB) LoadWheelSettings(_ context.Context) ([]*models.WheelSetting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.WheelSetting, 0, len(m.wheels))
	for _, w := range m.wheels {
		out = append(out, copyWheel(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Variant < out[j].Variant })
	return out, nil
}

func (m *MemoryDB) SaveWheelSetting(_ context.Context, setting *models.WheelSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyWheel(setting)
	cp.UpdatedAt = time.Now()
	m.wheels[setting.Variant] = cp
	return nil
}

func copyWheel(w *models.WheelSetting) *models.WheelSetting {
	cp := *w
	cp.Entries = append([]models.PrizeEntry(nil), w.Entries...)
	return &cp
}

var _ models.Repository = (*MemoryDB)(nil)
