// Package rota wires the prize wheels and the automation jobs together.
package rota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/core-coin/rota/internal/channels"
	"github.com/core-coin/rota/internal/config"
	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/internal/scheduler"
	"github.com/core-coin/rota/internal/verifier"
	"github.com/core-coin/rota/internal/wheel"
	"github.com/core-coin/rota/pkg/logger"
)

// Rota is the main struct of the engine.
// It owns the prize wheels and the scheduler running the automation jobs,
// and serves the operator operations on top of them.
type Rota struct {
	logger *logger.Logger
	config *config.Config

	repo      models.Repository
	notifier  models.AdminNotifier
	selector  *wheel.Selector
	scheduler *scheduler.Scheduler
	tracker   *channels.Tracker
	sweeper   *verifier.Sweeper

	// serializes persist-then-swap of wheel updates
	wheelMu sync.Mutex
	now     func() time.Time
}

type Option func(*Rota)

// WithRandomSource replaces the CSPRNG used for spins.
func WithRandomSource(src wheel.Source) Option {
	return func(r *Rota) { r.selector = wheel.NewSelector(src) }
}

// WithClock replaces time.Now for job bodies.
func WithClock(now func() time.Time) Option {
	return func(r *Rota) { r.now = now }
}

// NewRota creates a new Rota instance
func NewRota(
	repo models.Repository,
	notifier models.AdminNotifier,
	lookup models.MembershipLookup,
	logger *logger.Logger,
	config *config.Config,
	opts ...Option,
) *Rota {
	v := verifier.NewVerifier(lookup, config.MembershipTimeout, logger)
	r := &Rota{
		logger:    logger,
		config:    config,
		repo:      repo,
		notifier:  notifier,
		selector:  wheel.NewSelector(nil),
		scheduler: scheduler.New(logger),
		tracker:   channels.NewTracker(repo, notifier, config.HotOfferMultiplier, logger),
		sweeper: verifier.NewSweeper(v, repo, verifier.NewPacer(config.VerifySpacing),
			config.VerifyBatchSize, config.VerifyMinAge, logger),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start loads the wheels, registers the automation jobs and starts them.
func (r *Rota) Start(ctx context.Context) error {
	if err := r.loadWheels(ctx); err != nil {
		return err
	}
	if err := r.registerJobs(); err != nil {
		return err
	}
	r.scheduler.Start()
	r.logger.Infow("Rota started", "wheels", r.selector.Variants())
	return nil
}

// Stop disarms every job and waits for in-flight runs.
func (r *Rota) Stop(ctx context.Context) error {
	return r.scheduler.StopAll(ctx)
}

func (r *Rota) loadWheels(ctx context.Context) error {
	codes, err := r.repo.ListPrizeCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load prize catalog: %w", err)
	}
	if len(codes) > 0 {
		r.selector.SetCatalog(codes)
	} else {
		r.logger.Warn("Prize catalog is empty, wheel entries are not checked against it")
	}

	settings, err := r.repo.LoadWheelSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load wheel settings: %w", err)
	}
	for _, setting := range settings {
		if err := r.selector.Replace(setting); err != nil {
			r.logger.Errorw("Skipping invalid stored wheel", "variant", setting.Variant, "error", err)
			continue
		}
		r.logger.Debugw("Wheel loaded", "variant", setting.Variant, "entries", len(setting.Entries))
	}
	return nil
}

// Spin draws a prize from the variant's wheel. When the spin was earned
// through an active hot offer channel the won amount is scaled by the hot
// offer multiplier; the odds are the same either way.
func (r *Rota) Spin(ctx context.Context, variant string, channelID int64) (*models.SpinResult, error) {
	multiplier := decimal.NewFromInt(1)
	hot := false
	if channelID != 0 {
		c, err := r.repo.GetChannel(ctx, channelID)
		if err != nil {
			return nil, err
		}
		if c.IsActive && c.IsHotOffer {
			multiplier = r.tracker.Multiplier(c)
			hot = true
		}
	}

	res, err := r.selector.Spin(variant, multiplier)
	if err != nil {
		return nil, err
	}
	res.ChannelID = channelID
	res.HotOffer = hot
	return res, nil
}

// Simulate runs draws spins of a variant without recording them.
func (r *Rota) Simulate(variant string, draws int) (*models.Distribution, error) {
	return r.selector.Simulate(variant, draws)
}

// GetWheel returns the active table of a variant.
func (r *Rota) GetWheel(variant string) (*models.WheelSetting, bool) {
	t, ok := r.selector.Table(variant)
	if !ok {
		return nil, false
	}
	return t.Setting(), true
}

// UpdateWheel validates, persists and then swaps in a wheel.
// Nothing changes when validation or persistence fails.
func (r *Rota) UpdateWheel(ctx context.Context, setting *models.WheelSetting) error {
	r.wheelMu.Lock()
	defer r.wheelMu.Unlock()

	table, err := r.selector.Validate(setting)
	if err != nil {
		return err
	}
	if err := r.repo.SaveWheelSetting(ctx, table.Setting()); err != nil {
		return err
	}
	r.selector.Install(table)
	r.logger.Infow("Wheel updated", "variant", setting.Variant, "entries", table.Len(), "fallback", table.Fallback().ID)
	return nil
}

func (r *Rota) JobStatus() []models.JobStatus {
	return r.scheduler.Status()
}

// RunJob triggers a job now. It reports false when the job is already running.
func (r *Rota) RunJob(name string) (bool, error) {
	return r.scheduler.Trigger(name)
}

func (r *Rota) ActivateChannel(ctx context.Context, id int64) error {
	return r.tracker.Activate(ctx, id)
}

func (r *Rota) DeactivateChannel(ctx context.Context, id int64) error {
	return r.tracker.Deactivate(ctx, id)
}

func (r *Rota) SetHotOffer(ctx context.Context, id int64, enabled bool) error {
	return r.tracker.SetHotOffer(ctx, id, enabled, r.now())
}

// CountUnfulfilledPrizesSince is used by the operator bot commands.
func (r *Rota) CountUnfulfilledPrizesSince(ctx context.Context, since time.Time) (int64, error) {
	return r.repo.CountUnfulfilledPrizesSince(ctx, since)
}

var _ models.RotaI = (*Rota)(nil)
