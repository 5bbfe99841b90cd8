package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus is the read-only view of one scheduled job.
type JobStatus struct {
	Name      string    `json:"name"`
	Cadence   string    `json:"cadence"`
	LastRunAt time.Time `json:"last_run_at"`
	IsRunning bool      `json:"is_running"`
	Runs      int64     `json:"runs"`
	LastError string    `json:"last_error,omitempty"`
}

// SpinResult is the outcome of one wheel spin.
type SpinResult struct {
	Variant string          `json:"variant"`
	PrizeID string          `json:"prize_id"`
	Amount  decimal.Decimal `json:"amount"`
	// ChannelID is the channel the spin was earned through, if any.
	ChannelID int64 `json:"channel_id,omitempty"`
	HotOffer  bool  `json:"hot_offer"`
}

// Distribution is the empirical outcome of simulated spins.
type Distribution struct {
	Variant string             `json:"variant"`
	Draws   int                `json:"draws"`
	Counts  map[string]int     `json:"counts"`
	Freq    map[string]float64 `json:"frequencies"`
}

// RotaI is the engine surface used by the API and the bot.
type RotaI interface {
	// Start loads wheel tables, registers the automation jobs and starts them
	Start(ctx context.Context) error
	// Stop stops all jobs, letting in-flight runs finish until ctx is done
	Stop(ctx context.Context) error

	// Spin draws a prize. A non-zero channelID names the channel the spin was
	// earned through; its stored hot offer state decides the multiplier.
	Spin(ctx context.Context, variant string, channelID int64) (*SpinResult, error)
	Simulate(variant string, draws int) (*Distribution, error)
	GetWheel(variant string) (*WheelSetting, bool)
	UpdateWheel(ctx context.Context, setting *WheelSetting) error

	JobStatus() []JobStatus
	RunJob(name string) (bool, error)

	ActivateChannel(ctx context.Context, id int64) error
	DeactivateChannel(ctx context.Context, id int64) error
	SetHotOffer(ctx context.Context, id int64, enabled bool) error
}

type APIServer interface {
	Start()
	Shutdown() error
}
