package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prize is an entry of the prize catalog. Probability tables reference prizes by Code.
type Prize struct {
	// Code is the prize identifier used in probability tables.
	Code  string `json:"code" gorm:"column:code;primaryKey;size:64"`
	Title string `json:"title" gorm:"column:title"`
	// Kind is free-form (stars, gift, empty, ...). Fulfillment is manual.
	Kind  string `json:"kind" gorm:"column:kind;size:32"`
	Stars int64  `json:"stars" gorm:"column:stars;not null;default:0"`
}

// TableName specifies the table name for GORM
func (Prize) TableName() string {
	return "prizes"
}

// PrizeEntry is one weighted slot of a wheel.
type PrizeEntry struct {
	ID     string          `json:"id"`
	Weight float64         `json:"weight"`
	Amount decimal.Decimal `json:"amount"`
	// Display holds presentation-only data (label, color, icon) for clients.
	Display map[string]string `json:"display,omitempty"`
}

// WheelSetting is the persisted probability table of one wheel variant.
type WheelSetting struct {
	Variant    string       `json:"variant" gorm:"column:variant;primaryKey;size:64"`
	FallbackID string       `json:"fallback_id" gorm:"column:fallback_id;not null"`
	Entries    []PrizeEntry `json:"entries" gorm:"column:entries;serializer:json;not null"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (WheelSetting) TableName() string {
	return "wheel_settings"
}

// UserPrize is a won prize awaiting manual fulfillment by an operator.
type UserPrize struct {
	ID        int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;index;not null"`
	PrizeCode string    `json:"prize_code" gorm:"column:prize_code;not null"`
	Fulfilled bool      `json:"fulfilled" gorm:"column:fulfilled;index;default:false"`
	WonAt     time.Time `json:"won_at" gorm:"column:won_at;index;not null"`
}

// TableName specifies the table name for GORM
func (UserPrize) TableName() string {
	return "user_prizes"
}
