package models

import "time"

// PlacementType describes what a partner channel placement is trying to achieve.
type PlacementType string

const (
	// PlacementTarget channels run until a subscriber goal is met.
	PlacementTarget PlacementType = "target"
	// PlacementPermanent channels have no automatic end.
	PlacementPermanent PlacementType = "permanent"
	// PlacementLimited channels run for a fixed time window.
	PlacementLimited PlacementType = "limited"
)

// Valid reports whether p is a known placement type.
func (p PlacementType) Valid() bool {
	switch p {
	case PlacementTarget, PlacementPermanent, PlacementLimited:
		return true
	}
	return false
}

// Channel is a partner channel users subscribe to for rewards.
type Channel struct {
	// ID is the unique identifier of the channel.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// Username is the public Telegram username, stored without the leading @.
	Username string `json:"username" gorm:"column:username;uniqueIndex;not null"`
	// PlacementType is one of target, permanent, limited.
	PlacementType PlacementType `json:"placement_type" gorm:"column:placement_type;size:16;not null"`
	// IsActive gates whether the channel is offered to users.
	IsActive bool `json:"is_active" gorm:"column:is_active;index;default:true"`
	// IsHotOffer multiplies the subscription reward without changing any odds.
	IsHotOffer bool `json:"is_hot_offer" gorm:"column:is_hot_offer;default:false"`
	// HotOfferSince is when the hot offer flag was last raised.
	HotOfferSince *time.Time `json:"hot_offer_since,omitempty" gorm:"column:hot_offer_since"`
	// RewardStars is the base reward for subscribing.
	RewardStars int64 `json:"reward_stars" gorm:"column:reward_stars;not null;default:0"`
	StartDate   time.Time  `json:"start_date" gorm:"column:start_date;not null"`
	EndDate     *time.Time `json:"end_date,omitempty" gorm:"column:end_date;index"`
	// CurrentSubscribers is recomputed by reconciliation only.
	CurrentSubscribers int64  `json:"current_subscribers" gorm:"column:current_subscribers;not null;default:0"`
	TargetSubscribers  *int64 `json:"target_subscribers,omitempty" gorm:"column:target_subscribers"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Channel) TableName() string {
	return "channels"
}

// Expired reports whether the channel's end date is at or before now.
func (c *Channel) Expired(now time.Time) bool {
	return c.EndDate != nil && !c.EndDate.After(now)
}

// TargetReached reports whether a target-type channel met its subscriber goal.
func (c *Channel) TargetReached() bool {
	return c.PlacementType == PlacementTarget && c.TargetSubscribers != nil &&
		c.CurrentSubscribers >= *c.TargetSubscribers
}

// Subscription records that a user claimed a channel-subscription reward.
type Subscription struct {
	ID               int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserID           int64      `json:"user_id" gorm:"column:user_id;index;not null"`
	ChannelID        int64      `json:"channel_id" gorm:"column:channel_id;index;not null"`
	IsActive         bool       `json:"is_active" gorm:"column:is_active;index;default:true"`
	SubscribedDate   time.Time  `json:"subscribed_date" gorm:"column:subscribed_date;index;not null"`
	UnsubscribedDate *time.Time `json:"unsubscribed_date,omitempty" gorm:"column:unsubscribed_date;index"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// SubscriptionCheck is a subscription joined with the channel username it must be verified against.
type SubscriptionCheck struct {
	SubscriptionID  int64  `gorm:"column:subscription_id"`
	UserID          int64  `gorm:"column:user_id"`
	ChannelID       int64  `gorm:"column:channel_id"`
	ChannelUsername string `gorm:"column:channel_username"`
}

// Violation is a recorded unsubscribe-after-reward or similar abuse event.
type Violation struct {
	ID        int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;index;not null"`
	ChannelID int64     `json:"channel_id" gorm:"column:channel_id;index"`
	Reason    string    `json:"reason" gorm:"column:reason"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`
}

// TableName specifies the table name for GORM
func (Violation) TableName() string {
	return "violations"
}
