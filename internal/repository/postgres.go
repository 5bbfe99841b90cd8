package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Channel{},
		&models.Subscription{},
		&models.Violation{},
		&models.Prize{},
		&models.WheelSetting{},
		&models.UserPrize{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) GetChannel(ctx context.Context, id int64) (*models.Channel, error) {
	var channel models.Channel
	if err := db.Conn.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return &channel, nil
}

func (db *PostgresDB) FindActiveChannelsPastEndDate(ctx context.Context, now time.Time) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := db.Conn.WithContext(ctx).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date <= ?", true, now).
		Order("id").
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to find expired channels: %w", err)
	}
	return channels, nil
}

func (db *PostgresDB) FindActiveTargetChannels(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := db.Conn.WithContext(ctx).
		Where("is_active = ? AND placement_type = ?", true, models.PlacementTarget).
		Order("id").
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to find target channels: %w", err)
	}
	return channels, nil
}

func (db *PostgresDB) SetChannelActive(ctx context.Context, id int64, active bool) (bool, error) {
	// Conditional update: only the writer that actually flips the flag sees a row affected.
	res := db.Conn.WithContext(ctx).Model(&models.Channel{}).
		Where("id = ? AND is_active = ?", id, !active).
		Update("is_active", active)
	if res.Error != nil {
		return false, fmt.Errorf("failed to set channel active=%t: %w", active, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Conn.WithContext(ctx).Model(&models.Channel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check channel existence: %w", err)
	}
	if count == 0 {
		return false, models.ErrNotFound
	}
	return false, nil
}

func (db *PostgresDB) UpdateChannelSubscribers(ctx context.Context, id int64, count int64) error {
	if err := db.Conn.WithContext(ctx).Model(&models.Channel{}).
		Where("id = ?", id).
		Update("current_subscribers", count).Error; err != nil {
		return fmt.Errorf("failed to update channel subscribers: %w", err)
	}
	return nil
}

func (db *PostgresDB) SetChannelHotOffer(ctx context.Context, id int64, hot bool, at time.Time) error {
	updates := map[string]interface{}{"is_hot_offer": hot, "hot_offer_since": nil}
	if hot {
		updates["hot_offer_since"] = at
	}
	res := db.Conn.WithContext(ctx).Model(&models.Channel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to set channel hot offer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) ClearStaleHotOffers(ctx context.Context, now, cutoff time.Time) (int64, error) {
	var cleared int64
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Channel{}).
			Where("is_hot_offer = ? AND hot_offer_since IS NULL", true).
			Update("hot_offer_since", now).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Channel{}).
			Where("is_hot_offer = ? AND hot_offer_since < ?", true, cutoff).
			Updates(map[string]interface{}{"is_hot_offer": false, "hot_offer_since": nil})
		if res.Error != nil {
			return res.Error
		}
		cleared = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale hot offers: %w", err)
	}
	return cleared, nil
}

func (db *PostgresDB) CountActiveSubscriptions(ctx context.Context, channelID int64) (int64, error) {
	var count int64
	if err := db.Conn.WithContext(ctx).Model(&models.Subscription{}).
		Where("channel_id = ? AND is_active = ?", channelID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}

func (db *PostgresDB) FindStaleSubscriptions(ctx context.Context, olderThan time.Time, sampleSize int) ([]*models.SubscriptionCheck, error) {
	var checks []*models.SubscriptionCheck
	if err := db.Conn.WithContext(ctx).
		Table("subscriptions").
		Select("subscriptions.id AS subscription_id, subscriptions.user_id, subscriptions.channel_id, channels.username AS channel_username").
		Joins("JOIN channels ON channels.id = subscriptions.channel_id").
		Where("subscriptions.is_active = ? AND subscriptions.subscribed_date < ?", true, olderThan).
		Order("RANDOM()").
		Limit(sampleSize).
		Scan(&checks).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale subscriptions: %w", err)
	}
	return checks, nil
}

func (db *PostgresDB) SetSubscriptionActive(ctx context.Context, id int64, active bool, at time.Time) error {
	updates := map[string]interface{}{"is_active": active, "unsubscribed_date": nil}
	if !active {
		updates["unsubscribed_date"] = at
	}
	if err := db.Conn.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to set subscription active=%t: %w", active, err)
	}
	return nil
}

func (db *PostgresDB) DeleteOlderThan(ctx context.Context, table models.RetentionTable, cutoff time.Time) (int64, error) {
	var res *gorm.DB
	switch table {
	case models.RetentionViolations:
		res = db.Conn.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Violation{})
	case models.RetentionInactiveSubscriptions:
		res = db.Conn.WithContext(ctx).
			Where("is_active = ? AND unsubscribed_date IS NOT NULL AND unsubscribed_date < ?", false, cutoff).
			Delete(&models.Subscription{})
	default:
		return 0, fmt.Errorf("unknown retention table %q", table)
	}
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", table, res.Error)
	}
	return res.RowsAffected, nil
}

func (db *PostgresDB) CountUnfulfilledPrizesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := db.Conn.WithContext(ctx).Model(&models.UserPrize{}).
		Where("fulfilled = ? AND won_at >= ?", false, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unfulfilled prizes: %w", err)
	}
	return count, nil
}

func (db *PostgresDB) ListPrizeCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := db.Conn.WithContext(ctx).Model(&models.Prize{}).Order("code").Pluck("code", &codes).Error; err != nil {
		return nil, fmt.Errorf("failed to list prize codes: %w", err)
	}
	return codes, nil
}

func (db *PostgresDB) LoadWheelSettings(ctx context.Context) ([]*models.WheelSetting, error) {
	var settings []*models.WheelSetting
	if err := db.Conn.WithContext(ctx).Order("variant").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load wheel settings: %w", err)
	}
	return settings, nil
}

func (db *PostgresDB) SaveWheelSetting(ctx context.Context, setting *models.WheelSetting) error {
	if err := db.Conn.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(setting).Error; err != nil {
		return fmt.Errorf("failed to save wheel setting: %w", err)
	}
	return nil
}

var _ models.Repository = (*PostgresDB)(nil)
