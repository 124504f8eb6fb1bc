package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueueCounter hands out the per-day queue number used in order codes.
// day is formatted YYYYMMDD in the service time zone.
type QueueCounter interface {
	Next(ctx context.Context, tx *gorm.DB, day string) (int, error)
}

// DBQueueCounter increments a daily_counters row inside the checkout transaction,
// so a rolled back checkout also gives its number back.
type DBQueueCounter struct{}

func (DBQueueCounter) Next(ctx context.Context, tx *gorm.DB, day string) (int, error) {
	tx = tx.WithContext(ctx)
	incr := func() (int64, error) {
		res := tx.Model(&models.DailyCounter{}).Where("day = ?", day).
			UpdateColumn("value", gorm.Expr("value + 1"))
		return res.RowsAffected, res.Error
	}

	n, err := incr()
	if err != nil {
		return 0, fmt.Errorf("failed to increment queue counter: %w", err)
	}
	if n == 0 {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DailyCounter{Day: day, Value: 1})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to create queue counter: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return 1, nil
		}
		// another checkout created today's row first
		if _, err := incr(); err != nil {
			return 0, fmt.Errorf("failed to increment queue counter: %w", err)
		}
	}

	var value int
	if err := tx.Model(&models.DailyCounter{}).Where("day = ?", day).Select("value").Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("failed to read queue counter: %w", err)
	}
	return value, nil
}

const (
	// queue:{YYYYMMDD} -> last issued number
	KeyQueueCounter = "queue:%s"
	TTLQueueCounter = 48 * time.Hour
)

// RedisQueueCounter uses INCR on a per-day key. Numbers are not returned on rollback.
type RedisQueueCounter struct {
	rdb *redis.Client
}

func NewRedisQueueCounter(rdb *redis.Client) *RedisQueueCounter {
	return &RedisQueueCounter{rdb: rdb}
}

func (c *RedisQueueCounter) Next(ctx context.Context, _ *gorm.DB, day string) (int, error) {
	key := fmt.Sprintf(KeyQueueCounter, day)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, TTLQueueCounter)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment queue counter: %w", err)
	}
	return int(incr.Val()), nil
}
