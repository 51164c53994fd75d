// Package usage meters drafted comments per user and calendar month.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "usage:comments"

// Snapshot is the usage of one user in the current period.
type Snapshot struct {
	Period    string `json:"period"`
	Used      int64  `json:"used"`
	Limit     int    `json:"limit"`
	Unlimited bool   `json:"unlimited"`
}

// Meter counts comments in Redis. A nil client or a zero limit disables
// enforcement.
type Meter struct {
	rdb   *redis.Client
	limit int
	now   func() time.Time
}

func NewMeter(rdb *redis.Client, limit int) *Meter {
	return &Meter{rdb: rdb, limit: limit, now: time.Now}
}

// Key returns the counter key of userID for the month containing at.
func Key(userID string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, userID, Period(at))
}

// Period formats the calendar month (UTC) containing at.
func Period(at time.Time) string {
	return at.UTC().Format("2006-01")
}

func (m *Meter) Limit() int {
	return m.limit
}

// Enabled reports whether usage is counted at all.
func (m *Meter) Enabled() bool {
	return m.rdb != nil
}

// Current returns the number of comments userID drafted this month.
func (m *Meter) Current(ctx context.Context, userID string) (int64, error) {
	if m.rdb == nil {
		return 0, nil
	}
	n, err := m.rdb.Get(ctx, Key(userID, m.now())).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Allow reports whether userID may draft another comment this month.
func (m *Meter) Allow(ctx context.Context, userID string) (bool, error) {
	if m.rdb == nil || m.limit <= 0 {
		return true, nil
	}
	n, err := m.Current(ctx, userID)
	if err != nil {
		return false, err
	}
	return n < int64(m.limit), nil
}

// Increment records one drafted comment and returns the new monthly total.
// The counter expires a day after the month ends.
func (m *Meter) Increment(ctx context.Context, userID string) (int64, error) {
	if m.rdb == nil {
		return 0, nil
	}
	now := m.now().UTC()
	key := Key(userID, now)
	monthEnd := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	var incr *redis.IntCmd
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireAt(ctx, key, monthEnd.Add(24*time.Hour))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Snapshot reports usage for userID. Subscribers are unlimited.
func (m *Meter) Snapshot(ctx context.Context, userID string, subscribed bool) (Snapshot, error) {
	used, err := m.Current(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Period:    Period(m.now()),
		Used:      used,
		Limit:     m.limit,
		Unlimited: subscribed || m.limit <= 0 || m.rdb == nil,
	}, nil
}
