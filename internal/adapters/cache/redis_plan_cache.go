// Package cache holds read-through caches in front of the plan store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"evacuation-dashboard/internal/domain"
	"evacuation-dashboard/internal/platform/obs"
	"evacuation-dashboard/internal/ports"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultListKey = "evacuation:plans:list"
	// DefaultGenKey counts invalidations. A list read from the store is
	// only written back if the counter did not move during the read.
	DefaultGenKey = "evacuation:plans:gen"
)

// RedisPlanCache decorates a PlanRepository, caching the full list in Redis.
// Every successful mutation drops the cached list. Redis failures are logged
// and the call falls through to the wrapped store.
type RedisPlanCache struct {
	next ports.PlanRepository
	rdb  *redis.Client
	ttl  time.Duration
	key  string
	gen  string
	log  *zap.Logger
}

var _ ports.PlanRepository = (*RedisPlanCache)(nil)

func NewRedisPlanCache(next ports.PlanRepository, rdb *redis.Client, ttl time.Duration, log *zap.Logger) (*RedisPlanCache, error) {
	if next == nil {
		return nil, errors.New("redis plan cache: repository is nil")
	}
	if rdb == nil {
		return nil, errors.New("redis plan cache: client is nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("redis plan cache: ttl must be positive, got %s", ttl)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisPlanCache{next: next, rdb: rdb, ttl: ttl, key: DefaultListKey, gen: DefaultGenKey, log: log}, nil
}

func (c *RedisPlanCache) ListPlans(ctx context.Context) (_ []domain.EvacuationPlan, err error) {
	defer obs.Time(ctx, "plans.cache.List")(&err)

	data, err := c.rdb.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var plans []domain.EvacuationPlan
		jsonErr := json.Unmarshal(data, &plans)
		if jsonErr == nil {
			return plans, nil
		}
		c.log.Warn("plan cache: drop undecodable entry", zap.Error(jsonErr))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("plan cache: get failed", zap.Error(err))
	}

	gen, genErr := c.generation(ctx)

	plans, err := c.next.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		c.log.Warn("plan cache: read generation failed", zap.Error(genErr))
		return plans, nil
	}
	c.fill(ctx, gen, plans)
	return plans, nil
}

func (c *RedisPlanCache) generation(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, c.gen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// fill stores plans unless a mutation invalidated the list after gen was read.
func (c *RedisPlanCache) fill(ctx context.Context, gen int64, plans []domain.EvacuationPlan) {
	enc, err := json.Marshal(plans)
	if err != nil {
		c.log.Warn("plan cache: encode failed", zap.Error(err))
		return
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		now, err := tx.Get(ctx, c.gen).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if now != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, enc, c.ttl)
			return nil
		})
		return err
	}, c.gen)

	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("plan cache: skip fill, list changed during read")
	default:
		c.log.Warn("plan cache: set failed", zap.Error(err))
	}
}

var errStaleRead = errors.New("plan list changed during read")

// GetPlan is not cached; single-plan reads go straight to the store.
func (c *RedisPlanCache) GetPlan(ctx context.Context, id string) (domain.EvacuationPlan, error) {
	return c.next.GetPlan(ctx, id)
}

func (c *RedisPlanCache) CreatePlan(ctx context.Context, plan domain.EvacuationPlan) error {
	if err := c.next.CreatePlan(ctx, plan); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *RedisPlanCache) UpdatePlan(ctx context.Context, id string, patch domain.PlanPatch) (domain.EvacuationPlan, error) {
	p, err := c.next.UpdatePlan(ctx, id, patch)
	if err != nil {
		return domain.EvacuationPlan{}, err
	}
	c.invalidate(ctx)
	return p, nil
}

func (c *RedisPlanCache) DeletePlan(ctx context.Context, id string) error {
	if err := c.next.DeletePlan(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// invalidate bumps the generation before dropping the list, so a concurrent
// reader holding an older list cannot write it back.
func (c *RedisPlanCache) invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, c.gen).Err(); err != nil {
		c.log.Warn("plan cache: bump generation failed", zap.Error(err))
	}
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		c.log.Warn("plan cache: invalidate failed", zap.Error(err))
	}
}
