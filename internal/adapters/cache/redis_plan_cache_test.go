package cache

import (
	"context"
	"errors"
	"evacuation-dashboard/internal/domain"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo is a PlanRepository that counts list calls.
type countingRepo struct {
	mu      sync.Mutex
	plans   []domain.EvacuationPlan
	lists   int
	failing error
	// afterRead runs once the list has been copied, outside the lock.
	afterRead func()
}

func (r *countingRepo) ListPlans(ctx context.Context) ([]domain.EvacuationPlan, error) {
	r.mu.Lock()
	r.lists++
	if r.failing != nil {
		r.mu.Unlock()
		return nil, r.failing
	}
	out := append([]domain.EvacuationPlan(nil), r.plans...)
	hook := r.afterRead
	r.afterRead = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (r *countingRepo) GetPlan(ctx context.Context, id string) (domain.EvacuationPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.EvacuationPlan{}, domain.ErrPlanNotFound
}

func (r *countingRepo) CreatePlan(ctx context.Context, plan domain.EvacuationPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.ID == plan.ID {
			return domain.ErrPlanConflict
		}
	}
	r.plans = append(r.plans, plan)
	return nil
}

func (r *countingRepo) UpdatePlan(ctx context.Context, id string, patch domain.PlanPatch) (domain.EvacuationPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.plans {
		if p.ID == id {
			r.plans[i] = patch.Apply(p, time.Now())
			return r.plans[i], nil
		}
	}
	return domain.EvacuationPlan{}, domain.ErrPlanNotFound
}

func (r *countingRepo) DeletePlan(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.plans {
		if p.ID == id {
			r.plans = append(r.plans[:i], r.plans[i+1:]...)
			return nil
		}
	}
	return domain.ErrPlanNotFound
}

func (r *countingRepo) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists
}

func plan(id string) domain.EvacuationPlan {
	return domain.EvacuationPlan{
		ID: id, Name: "Plan " + id, Area: "Area", Capacity: 100,
		Shelters: []domain.Shelter{}, Routes: []domain.Route{},
		Status:      domain.PlanInactive,
		LastUpdated: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
	}
}

func newCache(t *testing.T, repo *countingRepo) (*RedisPlanCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c, err := NewRedisPlanCache(repo, rdb, time.Minute, nil)
	require.NoError(t, err)
	return c, mr
}

func TestRedisPlanCache_ListIsCached(t *testing.T) {
	repo := &countingRepo{plans: []domain.EvacuationPlan{plan("a"), plan("b")}}
	c, mr := newCache(t, repo)
	ctx := context.Background()

	first, err := c.ListPlans(ctx)
	require.NoError(t, err)
	second, err := c.ListPlans(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls())
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(DefaultListKey))
	assert.Equal(t, time.Minute, mr.TTL(DefaultListKey))
}

func TestRedisPlanCache_ExpiresWithTTL(t *testing.T) {
	repo := &countingRepo{plans: []domain.EvacuationPlan{plan("a")}}
	c, mr := newCache(t, repo)
	ctx := context.Background()

	_, err := c.ListPlans(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = c.ListPlans(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, repo.listCalls())
}

func TestRedisPlanCache_MutationsInvalidate(t *testing.T) {
	repo := &countingRepo{plans: []domain.EvacuationPlan{plan("a")}}
	c, mr := newCache(t, repo)
	ctx := context.Background()

	_, err := c.ListPlans(ctx)
	require.NoError(t, err)

	require.NoError(t, c.CreatePlan(ctx, plan("b")))
	assert.False(t, mr.Exists(DefaultListKey))

	plans, err := c.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	status := domain.PlanActive
	_, err = c.UpdatePlan(ctx, "a", domain.PlanPatch{Status: &status})
	require.NoError(t, err)
	assert.False(t, mr.Exists(DefaultListKey))

	plans, err = c.ListPlans(ctx)
	require.NoError(t, err)
	require.NoError(t, c.DeletePlan(ctx, "b"))
	assert.False(t, mr.Exists(DefaultListKey))

	plans, err = c.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, domain.PlanActive, plans[0].Status)
}

func TestRedisPlanCache_ReadRacingCreateDoesNotCacheStaleList(t *testing.T) {
	read := make(chan struct{})
	release := make(chan struct{})
	repo := &countingRepo{plans: []domain.EvacuationPlan{plan("a")}}
	repo.afterRead = func() {
		close(read)
		<-release
	}
	c, mr := newCache(t, repo)
	ctx := context.Background()

	type result struct {
		plans []domain.EvacuationPlan
		err   error
	}
	done := make(chan result, 1)
	go func() {
		plans, err := c.ListPlans(ctx)
		done <- result{plans, err}
	}()

	<-read
	require.NoError(t, c.CreatePlan(ctx, plan("b")))
	close(release)

	stale := <-done
	require.NoError(t, stale.err)
	assert.Len(t, stale.plans, 1)
	assert.False(t, mr.Exists(DefaultListKey), "list read before the create must not be cached")

	plans, err := c.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	again, err := c.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, 2, repo.listCalls())
}

func TestRedisPlanCache_FailedMutationKeepsEntry(t *testing.T) {
	repo := &countingRepo{plans: []domain.EvacuationPlan{plan("a")}}
	c, mr := newCache(t, repo)
	ctx := context.Background()

	_, err := c.ListPlans(ctx)
	require.NoError(t, err)

	err = c.DeletePlan(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	assert.True(t, mr.Exists(DefaultListKey))
}

func TestRedisPlanCache_FallsThroughWhenRedisIsDown(t *testing.T) {
	repo := &countingRepo{plans: []domain.EvacuationPlan{plan("a")}}
	c, mr := newCache(t, repo)
	ctx := context.Background()

	mr.Close()

	plans, err := c.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
	require.NoError(t, c.CreatePlan(ctx, plan("b")))
}

func TestRedisPlanCache_CorruptEntryIsReplaced(t *testing.T) {
	repo := &countingRepo{plans: []domain.EvacuationPlan{plan("a")}}
	c, mr := newCache(t, repo)
	ctx := context.Background()

	require.NoError(t, mr.Set(DefaultListKey, "{not json"))

	plans, err := c.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
	assert.Equal(t, 1, repo.listCalls())
}

func TestRedisPlanCache_StoreErrorIsReturned(t *testing.T) {
	repo := &countingRepo{failing: errors.New("db down")}
	c, mr := newCache(t, repo)

	_, err := c.ListPlans(context.Background())
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists(DefaultListKey))
}

func TestNewRedisPlanCache_Validates(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	_, err := NewRedisPlanCache(nil, rdb, time.Minute, nil)
	assert.Error(t, err)
	_, err = NewRedisPlanCache(&countingRepo{}, nil, time.Minute, nil)
	assert.Error(t, err)
	_, err = NewRedisPlanCache(&countingRepo{}, rdb, 0, nil)
	assert.Error(t, err)
}
