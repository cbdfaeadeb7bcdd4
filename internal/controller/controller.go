// Package controller owns the evacuation-plan list state behind the dashboard.
//
// The controller never patches its list in place: every mutation is sent to
// the backend and followed by a full reload, so local state is only trusted
// right after a successful List.
package controller

import (
	"context"
	"errors"
	"evacuation-dashboard/internal/domain"
	"evacuation-dashboard/internal/ports"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier surfaces a failure to the operator (a blocking alert in the TUI,
// a stderr line in the CLI).
type Notifier interface {
	Notify(op string, err error)
}

type NotifierFunc func(op string, err error)

func (f NotifierFunc) Notify(op string, err error) { f(op, err) }

// ConfirmFunc is asked before a destructive call; false aborts it.
type ConfirmFunc func(plan domain.EvacuationPlan) bool

// Options carries the controller's collaborators. Only Gateway is required.
type Options struct {
	Gateway  ports.PlanGateway
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
	NewID    func() string
}

// State is a copy of the controller state for rendering.
type State struct {
	Plans      []domain.EvacuationPlan
	Loading    bool
	Search     string
	Filter     domain.StatusFilter
	SelectedID string
	Draft      domain.PlanDraft
}

type Controller struct {
	gw     ports.PlanGateway
	notify Notifier
	log    *zap.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.RWMutex
	plans    []domain.EvacuationPlan
	loading  bool
	search   string
	filter   domain.StatusFilter
	selected string
	draft    domain.PlanDraft
}

func New(opts Options) (*Controller, error) {
	if opts.Gateway == nil {
		return nil, errors.New("controller: gateway is nil")
	}

	c := &Controller{
		gw:     opts.Gateway,
		notify: opts.Notifier,
		log:    opts.Logger,
		now:    opts.Now,
		newID:  opts.NewID,
		plans:  []domain.EvacuationPlan{},
		filter: domain.FilterAll,
	}
	if c.notify == nil {
		c.notify = NotifierFunc(func(string, error) {})
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = func() string { return uuid.NewString() }
	}
	return c, nil
}

// fail logs err, hands it to the notifier and returns it wrapped with op.
func (c *Controller) fail(op string, err error) error {
	c.log.Error("plan operation failed", zap.String("op", op), zap.Error(err))
	c.notify.Notify(op, err)
	return fmt.Errorf("%s: %w", op, err)
}

// Load replaces the plan list with the backend's. On failure the previous
// list is kept.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	plans, err := c.gw.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		return c.fail("load plans", err)
	}
	c.plans = plans
	c.log.Debug("plans loaded", zap.Int("count", len(plans)))
	return nil
}

// Create submits the current draft as a new inactive plan. The draft is
// cleared only after the backend accepted it.
func (c *Controller) Create(ctx context.Context) error {
	c.mu.RLock()
	draft := c.draft
	taken := make(map[string]struct{}, len(c.plans))
	for _, p := range c.plans {
		taken[p.ID] = struct{}{}
	}
	c.mu.RUnlock()

	if err := draft.Validate(); err != nil {
		return c.fail("create plan", err)
	}

	id := c.newID()
	for _, dup := taken[id]; dup; _, dup = taken[id] {
		id = c.newID()
	}
	plan := draft.NewPlan(id, c.now())

	if _, err := c.gw.Create(ctx, plan); err != nil {
		return c.fail("create plan", err)
	}
	c.log.Info("plan created", zap.String("id", plan.ID), zap.String("name", plan.Name))

	c.mu.Lock()
	if c.draft == draft {
		c.draft = domain.PlanDraft{}
	}
	c.mu.Unlock()

	return c.Load(ctx)
}

// UpdateStatus sends the locally held plan with a new status and timestamp,
// then reloads. A plan missing from the local list is reported as
// domain.ErrPlanNotFound and nothing is sent.
func (c *Controller) UpdateStatus(ctx context.Context, id string, status domain.PlanStatus) error {
	plan, ok := c.lookup(id)
	if !ok {
		return c.fail("update plan status", fmt.Errorf("%w: %q", domain.ErrPlanNotFound, id))
	}

	plan.Status = status
	plan.LastUpdated = c.now().UTC()

	var opErr error
	if _, err := c.gw.Update(ctx, id, plan); err != nil {
		opErr = c.fail("update plan status", err)
	} else {
		c.log.Info("plan status updated", zap.String("id", id), zap.String("status", string(status)))
	}

	if err := c.Load(ctx); err != nil && opErr == nil {
		opErr = err
	}
	return opErr
}

func (c *Controller) Activate(ctx context.Context, id string) error {
	return c.UpdateStatus(ctx, id, domain.PlanActive)
}

func (c *Controller) Deactivate(ctx context.Context, id string) error {
	return c.UpdateStatus(ctx, id, domain.PlanInactive)
}

// Toggle activates an inactive plan and deactivates anything else.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	plan, ok := c.lookup(id)
	if !ok {
		return c.fail("toggle plan", fmt.Errorf("%w: %q", domain.ErrPlanNotFound, id))
	}
	return c.UpdateStatus(ctx, id, domain.NextToggleStatus(plan.Status))
}

// Delete removes the plan after confirm returns true, then reloads.
// A nil confirm or a false answer sends nothing and leaves state unchanged.
func (c *Controller) Delete(ctx context.Context, id string, confirm ConfirmFunc) error {
	plan, ok := c.lookup(id)
	if !ok {
		return c.fail("delete plan", fmt.Errorf("%w: %q", domain.ErrPlanNotFound, id))
	}
	if confirm == nil || !confirm(plan) {
		c.log.Debug("plan delete not confirmed", zap.String("id", id))
		return nil
	}

	var opErr error
	if _, err := c.gw.Delete(ctx, id); err != nil {
		opErr = c.fail("delete plan", err)
	} else {
		c.log.Info("plan deleted", zap.String("id", id))
		c.mu.Lock()
		if c.selected == id {
			c.selected = ""
		}
		c.mu.Unlock()
	}

	if err := c.Load(ctx); err != nil && opErr == nil {
		opErr = err
	}
	return opErr
}

func (c *Controller) lookup(id string) (domain.EvacuationPlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.plans {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.EvacuationPlan{}, false
}
