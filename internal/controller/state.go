package controller

import (
	"evacuation-dashboard/internal/domain"
)

func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	c.search = term
	c.mu.Unlock()
}

func (c *Controller) SetFilter(f domain.StatusFilter) {
	if f == "" {
		f = domain.FilterAll
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

func (c *Controller) SetDraft(d domain.PlanDraft) {
	c.mu.Lock()
	c.draft = d
	c.mu.Unlock()
}

func (c *Controller) Draft() domain.PlanDraft {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft
}

func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Plans returns a copy of the full plan list.
func (c *Controller) Plans() []domain.EvacuationPlan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePlans(c.plans)
}

// Filtered applies the current search and status filter. It is recomputed
// on every call.
func (c *Controller) Filtered() []domain.EvacuationPlan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePlans(domain.FilterPlans(c.plans, c.search, c.filter))
}

// Summary aggregates over every loaded plan, not just the filtered view.
func (c *Controller) Summary() domain.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.Summarize(c.plans)
}

// Select marks a plan for the detail view. Unknown ids clear the selection.
func (c *Controller) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.plans {
		if p.ID == id {
			c.selected = id
			return true
		}
	}
	c.selected = ""
	return false
}

// Selected resolves the selection against the current list, so a plan
// removed by a reload is no longer returned.
func (c *Controller) Selected() (domain.EvacuationPlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == "" {
		return domain.EvacuationPlan{}, false
	}
	for _, p := range c.plans {
		if p.ID == c.selected {
			return p.Clone(), true
		}
	}
	return domain.EvacuationPlan{}, false
}

func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
}

func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Plans:      clonePlans(c.plans),
		Loading:    c.loading,
		Search:     c.search,
		Filter:     c.filter,
		SelectedID: c.selected,
		Draft:      c.draft,
	}
}

func clonePlans(in []domain.EvacuationPlan) []domain.EvacuationPlan {
	out := make([]domain.EvacuationPlan, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
