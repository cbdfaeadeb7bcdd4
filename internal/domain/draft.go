package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlanDraft holds the fields an operator fills in before creating a plan.
type PlanDraft struct {
	Name     string `json:"name"`
	Area     string `json:"area"`
	Capacity int    `json:"capacity"`
}

func (d PlanDraft) IsZero() bool {
	return d == PlanDraft{}
}

// Validate only checks presence; everything else is left to the backend.
func (d PlanDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: plan name is required", ErrInvalidPlan)
	}
	if strings.TrimSpace(d.Area) == "" {
		return fmt.Errorf("%w: coverage area is required", ErrInvalidPlan)
	}
	if d.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidPlan)
	}
	return nil
}

// NewPlan builds a fresh plan from the draft: no shelters, no routes, inactive.
func (d PlanDraft) NewPlan(id string, now time.Time) EvacuationPlan {
	return EvacuationPlan{
		ID:          id,
		Name:        strings.TrimSpace(d.Name),
		Area:        strings.TrimSpace(d.Area),
		Capacity:    d.Capacity,
		Shelters:    []Shelter{},
		Routes:      []Route{},
		Status:      PlanInactive,
		LastUpdated: now.UTC(),
	}
}

// PlanPatch is a partial update. Nil fields are left untouched.
// ID and LastUpdated are accepted so a full plan can be sent as a patch,
// but they are never applied: the id comes from the path and the
// timestamp is stamped by the store.
type PlanPatch struct {
	ID          *string     `json:"id,omitempty"`
	Name        *string     `json:"name,omitempty"`
	Area        *string     `json:"area,omitempty"`
	Capacity    *int        `json:"capacity,omitempty"`
	Shelters    *[]Shelter  `json:"shelters,omitempty"`
	Routes      *[]Route    `json:"routes,omitempty"`
	Status      *PlanStatus `json:"status,omitempty"`
	LastUpdated *time.Time  `json:"lastUpdated,omitempty"`
}

// Apply returns a copy of p with the patch applied and LastUpdated set to now.
func (pp PlanPatch) Apply(p EvacuationPlan, now time.Time) EvacuationPlan {
	out := p.Clone()
	if pp.Name != nil {
		out.Name = *pp.Name
	}
	if pp.Area != nil {
		out.Area = *pp.Area
	}
	if pp.Capacity != nil {
		out.Capacity = *pp.Capacity
	}
	if pp.Shelters != nil {
		out.Shelters = append([]Shelter{}, (*pp.Shelters)...)
	}
	if pp.Routes != nil {
		out.Routes = append([]Route{}, (*pp.Routes)...)
	}
	if pp.Status != nil {
		out.Status = *pp.Status
	}
	out.LastUpdated = now.UTC()
	return out
}
