package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPlanNotFound = errors.New("evacuation plan not found")
	ErrPlanConflict = errors.New("evacuation plan already exists")
	ErrInvalidPlan  = errors.New("invalid evacuation plan")
)

// PlanStatus is the lifecycle state of an evacuation plan.
// Status is always set by the caller; it is never derived from shelters or routes.
type PlanStatus string

const (
	PlanActive      PlanStatus = "active"
	PlanInactive    PlanStatus = "inactive"
	PlanUnderReview PlanStatus = "under-review"
)

func (s PlanStatus) Valid() bool {
	switch s {
	case PlanActive, PlanInactive, PlanUnderReview:
		return true
	}
	return false
}

type ShelterStatus string

const (
	ShelterOperational ShelterStatus = "operational"
	ShelterFull        ShelterStatus = "full"
	ShelterMaintenance ShelterStatus = "maintenance"
)

func (s ShelterStatus) Valid() bool {
	switch s {
	case ShelterOperational, ShelterFull, ShelterMaintenance:
		return true
	}
	return false
}

type RouteStatus string

const (
	RouteClear     RouteStatus = "clear"
	RouteBlocked   RouteStatus = "blocked"
	RouteCongested RouteStatus = "congested"
)

func (s RouteStatus) Valid() bool {
	switch s {
	case RouteClear, RouteBlocked, RouteCongested:
		return true
	}
	return false
}

// Represents a physical facility that receives evacuees under a plan.
// Occupancy above capacity is allowed; the dashboard only displays it.
type Shelter struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Location         string        `json:"location"`
	Capacity         int           `json:"capacity"`
	CurrentOccupancy int           `json:"currentOccupancy"`
	Facilities       []string      `json:"facilities"`
	Contact          string        `json:"contact"`
	Status           ShelterStatus `json:"status"`
}

// Return occupancy as a fraction of capacity, clamped to [0, 1].
func (s Shelter) OccupancyRate() float64 {
	if s.Capacity <= 0 || s.CurrentOccupancy <= 0 {
		return 0
	}
	r := float64(s.CurrentOccupancy) / float64(s.Capacity)
	if r > 1 {
		return 1
	}
	return r
}

// Represents a named path between two locations used during an evacuation.
// Distance and EstimatedTime are display strings ("8.5 km", "25 minutes").
type Route struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	From          string      `json:"from"`
	To            string      `json:"to"`
	Distance      string      `json:"distance"`
	EstimatedTime string      `json:"estimatedTime"`
	Status        RouteStatus `json:"status"`
}

// EvacuationPlan is the top-level entity covering an area.
// A plan exclusively owns its shelters and routes; they are stored and
// removed together with the plan.
type EvacuationPlan struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Area        string     `json:"area"`
	Capacity    int        `json:"capacity"`
	Shelters    []Shelter  `json:"shelters"`
	Routes      []Route    `json:"routes"`
	Status      PlanStatus `json:"status"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (p EvacuationPlan) Clone() EvacuationPlan {
	out := p
	out.Shelters = make([]Shelter, len(p.Shelters))
	for i, s := range p.Shelters {
		if s.Facilities != nil {
			s.Facilities = append(make([]string, 0, len(s.Facilities)), s.Facilities...)
		}
		out.Shelters[i] = s
	}
	out.Routes = append(make([]Route, 0, len(p.Routes)), p.Routes...)
	return out
}

// Validate checks the invariants the backend enforces before persisting a plan.
func (p EvacuationPlan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if strings.TrimSpace(p.Area) == "" {
		return fmt.Errorf("%w: area is required", ErrInvalidPlan)
	}
	if p.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidPlan)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPlan, p.Status)
	}

	for i, s := range p.Shelters {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: shelter #%d: id is required", ErrInvalidPlan, i+1)
		}
		if s.Capacity <= 0 {
			return fmt.Errorf("%w: shelter %q: capacity must be positive", ErrInvalidPlan, s.ID)
		}
		if !s.Status.Valid() {
			return fmt.Errorf("%w: shelter %q: unknown status %q", ErrInvalidPlan, s.ID, s.Status)
		}
	}

	for i, r := range p.Routes {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("%w: route #%d: id is required", ErrInvalidPlan, i+1)
		}
		if !r.Status.Valid() {
			return fmt.Errorf("%w: route %q: unknown status %q", ErrInvalidPlan, r.ID, r.Status)
		}
	}

	return nil
}

// NextToggleStatus is the status the activate/deactivate control moves a plan to.
// Only inactive plans are activated; every other status deactivates.
func NextToggleStatus(s PlanStatus) PlanStatus {
	if s == PlanInactive {
		return PlanActive
	}
	return PlanInactive
}
