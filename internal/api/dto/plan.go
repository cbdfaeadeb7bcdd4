package dto

import (
	"evacuation-dashboard/internal/domain"
	"strings"
	"time"
)

// CreatePlanRequest is the POST body. Every field is optional on the wire;
// the handler fills defaults and validates the resulting plan.
type CreatePlanRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Area        string            `json:"area"`
	Capacity    int               `json:"capacity"`
	Shelters    []domain.Shelter  `json:"shelters"`
	Routes      []domain.Route    `json:"routes"`
	Status      domain.PlanStatus `json:"status"`
	LastUpdated *time.Time        `json:"lastUpdated"`
}

// ToPlan builds the plan to store. The client timestamp is ignored; now is
// stamped instead. Missing children become empty lists and a missing status
// becomes inactive.
func (r CreatePlanRequest) ToPlan(id string, now time.Time) domain.EvacuationPlan {
	p := domain.EvacuationPlan{
		ID:          id,
		Name:        strings.TrimSpace(r.Name),
		Area:        strings.TrimSpace(r.Area),
		Capacity:    r.Capacity,
		Shelters:    r.Shelters,
		Routes:      r.Routes,
		Status:      r.Status,
		LastUpdated: now.UTC(),
	}
	if p.Shelters == nil {
		p.Shelters = []domain.Shelter{}
	}
	if p.Routes == nil {
		p.Routes = []domain.Route{}
	}
	if p.Status == "" {
		p.Status = domain.PlanInactive
	}
	return p
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	MsgPlanUpdated  = "Evacuation plan updated successfully"
	MsgPlanDeleted  = "Evacuation plan deleted successfully"
	MsgPlanNotFound = "Evacuation plan not found"
	MsgPlanExists   = "Evacuation plan already exists"
)
