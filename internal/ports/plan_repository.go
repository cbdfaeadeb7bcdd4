package ports

import (
	"context"
	"evacuation-dashboard/internal/domain"
)

// Port: the server-side store for evacuation plans.
// Implementations return domain.ErrPlanNotFound and domain.ErrPlanConflict
// (wrapped) so handlers can map them to HTTP status codes.
type PlanRepository interface {
	// Return all plans in insertion order.
	ListPlans(ctx context.Context) ([]domain.EvacuationPlan, error)
	GetPlan(ctx context.Context, id string) (domain.EvacuationPlan, error)
	CreatePlan(ctx context.Context, plan domain.EvacuationPlan) error
	// Apply a partial update and return the stored result.
	UpdatePlan(ctx context.Context, id string, patch domain.PlanPatch) (domain.EvacuationPlan, error)
	DeletePlan(ctx context.Context, id string) error
}
