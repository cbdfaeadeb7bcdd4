package ports

import (
	"context"
	"evacuation-dashboard/internal/domain"
)

// Ack is the backend's answer to a mutation: a confirmation message, and
// for endpoints that echo the entity, the updated plan.
type Ack struct {
	Message string
	Plan    *domain.EvacuationPlan
}

// Port: the client-side boundary to the plans REST resource.
// Every call is a single attempt; failures are returned, never retried.
type PlanGateway interface {
	List(ctx context.Context) ([]domain.EvacuationPlan, error)
	Create(ctx context.Context, plan domain.EvacuationPlan) (domain.EvacuationPlan, error)
	Update(ctx context.Context, id string, plan domain.EvacuationPlan) (Ack, error)
	Delete(ctx context.Context, id string) (Ack, error)
}
