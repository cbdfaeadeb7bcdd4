package gateway

import (
	"context"
	"encoding/json"
	"evacuation-dashboard/internal/domain"
	"evacuation-dashboard/internal/ports"
	"net/http"
	"net/url"
)

const plansEndpoint = "/evacuation-plans"

// PlansAPI is the evacuation-plans resource group. It implements ports.PlanGateway.
type PlansAPI struct {
	c *Client
}

var _ ports.PlanGateway = (*PlansAPI)(nil)

func planPath(id string) string {
	return plansEndpoint + "/" + url.PathEscape(id)
}

func (p *PlansAPI) List(ctx context.Context) ([]domain.EvacuationPlan, error) {
	var out []domain.EvacuationPlan
	if err := p.c.Request(ctx, http.MethodGet, plansEndpoint, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.EvacuationPlan{}
	}
	return out, nil
}

func (p *PlansAPI) Get(ctx context.Context, id string) (domain.EvacuationPlan, error) {
	var out domain.EvacuationPlan
	if err := p.c.Request(ctx, http.MethodGet, planPath(id), nil, &out); err != nil {
		return domain.EvacuationPlan{}, err
	}
	return out, nil
}

// Create posts the plan and returns the entity the backend stored.
func (p *PlansAPI) Create(ctx context.Context, plan domain.EvacuationPlan) (domain.EvacuationPlan, error) {
	var out domain.EvacuationPlan
	if err := p.c.Request(ctx, http.MethodPost, plansEndpoint, plan, &out); err != nil {
		return domain.EvacuationPlan{}, err
	}
	return out, nil
}

// Update sends the plan to PUT /evacuation-plans/{id}. Depending on the
// backend version the answer is a {message} envelope or the updated entity.
func (p *PlansAPI) Update(ctx context.Context, id string, plan domain.EvacuationPlan) (ports.Ack, error) {
	var raw json.RawMessage
	if err := p.c.Request(ctx, http.MethodPut, planPath(id), plan, &raw); err != nil {
		return ports.Ack{}, err
	}
	return decodeAck(raw), nil
}

func (p *PlansAPI) Delete(ctx context.Context, id string) (ports.Ack, error) {
	var raw json.RawMessage
	if err := p.c.Request(ctx, http.MethodDelete, planPath(id), nil, &raw); err != nil {
		return ports.Ack{}, err
	}
	return decodeAck(raw), nil
}

func decodeAck(raw json.RawMessage) ports.Ack {
	if len(raw) == 0 {
		return ports.Ack{}
	}

	var probe struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ports.Ack{}
	}
	if probe.ID == "" {
		return ports.Ack{Message: probe.Message}
	}

	var plan domain.EvacuationPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return ports.Ack{Message: probe.Message}
	}
	return ports.Ack{Message: probe.Message, Plan: &plan}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	if err := c.Request(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return HealthStatus{}, err
	}
	return out, nil
}
