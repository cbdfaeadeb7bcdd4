package repositories

import (
	"context"
	"evacuation-dashboard/internal/domain"
	"fmt"
	"sync"
	"time"
)

// In-process implementation of the PlanRepository port.
type MemoryPlanRepository struct {
	mu    sync.RWMutex
	order []string
	plans map[string]domain.EvacuationPlan
	now   func() time.Time
}

func NewMemoryPlanRepository() *MemoryPlanRepository {
	return &MemoryPlanRepository{
		plans: make(map[string]domain.EvacuationPlan),
		now:   time.Now,
	}
}

// Return all plans in insertion order.
func (m *MemoryPlanRepository) ListPlans(ctx context.Context) ([]domain.EvacuationPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.EvacuationPlan, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.plans[id].Clone())
	}
	return out, nil
}

func (m *MemoryPlanRepository) GetPlan(ctx context.Context, id string) (domain.EvacuationPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[id]
	if !ok {
		return domain.EvacuationPlan{}, fmt.Errorf("get plan %q: %w", id, domain.ErrPlanNotFound)
	}
	return p.Clone(), nil
}

func (m *MemoryPlanRepository) CreatePlan(ctx context.Context, plan domain.EvacuationPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[plan.ID]; ok {
		return fmt.Errorf("create plan %q: %w", plan.ID, domain.ErrPlanConflict)
	}
	m.plans[plan.ID] = plan.Clone()
	m.order = append(m.order, plan.ID)
	return nil
}

func (m *MemoryPlanRepository) UpdatePlan(ctx context.Context, id string, patch domain.PlanPatch) (domain.EvacuationPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.plans[id]
	if !ok {
		return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: %w", id, domain.ErrPlanNotFound)
	}
	updated := patch.Apply(p, m.now())
	if err := updated.Validate(); err != nil {
		return domain.EvacuationPlan{}, fmt.Errorf("update plan %q: %w", id, err)
	}
	m.plans[id] = updated.Clone()
	return updated.Clone(), nil
}

func (m *MemoryPlanRepository) DeletePlan(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("delete plan %q: %w", id, domain.ErrPlanNotFound)
	}
	delete(m.plans, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
