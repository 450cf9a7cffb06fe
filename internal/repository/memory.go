package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

// MemoryPlanRepository хранит планы в памяти процесса. Используется,
// когда DATABASE_URL не задан; семантика идентична Postgres-реализации.
type MemoryPlanRepository struct {
	mu    sync.RWMutex
	plans []domain.Plan
}

func NewMemoryPlanRepository() *MemoryPlanRepository {
	return &MemoryPlanRepository{}
}

func (r *MemoryPlanRepository) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Plan, len(r.plans))
	copy(out, r.plans)
	return out, nil
}

func (r *MemoryPlanRepository) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans = append(r.plans, *plan)
	return nil
}

func (r *MemoryPlanRepository) UpdatePlanTarget(ctx context.Context, planID uuid.UUID, targetValue float64) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.plans {
		if r.plans[i].ID == planID {
			now := time.Now()
			r.plans[i].TargetValue = targetValue
			r.plans[i].UpdatedAt = &now
			updated := r.plans[i]
			return &updated, nil
		}
	}
	return nil, errors.New("PLAN_NOT_FOUND")
}

func (r *MemoryPlanRepository) DeletePlan(ctx context.Context, planID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.plans {
		if r.plans[i].ID == planID {
			r.plans = append(r.plans[:i], r.plans[i+1:]...)
			return nil
		}
	}
	return errors.New("PLAN_NOT_FOUND")
}

// Compile-time проверка.
var _ PlanRepository = (*MemoryPlanRepository)(nil)
