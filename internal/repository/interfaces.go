package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

// PlanRepository хранилище планов. Формат хранения ядро не предписывает:
// в проде это Postgres, в тестах и без DATABASE_URL — память.
type PlanRepository interface {
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	CreatePlan(ctx context.Context, plan *domain.Plan) error
	UpdatePlanTarget(ctx context.Context, planID uuid.UUID, targetValue float64) (*domain.Plan, error)
	DeletePlan(ctx context.Context, planID uuid.UUID) error
}
