package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

func newPlan(managerID string) *domain.Plan {
	return &domain.Plan{
		ID:          uuid.New(),
		ManagerID:   managerID,
		MetricType:  domain.MetricTypeLeads,
		PeriodType:  domain.PeriodTypeMonthly,
		TargetValue: 100,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-30",
		CreatedAt:   time.Now(),
	}
}

func TestMemoryRepository_CreateAndList(t *testing.T) {
	repo := NewMemoryPlanRepository()

	err := repo.CreatePlan(context.Background(), newPlan("1"))
	assert.NoError(t, err)
	err = repo.CreatePlan(context.Background(), newPlan("2"))
	assert.NoError(t, err)

	plans, err := repo.ListPlans(context.Background())
	assert.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestMemoryRepository_ListReturnsCopy(t *testing.T) {
	repo := NewMemoryPlanRepository()
	repo.CreatePlan(context.Background(), newPlan("1"))

	plans, _ := repo.ListPlans(context.Background())
	plans[0].TargetValue = 999

	again, _ := repo.ListPlans(context.Background())
	assert.Equal(t, 100.0, again[0].TargetValue)
}

func TestMemoryRepository_UpdatePlanTarget(t *testing.T) {
	repo := NewMemoryPlanRepository()
	plan := newPlan("1")
	repo.CreatePlan(context.Background(), plan)

	updated, err := repo.UpdatePlanTarget(context.Background(), plan.ID, 250)
	assert.NoError(t, err)
	assert.Equal(t, 250.0, updated.TargetValue)
	assert.NotNil(t, updated.UpdatedAt)
}

func TestMemoryRepository_UpdatePlanTarget_NotFound(t *testing.T) {
	repo := NewMemoryPlanRepository()

	_, err := repo.UpdatePlanTarget(context.Background(), uuid.New(), 250)
	assert.Error(t, err)
	assert.Equal(t, "PLAN_NOT_FOUND", err.Error())
}

func TestMemoryRepository_DeletePlan(t *testing.T) {
	repo := NewMemoryPlanRepository()
	plan := newPlan("1")
	repo.CreatePlan(context.Background(), plan)

	err := repo.DeletePlan(context.Background(), plan.ID)
	assert.NoError(t, err)

	plans, _ := repo.ListPlans(context.Background())
	assert.Empty(t, plans)

	err = repo.DeletePlan(context.Background(), plan.ID)
	assert.Error(t, err)
	assert.Equal(t, "PLAN_NOT_FOUND", err.Error())
}

func TestMemoryRepository_ConcurrentAccess(t *testing.T) {
	repo := NewMemoryPlanRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			repo.CreatePlan(context.Background(), newPlan("1"))
		}()
		go func() {
			defer wg.Done()
			repo.ListPlans(context.Background())
		}()
	}
	wg.Wait()

	plans, err := repo.ListPlans(context.Background())
	assert.NoError(t, err)
	assert.Len(t, plans, 50)
}
