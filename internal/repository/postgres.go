package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

type PostgresPlanRepository struct {
	db *sqlx.DB
}

func NewPostgresPlanRepository(db *sqlx.DB) *PostgresPlanRepository {
	return &PostgresPlanRepository{db: db}
}

func (r *PostgresPlanRepository) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	var plans []domain.Plan
	err := r.db.SelectContext(ctx, &plans, `
		SELECT plan_id, manager_id, metric_type, period_type, target_value,
		       start_date, end_date, created_at, updated_at
		FROM plans
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (r *PostgresPlanRepository) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plans (plan_id, manager_id, metric_type, period_type, target_value, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, plan.ID, plan.ManagerID, plan.MetricType, plan.PeriodType, plan.TargetValue,
		plan.StartDate, plan.EndDate, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	slog.Info("Plan created in DB", "plan_id", plan.ID, "manager_id", plan.ManagerID)
	return nil
}

func (r *PostgresPlanRepository) UpdatePlanTarget(ctx context.Context, planID uuid.UUID, targetValue float64) (*domain.Plan, error) {
	now := time.Now()

	var plan domain.Plan
	err := r.db.GetContext(ctx, &plan, `
		UPDATE plans
		SET target_value = $2, updated_at = $3
		WHERE plan_id = $1
		RETURNING plan_id, manager_id, metric_type, period_type, target_value,
		          start_date, end_date, created_at, updated_at
	`, planID, targetValue, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("PLAN_NOT_FOUND")
		}
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}

	return &plan, nil
}

func (r *PostgresPlanRepository) DeletePlan(ctx context.Context, planID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE plan_id = $1`, planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return errors.New("PLAN_NOT_FOUND")
	}
	return nil
}

// Compile-time проверка.
var _ PlanRepository = (*PostgresPlanRepository)(nil)
