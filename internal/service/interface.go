package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

// DataSource контракт источника данных CRM. Пагинация, повторы при
// лимитах и транспортные ошибки — забота реализации, ядро их не видит.
type DataSource interface {
	FetchLeads(ctx context.Context, startDate, endDate string) ([]domain.LeadRecord, error)
	FetchDeals(ctx context.Context, startDate, endDate string) ([]domain.DealRecord, error)
	FetchStaff(ctx context.Context) ([]domain.StaffRecord, error)
	FetchStatuses(ctx context.Context) ([]domain.StatusRecord, error)
}

// Notifier слой доставки уведомлений.
type Notifier interface {
	SendDailyReport(ctx context.Context, report *domain.DailyReport) error
	SendAlerts(ctx context.Context, alerts []domain.Alert) error
}

// ServiceInterface определяет методы бизнес-логики.
type ServiceInterface interface {
	DailyReport(ctx context.Context, date string) (*domain.DailyReport, error)
	PeriodReport(ctx context.Context, startDate, endDate, period string) (*domain.PeriodReport, error)
	LeadsMetrics(ctx context.Context, date, managerID string) (*domain.LeadsMetricsView, error)
	SalesMetrics(ctx context.Context, date, managerID string) (*domain.SalesMetricsView, error)
	ConversionMetrics(ctx context.Context, startDate, endDate string) (*domain.ConversionReport, error)
	ManagerDetail(ctx context.Context, managerID, startDate, endDate string) (*domain.ManagerDetail, error)
	CurrentAlerts(ctx context.Context) ([]domain.Alert, error)
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	CreatePlan(ctx context.Context, plan *domain.Plan) (*domain.Plan, error)
	UpdatePlanTarget(ctx context.Context, planID uuid.UUID, targetValue float64) (*domain.Plan, error)
	DeletePlan(ctx context.Context, planID uuid.UUID) error
	SendDailyReport(ctx context.Context, date string) error
	SendAlerts(ctx context.Context) error
}

// Compile-time проверка.
var _ ServiceInterface = (*ReportService)(nil)
