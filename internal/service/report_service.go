package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/b24-analytics-service/internal/alerts"
	"github.com/avoronov/b24-analytics-service/internal/analytics"
	"github.com/avoronov/b24-analytics-service/internal/domain"
	"github.com/avoronov/b24-analytics-service/internal/repository"
	"github.com/avoronov/b24-analytics-service/internal/workhours"
)

// ReportService оркестрирует цикл отчёта: выгрузка из CRM ->
// агрегация -> проверка алертов -> отдача наружу. Сам ничего не хранит.
type ReportService struct {
	source     DataSource
	plans      repository.PlanRepository
	notifier   Notifier
	aggregator *analytics.Aggregator
	engine     *alerts.Engine
	validator  *domain.Validator
	now        func() time.Time
}

func NewReportService(source DataSource, plans repository.PlanRepository, notifier Notifier) *ReportService {
	return &ReportService{
		source:     source,
		plans:      plans,
		notifier:   notifier,
		aggregator: analytics.NewAggregator(workhours.New()),
		engine:     alerts.NewEngine(alerts.DefaultThresholds()),
		validator:  domain.NewValidator(),
		now:        time.Now,
	}
}

// Выгруженные коллекции одного периода.
type periodData struct {
	leads    []domain.LeadRecord
	deals    []domain.DealRecord
	staff    []domain.StaffRecord
	statuses []domain.StatusRecord
}

func (s *ReportService) load(ctx context.Context, startDate, endDate string) (*periodData, error) {
	leads, err := s.source.FetchLeads(ctx, startDate, endDate)
	if err != nil {
		slog.Error("Failed to fetch leads", "start_date", startDate, "end_date", endDate, "error", err)
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	deals, err := s.source.FetchDeals(ctx, startDate, endDate)
	if err != nil {
		slog.Error("Failed to fetch deals", "start_date", startDate, "end_date", endDate, "error", err)
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	staff, err := s.source.FetchStaff(ctx)
	if err != nil {
		slog.Error("Failed to fetch staff", "error", err)
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}

	statuses, err := s.source.FetchStatuses(ctx)
	if err != nil {
		slog.Error("Failed to fetch statuses", "error", err)
		return nil, fmt.Errorf("failed to fetch statuses: %w", err)
	}

	return &periodData{leads: leads, deals: deals, staff: staff, statuses: statuses}, nil
}

// ========================================
// Report Methods
// ========================================

// DailyReport отчёт за день с алертами против предыдущего дня.
func (s *ReportService) DailyReport(ctx context.Context, date string) (*domain.DailyReport, error) {
	day, err := s.validator.ValidateDate(date, "date")
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	prevDate := day.AddDate(0, 0, -1).Format(domain.DateLayout)

	data, err := s.load(ctx, date, date)
	if err != nil {
		return nil, err
	}

	metrics := s.aggregator.BuildLeadsSnapshot(data.leads, data.deals, data.staff)
	distribution := s.aggregator.BuildDistribution(data.leads, data.staff, data.statuses)
	sales := s.aggregator.BuildSalesSnapshot(data.deals, data.staff)

	prevData, err := s.load(ctx, prevDate, prevDate)
	if err != nil {
		return nil, err
	}
	prevMetrics := s.aggregator.BuildLeadsSnapshot(prevData.leads, prevData.deals, prevData.staff)

	facts := s.planFacts(ctx, date, metrics, sales)
	alertList := s.engine.Evaluate(metrics, sales, &prevMetrics, facts)

	slog.Info("Daily report built",
		"date", date,
		"total_leads", metrics.TotalLeads,
		"total_contracts", sales.TotalContracts,
		"alerts", len(alertList),
	)

	return &domain.DailyReport{
		Date:   date,
		Period: domain.PeriodTypeDaily,
		Leads:  domain.LeadsReport{Metrics: metrics, Distribution: distribution},
		Sales:  sales,
		Alerts: alertList,
	}, nil
}

// PeriodReport отчёт за произвольный диапазон (weekly/monthly/custom).
func (s *ReportService) PeriodReport(ctx context.Context, startDate, endDate, period string) (*domain.PeriodReport, error) {
	if err := s.validator.ValidateDateRange(startDate, endDate); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	data, err := s.load(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	report := &domain.PeriodReport{
		StartDate: startDate,
		EndDate:   endDate,
		Period:    period,
		Leads: domain.LeadsReport{
			Metrics:      s.aggregator.BuildLeadsSnapshot(data.leads, data.deals, data.staff),
			Distribution: s.aggregator.BuildDistribution(data.leads, data.staff, data.statuses),
		},
		Sales: s.aggregator.BuildSalesSnapshot(data.deals, data.staff),
	}

	slog.Info("Period report built", "start_date", startDate, "end_date", endDate, "period", period)
	return report, nil
}

// ========================================
// Metric Methods
// ========================================

func (s *ReportService) LeadsMetrics(ctx context.Context, date, managerID string) (*domain.LeadsMetricsView, error) {
	if _, err := s.validator.ValidateDate(date, "date"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	data, err := s.load(ctx, date, date)
	if err != nil {
		return nil, err
	}

	leads := filterLeadsByManager(data.leads, managerID)
	distribution := s.aggregator.BuildDistribution(leads, data.staff, data.statuses)

	return &domain.LeadsMetricsView{
		Date:       date,
		TotalLeads: len(leads),
		BySource:   distribution.BySource,
		ByManager:  distribution.ByManager,
		ByStatus:   distribution.ByStatus,
	}, nil
}

func (s *ReportService) SalesMetrics(ctx context.Context, date, managerID string) (*domain.SalesMetricsView, error) {
	if _, err := s.validator.ValidateDate(date, "date"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	data, err := s.load(ctx, date, date)
	if err != nil {
		return nil, err
	}

	deals := filterDealsByManager(data.deals, managerID)
	snapshot := s.aggregator.BuildSalesSnapshot(deals, data.staff)

	view := &domain.SalesMetricsView{
		Date:           date,
		TotalAmount:    snapshot.TotalAmount,
		TotalContracts: snapshot.TotalContracts,
		BySource:       map[string]float64{},
		ByManager:      map[string]float64{},
	}
	for _, g := range snapshot.BySource {
		view.BySource[g.Key] = g.AmountSum
	}
	for _, g := range snapshot.ByManager {
		view.ByManager[g.Key] = g.AmountSum
	}
	return view, nil
}

func (s *ReportService) ConversionMetrics(ctx context.Context, startDate, endDate string) (*domain.ConversionReport, error) {
	if err := s.validator.ValidateDateRange(startDate, endDate); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	data, err := s.load(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	metrics := s.aggregator.BuildLeadsSnapshot(data.leads, data.deals, data.staff)

	totalCR := 0.0
	if metrics.TotalLeads > 0 {
		totalCR = round2(float64(metrics.TotalDeals) / float64(metrics.TotalLeads) * 100)
	}

	return &domain.ConversionReport{
		StartDate:  startDate,
		EndDate:    endDate,
		TotalLeads: metrics.TotalLeads,
		TotalDeals: metrics.TotalDeals,
		TotalCR:    totalCR,
		ByManager:  metrics.ByManager,
	}, nil
}

func (s *ReportService) ManagerDetail(ctx context.Context, managerID, startDate, endDate string) (*domain.ManagerDetail, error) {
	if managerID == "" {
		return nil, errors.New("manager_id cannot be empty")
	}
	if err := s.validator.ValidateDateRange(startDate, endDate); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	data, err := s.load(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	leads := filterLeadsByManager(data.leads, managerID)
	deals := filterDealsByManager(data.deals, managerID)

	managerName := "Unknown"
	for _, st := range data.staff {
		if st.ID == managerID {
			managerName = st.FullName
			break
		}
	}

	detail := &domain.ManagerDetail{
		ManagerID:   managerID,
		ManagerName: managerName,
		StartDate:   startDate,
		EndDate:     endDate,
		TotalLeads:  len(leads),
		TotalDeals:  len(deals),
		ByStatus:    map[string]int{},
		BySource:    map[string]int{},
	}
	if detail.TotalLeads > 0 {
		detail.CRPercent = round2(float64(detail.TotalDeals) / float64(detail.TotalLeads) * 100)
	}

	var reactionSum time.Duration
	reactionCount := 0
	for _, lead := range leads {
		if d, ok := s.aggregator.ReactionTime(lead); ok {
			reactionSum += d
			reactionCount++
		}
	}
	if reactionCount > 0 {
		avg := (reactionSum / time.Duration(reactionCount)).String()
		detail.AvgReactionTime = &avg
	}

	statusNames := make(map[string]string, len(data.statuses))
	for _, st := range data.statuses {
		statusNames[st.StatusID] = st.DisplayName
	}
	for _, lead := range leads {
		if name, ok := statusNames[lead.StatusID]; ok {
			detail.ByStatus[name]++
		}
		if lead.Source != "" {
			detail.BySource[lead.Source]++
		}
	}

	return detail, nil
}

// ========================================
// Alert Methods
// ========================================

// CurrentAlerts алерты за вчера по сравнению с позавчера.
func (s *ReportService) CurrentAlerts(ctx context.Context) ([]domain.Alert, error) {
	yesterday := s.now().AddDate(0, 0, -1).Format(domain.DateLayout)

	report, err := s.DailyReport(ctx, yesterday)
	if err != nil {
		return nil, err
	}
	return report.Alerts, nil
}

// planFacts превращает планы, действующие на дату отчёта, в пары
// план/факт для движка алертов. Факт берётся из уже построенных
// снапшотов; менеджер сопоставляется по id.
func (s *ReportService) planFacts(ctx context.Context, date string, metrics domain.MetricsSnapshot, sales domain.SalesSnapshot) []domain.PlanFact {
	stored, err := s.plans.ListPlans(ctx)
	if err != nil {
		slog.Error("Failed to list plans for alerts", "error", err)
		return nil
	}

	metricByID := make(map[string]domain.ManagerMetric, len(metrics.ByManager))
	for _, m := range metrics.ByManager {
		metricByID[m.ManagerID] = m
	}
	salesByID := make(map[string]domain.SalesGroup, len(sales.ByManager))
	for _, g := range sales.ByManager {
		salesByID[g.ManagerID] = g
	}

	var facts []domain.PlanFact
	for _, plan := range stored {
		if date < plan.StartDate || date > plan.EndDate {
			continue
		}

		// У менеджера без лидов за день метрики нет, но продажи быть
		// могут, поэтому имя и факт ищутся по id в обоих снапшотах.
		metric := metricByID[plan.ManagerID]
		label := metric.ManagerName
		if label == "" {
			label = salesByID[plan.ManagerID].Key
		}
		if label == "" {
			label = plan.ManagerID
		}

		var actual float64
		switch plan.MetricType {
		case domain.MetricTypeLeads:
			actual = float64(metric.LeadCount)
		case domain.MetricTypeSales:
			actual = salesByID[plan.ManagerID].AmountSum
		case domain.MetricTypeConversion:
			actual = metric.ConversionRatePercent
		default:
			continue
		}

		facts = append(facts, domain.PlanFact{
			MetricName:   fmt.Sprintf("%s (%s)", plan.MetricType, label),
			PlannedValue: plan.TargetValue,
			ActualValue:  actual,
		})
	}
	return facts
}

// ========================================
// Plan Methods
// ========================================

func (s *ReportService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		slog.Error("Failed to list plans", "error", err)
		return nil, err
	}
	return plans, nil
}

func (s *ReportService) CreatePlan(ctx context.Context, plan *domain.Plan) (*domain.Plan, error) {
	if err := s.validator.ValidatePlan(plan); err != nil {
		slog.Warn("Plan validation failed", "manager_id", plan.ManagerID, "error", err)
		return nil, fmt.Errorf("validation error: %w", err)
	}

	plan.ID = uuid.New()
	plan.CreatedAt = s.now()

	if err := s.plans.CreatePlan(ctx, plan); err != nil {
		slog.Error("Failed to create plan", "manager_id", plan.ManagerID, "error", err)
		return nil, err
	}

	slog.Info("Plan created", "plan_id", plan.ID, "manager_id", plan.ManagerID, "metric_type", plan.MetricType)
	return plan, nil
}

func (s *ReportService) UpdatePlanTarget(ctx context.Context, planID uuid.UUID, targetValue float64) (*domain.Plan, error) {
	if planID == uuid.Nil {
		return nil, errors.New("plan_id cannot be nil UUID")
	}
	if targetValue <= 0 {
		return nil, errors.New("target_value must be positive")
	}

	plan, err := s.plans.UpdatePlanTarget(ctx, planID, targetValue)
	if err != nil {
		slog.Error("Failed to update plan", "plan_id", planID, "error", err)
		return nil, err
	}

	slog.Info("Plan updated", "plan_id", planID, "target_value", targetValue)
	return plan, nil
}

func (s *ReportService) DeletePlan(ctx context.Context, planID uuid.UUID) error {
	if planID == uuid.Nil {
		return errors.New("plan_id cannot be nil UUID")
	}

	if err := s.plans.DeletePlan(ctx, planID); err != nil {
		slog.Error("Failed to delete plan", "plan_id", planID, "error", err)
		return err
	}

	slog.Info("Plan deleted", "plan_id", planID)
	return nil
}

// ========================================
// Notification Methods
// ========================================

func (s *ReportService) SendDailyReport(ctx context.Context, date string) error {
	report, err := s.DailyReport(ctx, date)
	if err != nil {
		return err
	}

	if err := s.notifier.SendDailyReport(ctx, report); err != nil {
		slog.Error("Failed to send daily report", "date", date, "error", err)
		return fmt.Errorf("failed to send daily report: %w", err)
	}

	slog.Info("Daily report sent", "date", date)
	return nil
}

func (s *ReportService) SendAlerts(ctx context.Context) error {
	alertList, err := s.CurrentAlerts(ctx)
	if err != nil {
		return err
	}
	if len(alertList) == 0 {
		slog.Info("No alerts to send")
		return nil
	}

	if err := s.notifier.SendAlerts(ctx, alertList); err != nil {
		slog.Error("Failed to send alerts", "count", len(alertList), "error", err)
		return fmt.Errorf("failed to send alerts: %w", err)
	}

	slog.Info("Alerts sent", "count", len(alertList))
	return nil
}

// ========================================
// Helpers
// ========================================

func filterLeadsByManager(leads []domain.LeadRecord, managerID string) []domain.LeadRecord {
	if managerID == "" {
		return leads
	}
	var out []domain.LeadRecord
	for _, lead := range leads {
		if lead.ManagerID == managerID {
			out = append(out, lead)
		}
	}
	return out
}

func filterDealsByManager(deals []domain.DealRecord, managerID string) []domain.DealRecord {
	if managerID == "" {
		return deals
	}
	var out []domain.DealRecord
	for _, deal := range deals {
		if deal.ManagerID == managerID {
			out = append(out, deal)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
