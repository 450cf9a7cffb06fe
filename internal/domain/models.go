package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadRecord лид из CRM за период отчёта.
type LeadRecord struct {
	ID            string     `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	TakenInWorkAt *time.Time `json:"taken_in_work_at,omitempty"`
	ManagerID     string     `json:"manager_id"`
	StatusID      string     `json:"status_id"`
	Source        string     `json:"source,omitempty"`
}

// DealRecord выигранная сделка из CRM за период отчёта.
type DealRecord struct {
	ID               string    `json:"id"`
	Amount           float64   `json:"amount"`
	ManagerID        string    `json:"manager_id"`
	ClosedAt         time.Time `json:"closed_at"`
	Source           string    `json:"source,omitempty"`
	ContractTypeCode string    `json:"contract_type_code,omitempty"`
}

// StaffRecord сотрудник; FullName собирается из частей имени при загрузке.
type StaffRecord struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// StatusRecord справочник статусов лидов.
type StatusRecord struct {
	StatusID    string `json:"status_id"`
	DisplayName string `json:"display_name"`
}

// ManagerMetric метрики одного менеджера за период.
//
// ConversionRatePercent — отношение двух независимо отфильтрованных
// количеств (лиды по дате создания, сделки по дате закрытия), а не строгая
// воронка "эти лиды стали этими сделками". Это осознанный выбор модели.
type ManagerMetric struct {
	ManagerID             string         `json:"manager_id"`
	ManagerName           string         `json:"manager_name"`
	LeadCount             int            `json:"lead_count"`
	DealCount             int            `json:"deal_count"`
	ConversionRatePercent float64        `json:"cr_percent"`
	MedianReactionTime    *time.Duration `json:"median_reaction_time,omitempty"`
}

// MetricsSnapshot агрегированные метрики по лидам за период.
//
// TotalLeads считает все лиды периода; AttributableLeads — только лиды,
// чей менеджер найден в справочнике сотрудников. Разница — лиды,
// выпавшие из разбивки ByManager из-за inner join.
type MetricsSnapshot struct {
	ByManager                    []ManagerMetric `json:"by_manager"`
	DepartmentMedianReactionTime *time.Duration  `json:"department_median,omitempty"`
	TotalLeads                   int             `json:"total_leads"`
	AttributableLeads            int             `json:"attributable_leads"`
	TotalDeals                   int             `json:"total_deals"`
}

// DistributionReport разбивки лидов по источнику, менеджеру и статусу.
// Heatmap: менеджер x статус, отсутствующие ячейки равны нулю.
type DistributionReport struct {
	BySource  map[string]int            `json:"by_source"`
	ByManager map[string]int            `json:"by_manager"`
	ByStatus  map[string]int            `json:"by_status"`
	Heatmap   map[string]map[string]int `json:"heatmap"`
}

// SalesGroup сумма и количество контрактов по одному ключу группировки.
// ManagerID заполнен только в разбивке по менеджерам: имя — ключ
// отображения, id — ключ сопоставления.
type SalesGroup struct {
	Key           string  `json:"key"`
	ManagerID     string  `json:"manager_id,omitempty"`
	AmountSum     float64 `json:"amount_sum"`
	ContractCount int     `json:"contract_count"`
}

// SalesSnapshot отчёт по продажам за период.
type SalesSnapshot struct {
	TotalAmount    float64      `json:"total_amount"`
	TotalContracts int          `json:"total_contracts"`
	ByManager      []SalesGroup `json:"by_manager"`
	BySource       []SalesGroup `json:"by_source"`
	ByContractType []SalesGroup `json:"by_contract_type"`
}

// Plan целевое значение метрики для менеджера на период.
type Plan struct {
	ID          uuid.UUID  `db:"plan_id" json:"id"`
	ManagerID   string     `db:"manager_id" json:"manager_id"`
	MetricType  string     `db:"metric_type" json:"metric_type"`
	PeriodType  string     `db:"period_type" json:"period_type"`
	TargetValue float64    `db:"target_value" json:"target_value"`
	StartDate   string     `db:"start_date" json:"start_date"`
	EndDate     string     `db:"end_date" json:"end_date"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// PlanFact пара план/факт, подаваемая в движок алертов.
type PlanFact struct {
	MetricName   string  `json:"metric_name"`
	PlannedValue float64 `json:"planned_value"`
	ActualValue  float64 `json:"actual_value"`
}

const (
	MetricTypeLeads      = "leads"
	MetricTypeSales      = "sales"
	MetricTypeConversion = "conversion"

	PeriodTypeDaily   = "daily"
	PeriodTypeWeekly  = "weekly"
	PeriodTypeMonthly = "monthly"
)
