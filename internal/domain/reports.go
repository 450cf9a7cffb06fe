package domain

// LeadsReport метрики и разбивки по лидам за один период.
type LeadsReport struct {
	Metrics      MetricsSnapshot    `json:"metrics"`
	Distribution DistributionReport `json:"distribution"`
}

// DailyReport сводный отчёт за день: лиды, продажи и алерты
// по сравнению с предыдущим днём.
type DailyReport struct {
	Date   string        `json:"date"`
	Period string        `json:"period"`
	Leads  LeadsReport   `json:"leads"`
	Sales  SalesSnapshot `json:"sales"`
	Alerts []Alert       `json:"alerts"`
}

// PeriodReport отчёт за произвольный диапазон дат (weekly/monthly/custom).
type PeriodReport struct {
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Period    string        `json:"period"`
	Leads     LeadsReport   `json:"leads"`
	Sales     SalesSnapshot `json:"sales"`
}

// ConversionReport конверсия за период по отделу и менеджерам.
type ConversionReport struct {
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	TotalLeads int             `json:"total_leads"`
	TotalDeals int             `json:"total_deals"`
	TotalCR    float64         `json:"total_cr"`
	ByManager  []ManagerMetric `json:"by_manager"`
}

// LeadsMetricsView дневная разбивка лидов для drill-down.
type LeadsMetricsView struct {
	Date       string         `json:"date"`
	TotalLeads int            `json:"total_leads"`
	BySource   map[string]int `json:"by_source"`
	ByManager  map[string]int `json:"by_manager"`
	ByStatus   map[string]int `json:"by_status"`
}

// SalesMetricsView дневная разбивка продаж для drill-down.
type SalesMetricsView struct {
	Date           string             `json:"date"`
	TotalAmount    float64            `json:"total_amount"`
	TotalContracts int                `json:"total_contracts"`
	BySource       map[string]float64 `json:"by_source"`
	ByManager      map[string]float64 `json:"by_manager"`
}

// ManagerDetail детализация по одному менеджеру за период.
type ManagerDetail struct {
	ManagerID       string         `json:"manager_id"`
	ManagerName     string         `json:"manager_name"`
	StartDate       string         `json:"start_date"`
	EndDate         string         `json:"end_date"`
	TotalLeads      int            `json:"total_leads"`
	TotalDeals      int            `json:"total_deals"`
	CRPercent       float64        `json:"cr_percent"`
	AvgReactionTime *string        `json:"avg_reaction_time,omitempty"`
	ByStatus        map[string]int `json:"by_status"`
	BySource        map[string]int `json:"by_source"`
}
