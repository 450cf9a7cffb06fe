package domain

import "time"

// AlertSeverity важность алерта. Словарь фиксирован: слой доставки
// отображает его в глифы (critical 🔴, warning 🟡, info 🔵) и не должен
// расходиться с этими значениями.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// AlertType тип проверки, породившей алерт.
type AlertType string

const (
	AlertConversionDrop AlertType = "conversion_drop"
	AlertLowLeads       AlertType = "low_leads"
	AlertSlowReaction   AlertType = "slow_reaction"
	AlertNoSales        AlertType = "no_sales"
	AlertPlanMiss       AlertType = "plan_miss"
)

// Alert результат сработавшей проверки.
type Alert struct {
	Type        AlertType     `json:"type"`
	Severity    AlertSeverity `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Value       *float64      `json:"value"`
	Threshold   *float64      `json:"threshold"`
	ManagerName string        `json:"manager_name,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}
