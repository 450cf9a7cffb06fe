// Package alerts сравнивает метрики текущего периода с порогами и с
// прошлым периодом и формирует список алертов для доставки.
package alerts

import (
	"fmt"
	"time"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

// Thresholds пороги срабатывания проверок. Передаются в движок при
// создании, чтобы их можно было переопределять и тестировать, не трогая
// саму логику проверок.
type Thresholds struct {
	// MinConversion: CR% ниже этого значения — критичный алерт.
	MinConversion float64
	// ConversionDropPct: падение CR% к прошлому периоду более чем на
	// этот процент — предупреждение.
	ConversionDropPct float64
	// LowLeadsPct: изменение числа лидов к прошлому периоду ниже этого
	// (отрицательного) процента — предупреждение по отделу.
	LowLeadsPct float64
	// SlowReactionSeconds: медианная реакция менеджера дольше — предупреждение.
	SlowReactionSeconds float64
	// PlanMissPct: отклонение факта от плана ниже этого процента — алерт.
	PlanMissPct float64
	// PlanCriticalPct: отклонение на уровне или ниже — critical вместо warning.
	PlanCriticalPct float64
}

// DefaultThresholds пороги, принятые в отделе продаж.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConversion:       10.0,
		ConversionDropPct:   15,
		LowLeadsPct:         -20,
		SlowReactionSeconds: 1200,
		PlanMissPct:         -10,
		PlanCriticalPct:     -30,
	}
}

// Engine не хранит состояния между вызовами и не изменяет входные данные.
type Engine struct {
	thresholds Thresholds
	now        func() time.Time
}

func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds, now: time.Now}
}

// Evaluate прогоняет все проверки в фиксированном порядке: конверсия,
// время реакции, объём лидов, продажи, планы. Порядок списка алертов
// определяется порядком проверок, форматирование ниже по течению его
// сохраняет. Дедупликации нет: каждый менеджер, задевший правило, даёт
// отдельный алерт.
func (e *Engine) Evaluate(current domain.MetricsSnapshot, sales domain.SalesSnapshot, previous *domain.MetricsSnapshot, plans []domain.PlanFact) []domain.Alert {
	var out []domain.Alert

	out = append(out, e.checkConversion(current, previous)...)
	out = append(out, e.checkReactionTime(current)...)
	out = append(out, e.checkLeadsVolume(current, previous)...)
	out = append(out, e.checkSales(sales)...)
	out = append(out, e.checkPlans(plans)...)

	return out
}

// Сопоставление менеджера между периодами идёт по ManagerID: одинаковые
// снапшоты строятся независимо, и имя — ненадёжный ключ.
func (e *Engine) checkConversion(current domain.MetricsSnapshot, previous *domain.MetricsSnapshot) []domain.Alert {
	var out []domain.Alert

	prevByID := map[string]domain.ManagerMetric{}
	if previous != nil {
		for _, m := range previous.ByManager {
			prevByID[m.ManagerID] = m
		}
	}

	for _, m := range current.ByManager {
		if m.ConversionRatePercent < e.thresholds.MinConversion {
			out = append(out, domain.Alert{
				Type:     domain.AlertConversionDrop,
				Severity: domain.SeverityCritical,
				Title:    "Критично низька конверсія",
				Description: fmt.Sprintf("%s: CR%% = %.2f%% (поріг: %g%%)",
					m.ManagerName, m.ConversionRatePercent, e.thresholds.MinConversion),
				Value:       f64(m.ConversionRatePercent),
				Threshold:   f64(e.thresholds.MinConversion),
				ManagerName: m.ManagerName,
				Timestamp:   e.now(),
			})
		}

		prev, ok := prevByID[m.ManagerID]
		if !ok || prev.ConversionRatePercent <= 0 {
			continue
		}
		dropPct := (m.ConversionRatePercent - prev.ConversionRatePercent) / prev.ConversionRatePercent * 100
		if dropPct < -e.thresholds.ConversionDropPct {
			out = append(out, domain.Alert{
				Type:     domain.AlertConversionDrop,
				Severity: domain.SeverityWarning,
				Title:    "Падіння конверсії",
				Description: fmt.Sprintf("%s: CR%% впав на %.1f%% (було %.2f%%, стало %.2f%%)",
					m.ManagerName, -dropPct, prev.ConversionRatePercent, m.ConversionRatePercent),
				Value:       f64(dropPct),
				Threshold:   f64(-e.thresholds.ConversionDropPct),
				ManagerName: m.ManagerName,
				Timestamp:   e.now(),
			})
		}
	}

	return out
}

func (e *Engine) checkReactionTime(current domain.MetricsSnapshot) []domain.Alert {
	var out []domain.Alert

	for _, m := range current.ByManager {
		if m.MedianReactionTime == nil {
			continue
		}
		secs := m.MedianReactionTime.Seconds()
		if secs <= e.thresholds.SlowReactionSeconds {
			continue
		}

		hours := int(secs) / 3600
		minutes := (int(secs) % 3600) / 60
		out = append(out, domain.Alert{
			Type:     domain.AlertSlowReaction,
			Severity: domain.SeverityWarning,
			Title:    "Повільна реакція",
			Description: fmt.Sprintf("%s: медіанний час реакції %02d:%02d (поріг: 20 хв)",
				m.ManagerName, hours, minutes),
			Value:       f64(secs),
			Threshold:   f64(e.thresholds.SlowReactionSeconds),
			ManagerName: m.ManagerName,
			Timestamp:   e.now(),
		})
	}

	return out
}

func (e *Engine) checkLeadsVolume(current domain.MetricsSnapshot, previous *domain.MetricsSnapshot) []domain.Alert {
	if previous == nil || previous.TotalLeads <= 0 {
		return nil
	}

	changePct := float64(current.TotalLeads-previous.TotalLeads) / float64(previous.TotalLeads) * 100
	if changePct >= e.thresholds.LowLeadsPct {
		return nil
	}

	return []domain.Alert{{
		Type:     domain.AlertLowLeads,
		Severity: domain.SeverityWarning,
		Title:    "Зниження кількості лідів",
		Description: fmt.Sprintf("Лідів на %.1f%% менше ніж вчора (було %d, стало %d)",
			-changePct, previous.TotalLeads, current.TotalLeads),
		Value:     f64(changePct),
		Threshold: f64(e.thresholds.LowLeadsPct),
		Timestamp: e.now(),
	}}
}

// Сумма продаж на проверку не влияет: ноль контрактов — всегда алерт.
func (e *Engine) checkSales(sales domain.SalesSnapshot) []domain.Alert {
	if sales.TotalContracts != 0 {
		return nil
	}

	return []domain.Alert{{
		Type:        domain.AlertNoSales,
		Severity:    domain.SeverityCritical,
		Title:       "Немає продажів",
		Description: "За вчорашній день не було жодної продажі!",
		Value:       f64(0),
		Threshold:   f64(1),
		Timestamp:   e.now(),
	}}
}

func (e *Engine) checkPlans(plans []domain.PlanFact) []domain.Alert {
	var out []domain.Alert

	for _, plan := range plans {
		if plan.PlannedValue <= 0 {
			continue
		}

		deviationPct := (plan.ActualValue - plan.PlannedValue) / plan.PlannedValue * 100
		if deviationPct >= e.thresholds.PlanMissPct {
			continue
		}

		severity := domain.SeverityWarning
		if deviationPct <= e.thresholds.PlanCriticalPct {
			severity = domain.SeverityCritical
		}

		out = append(out, domain.Alert{
			Type:     domain.AlertPlanMiss,
			Severity: severity,
			Title:    fmt.Sprintf("План не виконано: %s", plan.MetricName),
			Description: fmt.Sprintf("План: %.0f, Факт: %.0f (%+.1f%%)",
				plan.PlannedValue, plan.ActualValue, deviationPct),
			Value:     f64(deviationPct),
			Threshold: f64(e.thresholds.PlanMissPct),
			Timestamp: e.now(),
		})
	}

	return out
}

func f64(v float64) *float64 {
	return &v
}
