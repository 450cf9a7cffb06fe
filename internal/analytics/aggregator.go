// Package analytics строит снапшоты метрик из нормализованных коллекций
// CRM-сущностей. Все операции чистые: никакого состояния между вызовами,
// входные коллекции не изменяются.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/avoronov/b24-analytics-service/internal/domain"
	"github.com/avoronov/b24-analytics-service/internal/workhours"
)

// Границы обрезки выбросов для медианы по отделу: убираем хвосты ниже
// 1-го и выше 95-го перцентиля времени реакции.
const (
	trimLowPct  = 0.01
	trimHighPct = 0.95
)

// Подмена кодов типа контракта на человекочитаемые названия.
// Неизвестные коды проходят без изменений.
var contractTypeLabels = map[string]string{
	"1206": "Банкрутство",
	"1207": "Досудове",
}

type Aggregator struct {
	calc workhours.Calculator
}

func NewAggregator(calc workhours.Calculator) *Aggregator {
	return &Aggregator{calc: calc}
}

// ReactionTime рабочее время от создания лида до взятия в работу.
// false, если лид ещё не взят в работу.
func (a *Aggregator) ReactionTime(lead domain.LeadRecord) (time.Duration, bool) {
	if lead.TakenInWorkAt == nil {
		return 0, false
	}
	return a.calc.Elapsed(lead.CreatedAt, *lead.TakenInWorkAt)
}

// BuildLeadsSnapshot считает метрики по менеджерам и отделу.
//
// Лиды с менеджером, отсутствующим в справочнике, не попадают в ByManager
// (inner join), но учитываются в TotalLeads. Медиана реакции по менеджеру
// считается без обрезки выбросов, по отделу — по обрезанной выборке:
// единичный лид, пролежавший сутки, не должен утащить за собой сигнал
// всего отдела, а в маленькой выборке одного менеджера обрезка выкинула
// бы значимые наблюдения.
func (a *Aggregator) BuildLeadsSnapshot(leads []domain.LeadRecord, deals []domain.DealRecord, staff []domain.StaffRecord) domain.MetricsSnapshot {
	snapshot := domain.MetricsSnapshot{ByManager: []domain.ManagerMetric{}}
	if len(leads) == 0 {
		return snapshot
	}

	staffNames := make(map[string]string, len(staff))
	for _, s := range staff {
		staffNames[s.ID] = s.FullName
	}

	leadCounts := make(map[string]int)
	reactionByManager := make(map[string][]float64)
	var allReactionSeconds []float64
	attributable := 0

	for _, lead := range leads {
		secs, ok := a.reactionSeconds(lead)
		if ok {
			allReactionSeconds = append(allReactionSeconds, secs)
		}

		if _, known := staffNames[lead.ManagerID]; !known {
			continue
		}
		attributable++
		leadCounts[lead.ManagerID]++
		if ok {
			reactionByManager[lead.ManagerID] = append(reactionByManager[lead.ManagerID], secs)
		}
	}

	// Сделки неизвестных менеджеров в ByManager не попадут, считать их
	// незачем: общий итог берётся из len(deals).
	dealCounts := make(map[string]int)
	for _, deal := range deals {
		if _, known := staffNames[deal.ManagerID]; !known {
			continue
		}
		dealCounts[deal.ManagerID]++
	}

	managerIDs := make([]string, 0, len(leadCounts))
	for id := range leadCounts {
		managerIDs = append(managerIDs, id)
	}
	sort.Strings(managerIDs)

	for _, id := range managerIDs {
		metric := domain.ManagerMetric{
			ManagerID:   id,
			ManagerName: staffNames[id],
			LeadCount:   leadCounts[id],
			DealCount:   dealCounts[id],
		}
		if metric.LeadCount > 0 {
			metric.ConversionRatePercent = round2(float64(metric.DealCount) / float64(metric.LeadCount) * 100)
		}
		if secs := reactionByManager[id]; len(secs) > 0 {
			metric.MedianReactionTime = secondsDuration(Median(secs))
		}
		snapshot.ByManager = append(snapshot.ByManager, metric)
	}

	if len(allReactionSeconds) > 0 {
		trimmed := TrimmedPopulation(allReactionSeconds, trimLowPct, trimHighPct)
		if len(trimmed) > 0 {
			snapshot.DepartmentMedianReactionTime = secondsDuration(Median(trimmed))
		}
	}

	snapshot.TotalLeads = len(leads)
	snapshot.AttributableLeads = attributable
	snapshot.TotalDeals = len(deals)
	return snapshot
}

// BuildDistribution строит разбивки по источнику, менеджеру и статусу.
// В эту выборку входят только полностью атрибутированные лиды: и менеджер,
// и статус должны найтись в справочниках.
func (a *Aggregator) BuildDistribution(leads []domain.LeadRecord, staff []domain.StaffRecord, statuses []domain.StatusRecord) domain.DistributionReport {
	report := domain.DistributionReport{
		BySource:  map[string]int{},
		ByManager: map[string]int{},
		ByStatus:  map[string]int{},
		Heatmap:   map[string]map[string]int{},
	}

	staffNames := make(map[string]string, len(staff))
	for _, s := range staff {
		staffNames[s.ID] = s.FullName
	}
	statusNames := make(map[string]string, len(statuses))
	for _, s := range statuses {
		statusNames[s.StatusID] = s.DisplayName
	}

	seenStatuses := map[string]struct{}{}

	for _, lead := range leads {
		managerName, okManager := staffNames[lead.ManagerID]
		statusName, okStatus := statusNames[lead.StatusID]
		if !okManager || !okStatus {
			continue
		}

		if lead.Source != "" {
			report.BySource[lead.Source]++
		}
		report.ByManager[managerName]++
		report.ByStatus[statusName]++

		if report.Heatmap[managerName] == nil {
			report.Heatmap[managerName] = map[string]int{}
		}
		report.Heatmap[managerName][statusName]++
		seenStatuses[statusName] = struct{}{}
	}

	// Недостающие ячейки матрицы менеджер x статус заполняются нулями.
	for _, row := range report.Heatmap {
		for status := range seenStatuses {
			if _, ok := row[status]; !ok {
				row[status] = 0
			}
		}
	}

	return report
}

// BuildSalesSnapshot группирует выигранные сделки по менеджеру, источнику
// и типу контракта. Менеджеры и источники отсортированы по убыванию суммы,
// типы контрактов — по ключу.
func (a *Aggregator) BuildSalesSnapshot(deals []domain.DealRecord, staff []domain.StaffRecord) domain.SalesSnapshot {
	snapshot := domain.SalesSnapshot{
		ByManager:      []domain.SalesGroup{},
		BySource:       []domain.SalesGroup{},
		ByContractType: []domain.SalesGroup{},
	}
	if len(deals) == 0 {
		return snapshot
	}

	staffNames := make(map[string]string, len(staff))
	for _, s := range staff {
		staffNames[s.ID] = s.FullName
	}

	byManager := map[string]*domain.SalesGroup{}
	bySource := map[string]*domain.SalesGroup{}
	byType := map[string]*domain.SalesGroup{}

	for _, deal := range deals {
		managerName, ok := staffNames[deal.ManagerID]
		if !ok {
			continue
		}

		snapshot.TotalAmount += deal.Amount
		snapshot.TotalContracts++

		addToGroup(byManager, managerName, deal.Amount)
		byManager[managerName].ManagerID = deal.ManagerID
		addToGroup(bySource, deal.Source, deal.Amount)
		addToGroup(byType, ContractTypeLabel(deal.ContractTypeCode), deal.Amount)
	}

	snapshot.ByManager = sortedByAmount(byManager)
	snapshot.BySource = sortedByAmount(bySource)
	snapshot.ByContractType = sortedByKey(byType)
	return snapshot
}

// ContractTypeLabel переводит код типа контракта в название.
func ContractTypeLabel(code string) string {
	if label, ok := contractTypeLabels[code]; ok {
		return label
	}
	return code
}

func (a *Aggregator) reactionSeconds(lead domain.LeadRecord) (float64, bool) {
	d, ok := a.ReactionTime(lead)
	if !ok {
		return 0, false
	}
	return d.Seconds(), true
}

func addToGroup(groups map[string]*domain.SalesGroup, key string, amount float64) {
	g, ok := groups[key]
	if !ok {
		g = &domain.SalesGroup{Key: key}
		groups[key] = g
	}
	g.AmountSum += amount
	g.ContractCount++
}

func sortedByAmount(groups map[string]*domain.SalesGroup) []domain.SalesGroup {
	out := collectGroups(groups)
	sort.Slice(out, func(i, j int) bool {
		if out[i].AmountSum != out[j].AmountSum {
			return out[i].AmountSum > out[j].AmountSum
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func sortedByKey(groups map[string]*domain.SalesGroup) []domain.SalesGroup {
	out := collectGroups(groups)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func collectGroups(groups map[string]*domain.SalesGroup) []domain.SalesGroup {
	out := make([]domain.SalesGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	return out
}

func secondsDuration(secs float64) *time.Duration {
	d := time.Duration(secs * float64(time.Second))
	return &d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
