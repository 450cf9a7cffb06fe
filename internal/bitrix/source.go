package bitrix

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

// Пользовательские поля портала: дата взятия лида в работу и тип контракта.
const (
	fieldTakenInWork  = "UF_CRM_1745414446"
	fieldContractType = "UF_CRM_1695636781"
)

// Source реализует контракт источника данных CRM: выгрузка лидов, сделок,
// сотрудников и статусов за период. Даты — включительные границы
// календарных дней в зоне портала.
type Source struct {
	leads    *Client
	users    *Client
	statuses *Client
	deals    *Client
}

func NewSource(leads, users, statuses, deals *Client) *Source {
	return &Source{leads: leads, users: users, statuses: statuses, deals: deals}
}

func (s *Source) FetchLeads(ctx context.Context, startDate, endDate string) ([]domain.LeadRecord, error) {
	filter := map[string]any{
		">=DATE_CREATE": startDate + "T00:00:01",
		"<=DATE_CREATE": endDate + "T23:59:59",
	}
	sel := []string{"ID", "STATUS_ID", "ASSIGNED_BY_ID", "DATE_CREATE", "UTM_SOURCE", fieldTakenInWork}

	raw, err := s.leads.GetList(ctx, "crm.lead.list", filter, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	leads := make([]domain.LeadRecord, 0, len(raw))
	for _, entity := range raw {
		createdAt, ok := parseTime(asString(entity["DATE_CREATE"]))
		if !ok {
			continue
		}
		lead := domain.LeadRecord{
			ID:        asString(entity["ID"]),
			CreatedAt: createdAt,
			ManagerID: asString(entity["ASSIGNED_BY_ID"]),
			StatusID:  asString(entity["STATUS_ID"]),
			Source:    asString(entity["UTM_SOURCE"]),
		}
		if taken, ok := parseTime(asString(entity[fieldTakenInWork])); ok {
			lead.TakenInWorkAt = &taken
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// FetchDeals отдаёт только выигранные сделки основной воронки,
// закрытые в диапазоне дат.
func (s *Source) FetchDeals(ctx context.Context, startDate, endDate string) ([]domain.DealRecord, error) {
	filter := map[string]any{
		"CATEGORY_ID": 0,
		">=CLOSEDATE": startDate + "T00:00:01",
		"<=CLOSEDATE": endDate + "T23:59:59",
		"STAGE_ID":    "WON",
	}
	sel := []string{"ID", "OPPORTUNITY", "ASSIGNED_BY_ID", "CLOSEDATE", "UTM_SOURCE", fieldContractType}

	raw, err := s.deals.GetList(ctx, "crm.deal.list", filter, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	deals := make([]domain.DealRecord, 0, len(raw))
	for _, entity := range raw {
		closedAt, _ := parseTime(asString(entity["CLOSEDATE"]))
		deals = append(deals, domain.DealRecord{
			ID:               asString(entity["ID"]),
			Amount:           asFloat(entity["OPPORTUNITY"]),
			ManagerID:        asString(entity["ASSIGNED_BY_ID"]),
			ClosedAt:         closedAt,
			Source:           asString(entity["UTM_SOURCE"]),
			ContractTypeCode: asString(entity[fieldContractType]),
		})
	}
	return deals, nil
}

// FetchStaff собирает полное имя из частей и обрезает лишние пробелы.
func (s *Source) FetchStaff(ctx context.Context) ([]domain.StaffRecord, error) {
	raw, err := s.users.GetList(ctx, "user.get", nil, []string{"ID", "NAME", "LAST_NAME", "SECOND_NAME"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}

	staff := make([]domain.StaffRecord, 0, len(raw))
	for _, entity := range raw {
		staff = append(staff, domain.StaffRecord{
			ID:       asString(entity["ID"]),
			FullName: fullName(asString(entity["NAME"]), asString(entity["LAST_NAME"]), asString(entity["SECOND_NAME"])),
		})
	}
	return staff, nil
}

func (s *Source) FetchStatuses(ctx context.Context) ([]domain.StatusRecord, error) {
	raw, err := s.statuses.GetList(ctx, "crm.status.list", nil, []string{"ID", "NAME"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statuses: %w", err)
	}

	statuses := make([]domain.StatusRecord, 0, len(raw))
	for _, entity := range raw {
		statuses = append(statuses, domain.StatusRecord{
			StatusID:    asString(entity["STATUS_ID"]),
			DisplayName: asString(entity["NAME"]),
		})
	}
	return statuses, nil
}

func fullName(parts ...string) string {
	var fields []string
	for _, p := range parts {
		fields = append(fields, strings.Fields(p)...)
	}
	return strings.Join(fields, " ")
}

// Битрикс отдаёт даты в ISO8601 со смещением зоны портала.
func parseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f
		}
	}
	return 0
}
