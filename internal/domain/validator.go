package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Валидация одной даты формата YYYY-MM-DD.
func (v *Validator) ValidateDate(date string, fieldName string) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		return time.Time{}, fmt.Errorf("%s cannot be empty", fieldName)
	}

	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a valid YYYY-MM-DD date: %w", fieldName, err)
	}

	return parsed, nil
}

// Валидация диапазона дат. Ядро агрегации не принимает start > end,
// поэтому диапазон отбраковывается здесь, до вычислений.
func (v *Validator) ValidateDateRange(startDate, endDate string) error {
	start, err := v.ValidateDate(startDate, "start_date")
	if err != nil {
		return err
	}

	end, err := v.ValidateDate(endDate, "end_date")
	if err != nil {
		return err
	}

	if start.After(end) {
		return errors.New("INVALID_DATE_RANGE")
	}

	return nil
}

// Валидация Plan.
func (v *Validator) ValidatePlan(plan *Plan) error {
	if strings.TrimSpace(plan.ManagerID) == "" {
		return errors.New("manager_id cannot be empty")
	}

	switch plan.MetricType {
	case MetricTypeLeads, MetricTypeSales, MetricTypeConversion:
	default:
		return fmt.Errorf("invalid metric_type: %s, must be leads, sales or conversion", plan.MetricType)
	}

	switch plan.PeriodType {
	case PeriodTypeDaily, PeriodTypeWeekly, PeriodTypeMonthly:
	default:
		return fmt.Errorf("invalid period_type: %s, must be daily, weekly or monthly", plan.PeriodType)
	}

	if plan.TargetValue <= 0 {
		return errors.New("target_value must be positive")
	}

	return v.ValidateDateRange(plan.StartDate, plan.EndDate)
}
