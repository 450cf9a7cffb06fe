package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDate_Success(t *testing.T) {
	validator := NewValidator()

	parsed, err := validator.ValidateDate("2025-06-15", "date")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), parsed)
}

func TestValidateDate_Empty(t *testing.T) {
	validator := NewValidator()

	_, err := validator.ValidateDate("", "date")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "date cannot be empty")
}

func TestValidateDate_WrongFormat(t *testing.T) {
	validator := NewValidator()

	_, err := validator.ValidateDate("15.06.2025", "start_date")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "start_date must be a valid YYYY-MM-DD date")
}

func TestValidateDateRange_Success(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidateDateRange("2025-06-01", "2025-06-30")
	assert.NoError(t, err)
}

func TestValidateDateRange_SingleDay(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidateDateRange("2025-06-15", "2025-06-15")
	assert.NoError(t, err)
}

func TestValidateDateRange_StartAfterEnd(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidateDateRange("2025-06-30", "2025-06-01")
	assert.Error(t, err)
	assert.Equal(t, "INVALID_DATE_RANGE", err.Error())
}

func TestValidatePlan_Success(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidatePlan(&Plan{
		ManagerID:   "42",
		MetricType:  MetricTypeLeads,
		PeriodType:  PeriodTypeMonthly,
		TargetValue: 100,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-30",
	})
	assert.NoError(t, err)
}

func TestValidatePlan_EmptyManagerID(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidatePlan(&Plan{
		ManagerID:   "  ",
		MetricType:  MetricTypeLeads,
		PeriodType:  PeriodTypeMonthly,
		TargetValue: 100,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-30",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "manager_id cannot be empty")
}

func TestValidatePlan_InvalidMetricType(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidatePlan(&Plan{
		ManagerID:   "42",
		MetricType:  "revenue",
		PeriodType:  PeriodTypeMonthly,
		TargetValue: 100,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-30",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid metric_type")
}

func TestValidatePlan_InvalidPeriodType(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidatePlan(&Plan{
		ManagerID:   "42",
		MetricType:  MetricTypeSales,
		PeriodType:  "quarterly",
		TargetValue: 100,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-30",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid period_type")
}

func TestValidatePlan_NonPositiveTarget(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidatePlan(&Plan{
		ManagerID:   "42",
		MetricType:  MetricTypeConversion,
		PeriodType:  PeriodTypeDaily,
		TargetValue: 0,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-30",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target_value must be positive")
}

func TestValidatePlan_InvalidRange(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidatePlan(&Plan{
		ManagerID:   "42",
		MetricType:  MetricTypeLeads,
		PeriodType:  PeriodTypeWeekly,
		TargetValue: 10,
		StartDate:   "2025-06-30",
		EndDate:     "2025-06-01",
	})
	assert.Error(t, err)
	assert.Equal(t, "INVALID_DATE_RANGE", err.Error())
}
