package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avoronov/b24-analytics-service/internal/domain"
	"github.com/avoronov/b24-analytics-service/internal/middleware"
	"github.com/avoronov/b24-analytics-service/internal/service"
)

type Handler struct {
	service    service.ServiceInterface
	adminToken string
	botToken   string
	now        func() time.Time
}

func NewHandler(svc service.ServiceInterface, adminToken, botToken string) *Handler {
	return &Handler{
		service:    svc,
		adminToken: adminToken,
		botToken:   botToken,
		now:        time.Now,
	}
}

// ErrorResponse структура ответа с ошибкой.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// sendError отправляет структурированную ошибку клиенту и логирует её.
func (h *Handler) sendError(c *gin.Context, statusCode int, code, message string) {
	slog.Error("Request error",
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"status", statusCode,
		"error_code", code,
		"message", message,
	)

	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	c.JSON(statusCode, resp)
}

// sendServiceError сопоставляет ошибку сервиса коду HTTP.
func (h *Handler) sendServiceError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "validation error") || strings.Contains(msg, "INVALID_DATE_RANGE"):
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", msg)
	case msg == "PLAN_NOT_FOUND":
		h.sendError(c, http.StatusNotFound, "NOT_FOUND", "plan not found")
	default:
		h.sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", msg)
	}
}

// ========================================
// Reports
// ========================================

// GetDailyReport обрабатывает GET /api/reports/daily?date=...
// Без параметра строится отчёт за вчера.
func (h *Handler) GetDailyReport(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.yesterday()
	}

	report, err := h.service.DailyReport(c.Request.Context(), date)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetWeeklyReport обрабатывает GET /api/reports/weekly.
// По умолчанию — последние 7 дней, заканчивая вчера.
func (h *Handler) GetWeeklyReport(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if startDate == "" || endDate == "" {
		end := h.now().AddDate(0, 0, -1)
		startDate = end.AddDate(0, 0, -6).Format(domain.DateLayout)
		endDate = end.Format(domain.DateLayout)
	}

	report, err := h.service.PeriodReport(c.Request.Context(), startDate, endDate, "weekly")
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetMonthlyReport обрабатывает GET /api/reports/monthly?year=&month=.
// По умолчанию — предыдущий месяц.
func (h *Handler) GetMonthlyReport(c *gin.Context) {
	var req struct {
		Year  int `form:"year"`
		Month int `form:"month"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if req.Year == 0 || req.Month == 0 {
		prev := h.now().AddDate(0, -1, 0)
		req.Year = prev.Year()
		req.Month = int(prev.Month())
	}
	if req.Month < 1 || req.Month > 12 {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "month must be between 1 and 12")
		return
	}

	start := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	report, err := h.service.PeriodReport(c.Request.Context(),
		start.Format(domain.DateLayout), end.Format(domain.DateLayout), "monthly")
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"year":   req.Year,
		"month":  req.Month,
		"report": report,
	})
}

// GetCustomReport обрабатывает GET /api/reports/custom.
func (h *Handler) GetCustomReport(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if startDate == "" || endDate == "" {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "start_date and end_date are required")
		return
	}

	report, err := h.service.PeriodReport(c.Request.Context(), startDate, endDate, "custom")
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ========================================
// Metrics
// ========================================

// GetLeadsMetrics обрабатывает GET /api/metrics/leads?date=&manager_id=.
func (h *Handler) GetLeadsMetrics(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.yesterday()
	}

	view, err := h.service.LeadsMetrics(c.Request.Context(), date, c.Query("manager_id"))
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetSalesMetrics обрабатывает GET /api/metrics/sales?date=&manager_id=.
func (h *Handler) GetSalesMetrics(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.yesterday()
	}

	view, err := h.service.SalesMetrics(c.Request.Context(), date, c.Query("manager_id"))
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetConversionMetrics обрабатывает GET /api/metrics/conversion.
func (h *Handler) GetConversionMetrics(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if startDate == "" || endDate == "" {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "start_date and end_date are required")
		return
	}

	report, err := h.service.ConversionMetrics(c.Request.Context(), startDate, endDate)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetManagerDetail обрабатывает GET /api/metrics/manager/:manager_id.
func (h *Handler) GetManagerDetail(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if startDate == "" || endDate == "" {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "start_date and end_date are required")
		return
	}

	detail, err := h.service.ManagerDetail(c.Request.Context(), c.Param("manager_id"), startDate, endDate)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ========================================
// Alerts
// ========================================

// GetAlerts обрабатывает GET /api/alerts/.
func (h *Handler) GetAlerts(c *gin.Context) {
	alerts, err := h.service.CurrentAlerts(c.Request.Context())
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// ========================================
// Plans
// ========================================

// GetPlans обрабатывает GET /api/plans/.
func (h *Handler) GetPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// CreatePlan обрабатывает POST /api/plans/.
func (h *Handler) CreatePlan(c *gin.Context) {
	var req struct {
		ManagerID   string  `json:"manager_id" binding:"required"`
		MetricType  string  `json:"metric_type" binding:"required"`
		PeriodType  string  `json:"period_type" binding:"required"`
		TargetValue float64 `json:"target_value" binding:"required"`
		StartDate   string  `json:"start_date" binding:"required"`
		EndDate     string  `json:"end_date" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	plan, err := h.service.CreatePlan(c.Request.Context(), &domain.Plan{
		ManagerID:   req.ManagerID,
		MetricType:  req.MetricType,
		PeriodType:  req.PeriodType,
		TargetValue: req.TargetValue,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	slog.Info("Plan created via API", "plan_id", plan.ID, "manager_id", plan.ManagerID)
	c.JSON(http.StatusCreated, gin.H{"plan": plan})
}

// UpdatePlan обрабатывает PUT /api/plans/:plan_id.
func (h *Handler) UpdatePlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid plan_id UUID")
		return
	}

	var req struct {
		TargetValue float64 `json:"target_value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	plan, err := h.service.UpdatePlanTarget(c.Request.Context(), planID, req.TargetValue)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// DeletePlan обрабатывает DELETE /api/plans/:plan_id.
func (h *Handler) DeletePlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid plan_id UUID")
		return
	}

	if err := h.service.DeletePlan(c.Request.Context(), planID); err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ========================================
// Auth & Notifications
// ========================================

// AuthTelegram обрабатывает POST /api/auth/telegram.
func (h *Handler) AuthTelegram(c *gin.Context) {
	initData := c.GetHeader("X-Telegram-Init-Data")
	if initData == "" {
		h.sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing Telegram init data")
		return
	}

	if h.botToken != "" && !middleware.ValidateInitData(initData, h.botToken) {
		h.sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid Telegram init data")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "authenticated"})
}

// NotifyDaily обрабатывает POST /api/notify/daily?date=...
func (h *Handler) NotifyDaily(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.yesterday()
	}

	if err := h.service.SendDailyReport(c.Request.Context(), date); err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent", "date": date})
}

// NotifyAlerts обрабатывает POST /api/notify/alerts.
func (h *Handler) NotifyAlerts(c *gin.Context) {
	if err := h.service.SendAlerts(c.Request.Context()); err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// ========================================
// Router
// ========================================

// SetupRouter настраивает маршруты для Gin роутера.
func (h *Handler) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 120*time.Second)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/auth/telegram", h.AuthTelegram)

	api := r.Group("/api", middleware.TelegramAuth(h.botToken))

	// Reports
	api.GET("/reports/daily", h.GetDailyReport)
	api.GET("/reports/weekly", h.GetWeeklyReport)
	api.GET("/reports/monthly", h.GetMonthlyReport)
	api.GET("/reports/custom", h.GetCustomReport)

	// Metrics
	api.GET("/metrics/leads", h.GetLeadsMetrics)
	api.GET("/metrics/sales", h.GetSalesMetrics)
	api.GET("/metrics/conversion", h.GetConversionMetrics)
	api.GET("/metrics/manager/:manager_id", h.GetManagerDetail)

	// Alerts
	api.GET("/alerts/", h.GetAlerts)

	// Plans
	api.GET("/plans/", h.GetPlans)
	api.POST("/plans/", middleware.AdminAuth(h.adminToken), h.CreatePlan)
	api.PUT("/plans/:plan_id", middleware.AdminAuth(h.adminToken), h.UpdatePlan)
	api.DELETE("/plans/:plan_id", middleware.AdminAuth(h.adminToken), h.DeletePlan)

	// Notifications
	api.POST("/notify/daily", middleware.AdminAuth(h.adminToken), h.NotifyDaily)
	api.POST("/notify/alerts", middleware.AdminAuth(h.adminToken), h.NotifyAlerts)

	return r
}

func (h *Handler) yesterday() string {
	return h.now().AddDate(0, 0, -1).Format(domain.DateLayout)
}
