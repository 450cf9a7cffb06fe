package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/avoronov/b24-analytics-service/internal/bitrix"
	"github.com/avoronov/b24-analytics-service/internal/config"
	"github.com/avoronov/b24-analytics-service/internal/handler"
	"github.com/avoronov/b24-analytics-service/internal/notifier"
	"github.com/avoronov/b24-analytics-service/internal/repository"
	"github.com/avoronov/b24-analytics-service/internal/service"
)

func main() {
	config.SetupLogger()

	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	slog.Info("Starting Bitrix24 Analytics Service...")

	cfg := config.Load()

	plans, cleanup, err := setupPlanRepository(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := setupBitrixSource(cfg)
	if err != nil {
		return err
	}

	tg := notifier.NewTelegramNotifier(
		cfg.TelegramBotToken,
		cfg.AlertChatIDs,
		cfg.MiniAppURL,
		&http.Client{Timeout: 30 * time.Second},
	)

	svc := service.NewReportService(source, plans, tg)
	h := handler.NewHandler(svc, cfg.AdminToken, cfg.TelegramBotToken)

	srv := startServer(cfg.Port, h.SetupRouter())

	waitForShutdown(srv)

	return nil
}

// setupPlanRepository выбирает хранилище планов. Без DATABASE_URL
// планы живут в памяти процесса.
func setupPlanRepository(cfg *config.Config) (repository.PlanRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set, using in-memory plan storage")
		return repository.NewMemoryPlanRepository(), func() {}, nil
	}

	db, err := cfg.ConnectDB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := cfg.RunMigrations(db.DB); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}
	return repository.NewPostgresPlanRepository(db), cleanup, nil
}

// setupBitrixSource собирает клиентов Bitrix24 на отдельных webhook
// токенах для каждой области REST API.
func setupBitrixSource(cfg *config.Config) (*bitrix.Source, error) {
	userID, err := strconv.Atoi(cfg.BitrixUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid BITRIX24_USER_ID %q: %w", cfg.BitrixUserID, err)
	}

	httpc := &http.Client{Timeout: 60 * time.Second}

	return bitrix.NewSource(
		bitrix.NewClient(cfg.BitrixDomain, userID, cfg.BitrixLeadToken, httpc),
		bitrix.NewClient(cfg.BitrixDomain, userID, cfg.BitrixUserToken, httpc),
		bitrix.NewClient(cfg.BitrixDomain, userID, cfg.BitrixStatusToken, httpc),
		bitrix.NewClient(cfg.BitrixDomain, userID, cfg.BitrixDealToken, httpc),
	), nil
}

// startServer запускает HTTP сервер.
func startServer(port string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: handler,
		// Отчёты за длинные периоды тянут из CRM десятки страниц,
		// поэтому таймауты записи заметно больше обычных.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server is starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	return srv
}

// waitForShutdown ожидает сигнал остановки и gracefully завершает сервер.
func waitForShutdown(srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited gracefully")
}
