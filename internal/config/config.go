package config

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"

	// Импортируем для регистрации file source драйвера миграций
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"

	// Импортируем для регистрации PostgreSQL драйвера
	_ "github.com/lib/pq"
)

type Config struct {
	// Bitrix24 webhook реквизиты. Отдельный токен на каждую
	// используемую область REST API.
	BitrixDomain      string
	BitrixUserID      string
	BitrixLeadToken   string
	BitrixUserToken   string
	BitrixStatusToken string
	BitrixDealToken   string

	TelegramBotToken string
	AlertChatIDs     []int64
	MiniAppURL       string

	// DatabaseURL пустой означает хранение планов в памяти.
	DatabaseURL    string
	Port           string
	MigrationsPath string
	AdminToken     string
}

// Load загружает конфигурацию из переменных окружения.
func Load() *Config {
	cfg := &Config{
		BitrixDomain:      getEnv("BITRIX24_DOMAIN", ""),
		BitrixUserID:      getEnv("BITRIX24_USER_ID", ""),
		BitrixLeadToken:   getEnv("BITRIX24_LEAD_TOKEN", ""),
		BitrixUserToken:   getEnv("BITRIX24_USER_TOKEN", ""),
		BitrixStatusToken: getEnv("BITRIX24_STATUS_TOKEN", ""),
		BitrixDealToken:   getEnv("BITRIX24_DEAL_TOKEN", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AlertChatIDs:     parseChatIDs(getEnv("ALERT_CHAT_IDS", "")),
		MiniAppURL:       getEnv("MINI_APP_URL", ""),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		Port:           getEnv("PORT", "8080"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),
		AdminToken:     getEnv("ADMIN_TOKEN", "admin-secret"),
	}

	slog.Info("Config loaded",
		"port", cfg.Port,
		"bitrix_domain", cfg.BitrixDomain,
		"alert_chats", len(cfg.AlertChatIDs),
		"database", cfg.DatabaseURL != "",
	)

	return cfg
}

// ConnectDB подключается к БД с retry логикой.
func (c *Config) ConnectDB() (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	maxRetries := 10
	delay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", c.DatabaseURL)
		if err == nil {
			if err = db.Ping(); err == nil {
				db.SetMaxOpenConns(100)
				db.SetMaxIdleConns(25)
				db.SetConnMaxLifetime(5 * time.Minute)

				slog.Info("Successfully connected to database")
				return db, nil
			}
		}

		slog.Warn("Failed to connect to database",
			"attempt", i+1,
			"max_retries", maxRetries,
			"error", err,
		)

		if i < maxRetries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// RunMigrations применяет миграции к БД.
func (c *Config) RunMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		c.MigrationsPath,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Migrations applied successfully")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseChatIDs разбирает список chat_id через запятую.
// Нечисловые элементы пропускаются с предупреждением.
func parseChatIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("Skipping invalid chat id", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
