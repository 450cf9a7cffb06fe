// Package notifier доставляет отчёты и алерты в Telegram-чаты отдела.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avoronov/b24-analytics-service/internal/domain"
)

// Глифы важности в человекочитаемых уведомлениях. Словарь severity
// задаётся ядром, здесь только его отображение.
var severityGlyphs = map[domain.AlertSeverity]string{
	domain.SeverityCritical: "🔴",
	domain.SeverityWarning:  "🟡",
	domain.SeverityInfo:     "🔵",
}

// HTTPClient позволяет подменять транспорт в тестах.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type TelegramNotifier struct {
	botToken   string
	chatIDs    []int64
	miniAppURL string
	httpc      HTTPClient
	baseURL    string
}

func NewTelegramNotifier(botToken string, chatIDs []int64, miniAppURL string, httpc HTTPClient) *TelegramNotifier {
	return &TelegramNotifier{
		botToken:   botToken,
		chatIDs:    chatIDs,
		miniAppURL: miniAppURL,
		httpc:      httpc,
		baseURL:    "https://api.telegram.org",
	}
}

// SendDailyReport рассылает сводку за день во все настроенные чаты.
// Ошибка одного чата не прерывает рассылку по остальным.
func (n *TelegramNotifier) SendDailyReport(ctx context.Context, report *domain.DailyReport) error {
	return n.broadcast(ctx, FormatDailyReport(report))
}

// SendAlerts рассылает список алертов во все настроенные чаты.
func (n *TelegramNotifier) SendAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return n.broadcast(ctx, FormatAlerts(alerts))
}

// FormatDailyReport собирает HTML-сообщение сводного отчёта.
func FormatDailyReport(report *domain.DailyReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "☀️ <b>Звіт за %s</b>\n\n", report.Date)
	fmt.Fprintf(&b, "🎯 <b>Ліди:</b> %d\n", report.Leads.Metrics.TotalLeads)
	fmt.Fprintf(&b, "📈 <b>Продажі:</b> %d\n", report.Leads.Metrics.TotalDeals)

	cr := 0.0
	if report.Leads.Metrics.TotalLeads > 0 {
		cr = float64(report.Leads.Metrics.TotalDeals) / float64(report.Leads.Metrics.TotalLeads) * 100
	}
	fmt.Fprintf(&b, "📊 <b>CR:</b> %.1f%%\n\n", cr)

	fmt.Fprintf(&b, "💰 <b>Сума контрактів:</b> %.0f\n", report.Sales.TotalAmount)
	fmt.Fprintf(&b, "📝 <b>Контрактів:</b> %d\n", report.Sales.TotalContracts)

	if report.Leads.Metrics.DepartmentMedianReactionTime != nil {
		fmt.Fprintf(&b, "⏱ <b>Медіана реакції:</b> %s\n", report.Leads.Metrics.DepartmentMedianReactionTime.Round(time.Second))
	}

	if len(report.Alerts) > 0 {
		fmt.Fprintf(&b, "\n⚠️ <b>Алертів:</b> %d\n", len(report.Alerts))
	}

	return b.String()
}

// FormatAlerts собирает HTML-сообщение со списком алертов,
// сохраняя порядок, выданный движком.
func FormatAlerts(alerts []domain.Alert) string {
	var b strings.Builder

	b.WriteString("⚠️ <b>Щоденні алерти</b>\n\n")
	for _, alert := range alerts {
		glyph, ok := severityGlyphs[alert.Severity]
		if !ok {
			glyph = "ℹ️"
		}
		fmt.Fprintf(&b, "%s <b>%s</b>\n%s\n", glyph, alert.Title, alert.Description)
		if alert.ManagerName != "" {
			fmt.Fprintf(&b, "👤 %s\n", alert.ManagerName)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (n *TelegramNotifier) broadcast(ctx context.Context, text string) error {
	var lastErr error
	sent := 0

	for _, chatID := range n.chatIDs {
		if err := n.sendMessage(ctx, chatID, text); err != nil {
			slog.Error("Failed to send telegram message", "chat_id", chatID, "error", err)
			lastErr = err
			continue
		}
		sent++
	}

	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text   string     `json:"text"`
	WebApp webAppInfo `json:"web_app"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, chatID int64, text string) error {
	body := sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}
	if n.miniAppURL != "" {
		body.ReplyMarkup = &replyMarkup{
			InlineKeyboard: [][]inlineButton{{
				{Text: "📊 Відкрити Аналітику", WebApp: webAppInfo{URL: n.miniAppURL}},
			}},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram non-2xx status %d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
