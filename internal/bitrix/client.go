// Package bitrix реализует клиент REST API Битрикс24: постраничную
// выгрузку списков, повторы при превышении лимита запросов и нормализацию
// сущностей CRM в доменные записи.
package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// Битрикс отдаёт списки страницами по 50 записей.
	pageSize = 50
	// Пауза перед повтором после QUERY_LIMIT_EXCEEDED.
	defaultRateLimitDelay = 5 * time.Second
	// Пауза после каждой тысячи выгруженных записей.
	throttleEvery        = 1000
	defaultThrottleDelay = time.Second
)

// HTTPClient позволяет подменять транспорт в тестах.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client ходит в REST одного вебхука: у каждого типа сущностей в
// Битриксе свой токен, поэтому на сервис приходится несколько клиентов.
type Client struct {
	baseURL        string
	httpc          HTTPClient
	rateLimitDelay time.Duration
	throttleDelay  time.Duration
}

// NewClient собирает клиент для вебхука domain/user/token.
func NewClient(domain string, userID int, token string, httpc HTTPClient) *Client {
	return &Client{
		baseURL:        fmt.Sprintf("https://%s/rest/%d/%s", domain, userID, token),
		httpc:          httpc,
		rateLimitDelay: defaultRateLimitDelay,
		throttleDelay:  defaultThrottleDelay,
	}
}

type listRequest struct {
	Start  int            `json:"start"`
	Filter map[string]any `json:"filter,omitempty"`
	Select []string       `json:"select,omitempty"`
}

type listResponse struct {
	Result           []map[string]any `json:"result"`
	Total            int              `json:"total"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description"`
}

// GetList выгружает все страницы списочного метода.
// QUERY_LIMIT_EXCEEDED не считается ошибкой: клиент ждёт и повторяет
// ту же страницу. Любая другая ошибка API прерывает выгрузку.
func (c *Client) GetList(ctx context.Context, method string, filter map[string]any, selectFields []string) ([]map[string]any, error) {
	var entities []map[string]any
	start := 0
	total := 1

	for start < total {
		resp, err := c.post(ctx, method, listRequest{Start: start, Filter: filter, Select: selectFields})
		if err != nil {
			return nil, err
		}

		if resp.Error == "QUERY_LIMIT_EXCEEDED" {
			slog.Warn("Bitrix24 rate limit hit, backing off", "method", method, "start", start)
			if err := sleepCtx(ctx, c.rateLimitDelay); err != nil {
				return nil, err
			}
			continue
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("bitrix24 %s: %s (%s)", method, resp.Error, resp.ErrorDescription)
		}

		entities = append(entities, resp.Result...)
		start += pageSize
		total = resp.Total

		if start%throttleEvery == 0 && start < total {
			if err := sleepCtx(ctx, c.throttleDelay); err != nil {
				return nil, err
			}
		}
	}

	slog.Debug("Bitrix24 list fetched", "method", method, "count", len(entities))
	return entities, nil
}

func (c *Client) post(ctx context.Context, method string, body listRequest) (*listResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitrix24 %s request failed: %w", method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, fmt.Errorf("bitrix24 %s: non-2xx status %d body=%s", method, httpResp.StatusCode, string(b))
	}

	var resp listResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode bitrix24 response: %w", err)
	}
	return &resp, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
