package alerting

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
	"github.com/riskibarqy/faultline/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

var errWebhookTransient = crerr.New("alert webhook transient failure")

type WebhookConfig struct {
	Endpoint       string
	AuthToken      string
	Timeout        time.Duration
	RetryMax       int
	CircuitBreaker resilience.Config
}

// WebhookSink posts alerts as JSON to a configured endpoint. Delivery runs
// through its own circuit breaker so a dead alert channel cannot pile up
// blocked goroutines.
type WebhookSink struct {
	client    *retryablehttp.Client
	endpoint  string
	authToken string
	logger    *slog.Logger
	breaker   *resilience.CircuitBreaker
}

func NewWebhookSink(cfg WebhookConfig, logger *slog.Logger) (*WebhookSink, error) {
	endpoint, err := validateHTTPEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid ALERT_WEBHOOK_URL")
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	// Hand the final response back so status classification below stays ours.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	breaker, err := resilience.NewCircuitBreaker("alert-webhook", cfg.CircuitBreaker)
	if err != nil {
		return nil, crerr.Wrap(err, "alert webhook breaker config")
	}

	return &WebhookSink{
		client:    client,
		endpoint:  endpoint,
		authToken: strings.TrimSpace(cfg.AuthToken),
		logger:    logger,
		breaker:   breaker,
	}, nil
}

func (s *WebhookSink) Send(ctx context.Context, alert usecase.Alert) error {
	body, err := sonic.Marshal(webhookPayload(alert))
	if err != nil {
		return crerr.Wrap(err, "marshal alert payload")
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.deliver(ctx, alert, body)
	})
	if err != nil {
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			s.logger.WarnContext(ctx, "alert webhook circuit breaker rejected delivery",
				"alert_id", alert.ID, "kind", alert.Kind)
			return fmt.Errorf("alert webhook is temporarily unavailable: %w", err)
		}
		return err
	}

	s.logger.InfoContext(ctx, "alert delivered",
		"alert_id", alert.ID, "kind", alert.Kind, "severity", string(alert.Severity))
	return nil
}

func (s *WebhookSink) deliver(ctx context.Context, alert usecase.Alert, body []byte) error {
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		s.logger.DebugContext(ctx, "alert webhook request",
			"alert_id", alert.ID,
			"curl_preview", buildWebhookCurlPreview(s.endpoint, string(body), s.authToken != ""))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return crerr.Wrap(err, "create alert webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post alert alert_id=%s endpoint=%s: %v", errWebhookTransient, alert.ID, s.endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isRetryableWebhookStatus(resp.StatusCode) {
			return fmt.Errorf("%w: post alert status=%d alert_id=%s body=%s",
				errWebhookTransient, resp.StatusCode, alert.ID, strings.TrimSpace(string(raw)))
		}
		return fmt.Errorf("post alert status=%d alert_id=%s body=%s",
			resp.StatusCode, alert.ID, strings.TrimSpace(string(raw)))
	}

	return nil
}

type webhookBody struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Severity string            `json:"severity"`
	Subject  string            `json:"subject"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	At       time.Time         `json:"at"`
}

func webhookPayload(alert usecase.Alert) webhookBody {
	at := alert.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return webhookBody{
		ID:       alert.ID,
		Kind:     alert.Kind,
		Severity: string(alert.Severity),
		Subject:  alert.Subject,
		Message:  alert.Message,
		Fields:   alert.Fields,
		At:       at.UTC(),
	}
}

func validateHTTPEndpoint(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		return "", crerr.Newf("%q is not an http(s) URL", candidate)
	}
	return candidate, nil
}

func buildWebhookCurlPreview(endpoint, body string, withAuth bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart("-X")
	appendPart("POST")
	appendPart(shellQuote(endpoint))
	appendPart("-H")
	appendPart(shellQuote("Content-Type: application/json"))
	if withAuth {
		appendPart("-H")
		appendPart(shellQuote("Authorization: Bearer ***"))
	}
	appendPart("-d")
	appendPart(shellQuote(truncateForLog(body, 4096)))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}

func isRetryableWebhookStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
