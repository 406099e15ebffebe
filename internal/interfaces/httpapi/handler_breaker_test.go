package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/faultline/internal/interfaces/httpapi"
	usecasemock "github.com/riskibarqy/faultline/internal/mocks/usecase"
	"github.com/riskibarqy/faultline/internal/platform/degradation"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
	"github.com/riskibarqy/faultline/internal/usecase"
	"github.com/stretchr/testify/mock"
)

type apiFixture struct {
	router      http.Handler
	breakers    *usecase.BreakerService
	degradation *usecase.DegradationService
}

func newAPIFixture(t *testing.T, operatorToken string) *apiFixture {
	t.Helper()

	registry := resilience.NewRegistry()
	defaults := resilience.Config{
		FailureThreshold:     1,
		FailureThresholdKind: resilience.ThresholdCount,
		SuccessThreshold:     1,
		OpenTimeout:          time.Minute,
		MonitoringPeriod:     time.Minute,
		MinimumCalls:         1,
		WindowSize:           10,
	}
	breakerSvc := usecase.NewBreakerService(registry, defaults, nil, nil, nil, nil)

	source := usecasemock.NewMetricsSource(t)
	source.On("GetSystemMetrics", mock.Anything).
		Return(degradation.SystemMetrics{CPUPercent: 12.5, Goroutines: 42}, nil).
		Maybe()

	degradationSvc, err := usecase.NewDegradationService(nil, nil, source, registry,
		usecase.DegradationConfig{}, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("new degradation service: %v", err)
	}

	overviewSvc := usecase.NewOverviewService(registry, degradationSvc, source, time.Minute)
	handler := httpapi.NewHandler(breakerSvc, degradationSvc, overviewSvc, nil)

	return &apiFixture{
		router:      httpapi.NewRouter(handler, nil, nil, operatorToken, nil, nil),
		breakers:    breakerSvc,
		degradation: degradationSvc,
	}
}

type envelope struct {
	APIVersion string         `json:"apiVersion"`
	Data       map[string]any `json:"data"`
	Error      map[string]any `json:"error"`
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, header map[string]string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestAPI_Healthz(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "")
	code, env := doRequest(t, f.router, http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got, _ := env.Data["status"].(string); got != "ok" {
		t.Fatalf("unexpected health payload: %v", env.Data)
	}
}

func TestAPI_BreakerStatusListAndGet(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "")
	if err := f.breakers.Execute(context.Background(), "payments", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("seed breaker: %v", err)
	}

	code, env := doRequest(t, f.router, http.MethodGet, "/circuit-breaker/status", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	list, _ := env.Data["breakers"].([]any)
	if len(list) != 1 {
		t.Fatalf("unexpected breaker list: %v", env.Data)
	}

	code, env = doRequest(t, f.router, http.MethodGet, "/circuit-breaker/status/payments", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got, _ := env.Data["name"].(string); got != "payments" {
		t.Fatalf("unexpected breaker name: %v", env.Data["name"])
	}
	if got, _ := env.Data["state"].(string); got != "CLOSED" {
		t.Fatalf("unexpected breaker state: %v", env.Data["state"])
	}
	stats, _ := env.Data["stats"].(map[string]any)
	if got, _ := stats["total"].(float64); got != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	code, env = doRequest(t, f.router, http.MethodGet, "/circuit-breaker/status/missing", "", nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if env.Error == nil {
		t.Fatal("expected error envelope")
	}
}

func TestAPI_BreakerForceOpenCloseAndRemove(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "")
	if err := f.breakers.Execute(context.Background(), "payments", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("seed breaker: %v", err)
	}

	code, env := doRequest(t, f.router, http.MethodPost, "/circuit-breaker/payments/open", `{"reason":"maintenance"}`, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if forced, _ := env.Data["forced"].(bool); !forced {
		t.Fatalf("expected forced breaker, got %v", env.Data)
	}
	if got, _ := env.Data["state"].(string); got != "OPEN" {
		t.Fatalf("unexpected state: %v", env.Data["state"])
	}

	// Empty body is fine, the reason is optional.
	code, env = doRequest(t, f.router, http.MethodPost, "/circuit-breaker/payments/close", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got, _ := env.Data["state"].(string); got != "CLOSED" {
		t.Fatalf("unexpected state: %v", env.Data["state"])
	}

	code, env = doRequest(t, f.router, http.MethodDelete, "/circuit-breaker/payments", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if removed, _ := env.Data["removed"].(bool); !removed {
		t.Fatalf("expected removed=true, got %v", env.Data)
	}

	code, _ = doRequest(t, f.router, http.MethodDelete, "/circuit-breaker/payments", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestAPI_BreakerForceOpen_ReasonTooLongRejected(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "")
	if err := f.breakers.Execute(context.Background(), "payments", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("seed breaker: %v", err)
	}

	body := `{"reason":"` + strings.Repeat("x", 201) + `"}`
	code, _ := doRequest(t, f.router, http.MethodPost, "/circuit-breaker/payments/open", body, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAPI_OperatorTokenGuardsMutatingRoutes(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "secret")
	if err := f.breakers.Execute(context.Background(), "payments", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("seed breaker: %v", err)
	}

	// Reads stay open.
	code, _ := doRequest(t, f.router, http.MethodGet, "/circuit-breaker/status", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200 for read, got %d", code)
	}

	code, _ = doRequest(t, f.router, http.MethodPost, "/circuit-breaker/payments/open", `{}`, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	code, _ = doRequest(t, f.router, http.MethodPost, "/circuit-breaker/payments/open", `{}`,
		map[string]string{"X-Operator-Token": "secret"})
	if code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", code)
	}
}

func TestAPI_OpsOverview(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "")
	if err := f.breakers.Execute(context.Background(), "payments", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("seed breaker: %v", err)
	}

	code, env := doRequest(t, f.router, http.MethodGet, "/ops/overview", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	breakers, _ := env.Data["breakers"].([]any)
	if len(breakers) != 1 {
		t.Fatalf("unexpected breakers in overview: %v", env.Data["breakers"])
	}
	system, _ := env.Data["system"].(map[string]any)
	if got, _ := system["cpuPercent"].(float64); got != 12.5 {
		t.Fatalf("unexpected system sample: %v", system)
	}
	deg, _ := env.Data["degradation"].(map[string]any)
	if got, _ := deg["currentLevelName"].(string); got != "NORMAL" {
		t.Fatalf("unexpected degradation status: %v", deg)
	}
	if _, ok := env.Data["generatedAt"].(string); !ok {
		t.Fatalf("expected generatedAt timestamp, got %v", env.Data["generatedAt"])
	}
}
