package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/faultline/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                          string
	ServiceName                     string
	ServiceVersion                  string
	HTTPAddr                        string
	ReadTimeout                     time.Duration
	WriteTimeout                    time.Duration
	CORSAllowedOrigins              []string
	OperatorToken                   string
	LogLevel                        logging.Level
	DBEnabled                       bool
	DBURL                           string
	DBDisablePreparedBinary         bool
	AuditRetention                  time.Duration
	AuditRetentionSchedule          string
	PolicySource                    string
	PolicyFilePath                  string
	PolicyFilePollInterval          time.Duration
	PolicyRedisAddr                 string
	PolicyRedisPassword             string
	PolicyRedisDB                   int
	PolicyRedisKey                  string
	PolicyRedisChannel              string
	PolicyHTTPURL                   string
	PolicyHTTPBearerToken           string
	PolicyHTTPTimeout               time.Duration
	PolicyHTTPPollInterval          time.Duration
	AlertWebhookEnabled             bool
	AlertWebhookURL                 string
	AlertWebhookAuthToken           string
	AlertWebhookTimeout             time.Duration
	AlertWebhookRetryMax            int
	AlertWebhookCircuitFailureCount int
	AlertWebhookCircuitOpenTimeout  time.Duration
	AlertPoolSize                   int
	DegradationEvalInterval         time.Duration
	DegradationRecoveryCycles       int
	OverviewCacheTTL                time.Duration
	PprofEnabled                    bool
	PprofAddr                       string
	UptraceEnabled                  bool
	UptraceDSN                      string
	UptraceLogsEnabled              bool
	UptraceCaptureRequestBody       bool
	UptraceRequestBodyMaxBytes      int
	BetterStackEnabled              bool
	BetterStackEndpoint             string
	BetterStackToken                string
	BetterStackTimeout              time.Duration
	BetterStackMinLevel             logging.Level
	PyroscopeEnabled                bool
	PyroscopeServerAddress          string
	PyroscopeAppName                string
	PyroscopeAuthToken              string
	PyroscopeBasicAuthUser          string
	PyroscopeBasicAuthPassword      string
	PyroscopeUploadRate             time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}
	uptraceCaptureRequestBody, err := strconv.ParseBool(getEnv("UPTRACE_CAPTURE_REQUEST_BODY", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_CAPTURE_REQUEST_BODY: %w", err)
	}
	uptraceRequestBodyMaxBytes, err := getEnvAsInt("UPTRACE_REQUEST_BODY_MAX_BYTES", 8192)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_REQUEST_BODY_MAX_BYTES: %w", err)
	}
	if uptraceRequestBodyMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPTRACE_REQUEST_BODY_MAX_BYTES must be > 0")
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}
	betterStackMinLevel := parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error"))

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	dbEnabled, err := strconv.ParseBool(getEnv("DB_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_ENABLED: %w", err)
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if dbEnabled && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when DB_ENABLED=true")
	}

	auditRetention, err := time.ParseDuration(getEnv("AUDIT_RETENTION", "720h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse AUDIT_RETENTION: %w", err)
	}
	if auditRetention <= 0 {
		return Config{}, fmt.Errorf("AUDIT_RETENTION must be > 0")
	}
	auditRetentionSchedule := strings.TrimSpace(getEnv("AUDIT_RETENTION_SCHEDULE", "@hourly"))

	policySource, err := parsePolicySource(getEnv("POLICY_SOURCE", PolicySourceStatic))
	if err != nil {
		return Config{}, err
	}
	policyFilePollInterval, err := time.ParseDuration(getEnv("POLICY_FILE_POLL_INTERVAL", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse POLICY_FILE_POLL_INTERVAL: %w", err)
	}
	if policyFilePollInterval <= 0 {
		return Config{}, fmt.Errorf("POLICY_FILE_POLL_INTERVAL must be > 0")
	}
	policyFilePath := strings.TrimSpace(getEnv("POLICY_FILE_PATH", ""))
	if policySource == PolicySourceFile && policyFilePath == "" {
		return Config{}, fmt.Errorf("POLICY_FILE_PATH is required when POLICY_SOURCE=file")
	}
	policyRedisAddr := strings.TrimSpace(getEnv("POLICY_REDIS_ADDR", ""))
	if policySource == PolicySourceRedis && policyRedisAddr == "" {
		return Config{}, fmt.Errorf("POLICY_REDIS_ADDR is required when POLICY_SOURCE=redis")
	}
	policyRedisDB, err := getEnvAsInt("POLICY_REDIS_DB", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse POLICY_REDIS_DB: %w", err)
	}
	if policyRedisDB < 0 {
		return Config{}, fmt.Errorf("POLICY_REDIS_DB must be >= 0")
	}
	policyHTTPURL := strings.TrimSpace(getEnv("POLICY_HTTP_URL", ""))
	if policySource == PolicySourceHTTP && policyHTTPURL == "" {
		return Config{}, fmt.Errorf("POLICY_HTTP_URL is required when POLICY_SOURCE=http")
	}
	policyHTTPTimeout, err := time.ParseDuration(getEnv("POLICY_HTTP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse POLICY_HTTP_TIMEOUT: %w", err)
	}
	if policyHTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("POLICY_HTTP_TIMEOUT must be > 0")
	}
	policyHTTPPollInterval, err := time.ParseDuration(getEnv("POLICY_HTTP_POLL_INTERVAL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse POLICY_HTTP_POLL_INTERVAL: %w", err)
	}
	if policyHTTPPollInterval <= 0 {
		return Config{}, fmt.Errorf("POLICY_HTTP_POLL_INTERVAL must be > 0")
	}

	alertWebhookEnabled, err := strconv.ParseBool(getEnv("ALERT_WEBHOOK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_ENABLED: %w", err)
	}
	alertWebhookURL := strings.TrimSpace(getEnv("ALERT_WEBHOOK_URL", ""))
	if alertWebhookEnabled && alertWebhookURL == "" {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_URL is required when ALERT_WEBHOOK_ENABLED=true")
	}
	alertWebhookTimeout, err := time.ParseDuration(getEnv("ALERT_WEBHOOK_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_TIMEOUT: %w", err)
	}
	if alertWebhookTimeout <= 0 {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_TIMEOUT must be > 0")
	}
	alertWebhookRetryMax, err := getEnvAsInt("ALERT_WEBHOOK_RETRY_MAX", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_RETRY_MAX: %w", err)
	}
	if alertWebhookRetryMax < 0 {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_RETRY_MAX must be >= 0")
	}
	alertWebhookCircuitFailureCount, err := getEnvAsInt("ALERT_WEBHOOK_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if alertWebhookCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	alertWebhookCircuitOpenTimeout, err := time.ParseDuration(getEnv("ALERT_WEBHOOK_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if alertWebhookCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	alertPoolSize, err := getEnvAsInt("ALERT_POOL_SIZE", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_POOL_SIZE: %w", err)
	}
	if alertPoolSize < 1 {
		return Config{}, fmt.Errorf("ALERT_POOL_SIZE must be >= 1")
	}

	degradationEvalInterval, err := time.ParseDuration(getEnv("DEGRADATION_EVAL_INTERVAL", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DEGRADATION_EVAL_INTERVAL: %w", err)
	}
	if degradationEvalInterval <= 0 {
		return Config{}, fmt.Errorf("DEGRADATION_EVAL_INTERVAL must be > 0")
	}
	degradationRecoveryCycles, err := getEnvAsInt("DEGRADATION_RECOVERY_CYCLES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse DEGRADATION_RECOVERY_CYCLES: %w", err)
	}
	if degradationRecoveryCycles < 1 {
		return Config{}, fmt.Errorf("DEGRADATION_RECOVERY_CYCLES must be >= 1")
	}

	overviewCacheTTL, err := time.ParseDuration(getEnv("OVERVIEW_CACHE_TTL", "2s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse OVERVIEW_CACHE_TTL: %w", err)
	}
	if overviewCacheTTL <= 0 {
		return Config{}, fmt.Errorf("OVERVIEW_CACHE_TTL must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                          appEnv,
		ServiceName:                     getEnv("APP_SERVICE_NAME", "faultline-api"),
		ServiceVersion:                  getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                        getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                     readTimeout,
		WriteTimeout:                    writeTimeout,
		CORSAllowedOrigins:              splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		OperatorToken:                   strings.TrimSpace(getEnv("OPERATOR_TOKEN", "")),
		LogLevel:                        parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		DBEnabled:                       dbEnabled,
		DBURL:                           dbURL,
		DBDisablePreparedBinary:         dbDisablePreparedBinary,
		AuditRetention:                  auditRetention,
		AuditRetentionSchedule:          auditRetentionSchedule,
		PolicySource:                    policySource,
		PolicyFilePath:                  policyFilePath,
		PolicyFilePollInterval:          policyFilePollInterval,
		PolicyRedisAddr:                 policyRedisAddr,
		PolicyRedisPassword:             strings.TrimSpace(getEnv("POLICY_REDIS_PASSWORD", "")),
		PolicyRedisDB:                   policyRedisDB,
		PolicyRedisKey:                  strings.TrimSpace(getEnv("POLICY_REDIS_KEY", "faultline:policy")),
		PolicyRedisChannel:              strings.TrimSpace(getEnv("POLICY_REDIS_CHANNEL", "")),
		PolicyHTTPURL:                   policyHTTPURL,
		PolicyHTTPBearerToken:           strings.TrimSpace(getEnv("POLICY_HTTP_BEARER_TOKEN", "")),
		PolicyHTTPTimeout:               policyHTTPTimeout,
		PolicyHTTPPollInterval:          policyHTTPPollInterval,
		AlertWebhookEnabled:             alertWebhookEnabled,
		AlertWebhookURL:                 alertWebhookURL,
		AlertWebhookAuthToken:           strings.TrimSpace(getEnv("ALERT_WEBHOOK_AUTH_TOKEN", "")),
		AlertWebhookTimeout:             alertWebhookTimeout,
		AlertWebhookRetryMax:            alertWebhookRetryMax,
		AlertWebhookCircuitFailureCount: alertWebhookCircuitFailureCount,
		AlertWebhookCircuitOpenTimeout:  alertWebhookCircuitOpenTimeout,
		AlertPoolSize:                   alertPoolSize,
		DegradationEvalInterval:         degradationEvalInterval,
		DegradationRecoveryCycles:       degradationRecoveryCycles,
		OverviewCacheTTL:                overviewCacheTTL,
		PprofEnabled:                    pprofEnabled,
		PprofAddr:                       pprofAddr,
		UptraceEnabled:                  uptraceEnabled,
		UptraceDSN:                      uptraceDSN,
		UptraceLogsEnabled:              uptraceLogsEnabled,
		UptraceCaptureRequestBody:       uptraceCaptureRequestBody,
		UptraceRequestBodyMaxBytes:      uptraceRequestBodyMaxBytes,
		BetterStackEnabled:              betterStackEnabled,
		BetterStackEndpoint:             betterStackEndpoint,
		BetterStackToken:                strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:              betterStackTimeout,
		BetterStackMinLevel:             betterStackMinLevel,
		PyroscopeEnabled:                pyroscopeEnabled,
		PyroscopeServerAddress:          pyroscopeServerAddress,
		PyroscopeAuthToken:              strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:          strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:             pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	PolicySourceStatic = "static"
	PolicySourceFile   = "file"
	PolicySourceRedis  = "redis"
	PolicySourceHTTP   = "http"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parsePolicySource(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case PolicySourceStatic, PolicySourceFile, PolicySourceRedis, PolicySourceHTTP:
		return value, nil
	default:
		return "", fmt.Errorf("invalid POLICY_SOURCE %q: valid values are %s, %s, %s, %s",
			v, PolicySourceStatic, PolicySourceFile, PolicySourceRedis, PolicySourceHTTP)
	}
}
