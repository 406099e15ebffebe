package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_BetterStackRequiresEndpointWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when BETTERSTACK_ENABLED=true without BETTERSTACK_ENDPOINT")
	}
}

func TestLoad_BetterStackConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "s1765114.eu-fsn-3.betterstackdata.com")
	t.Setenv("BETTERSTACK_TOKEN", "token-123")
	t.Setenv("BETTERSTACK_TIMEOUT", "4s")
	t.Setenv("BETTERSTACK_MIN_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.BetterStackEnabled {
		t.Fatalf("expected BetterStackEnabled=true")
	}
	if cfg.BetterStackEndpoint != "s1765114.eu-fsn-3.betterstackdata.com" {
		t.Fatalf("unexpected BetterStackEndpoint: %q", cfg.BetterStackEndpoint)
	}
	if cfg.BetterStackToken != "token-123" {
		t.Fatalf("unexpected BetterStackToken")
	}
	if cfg.BetterStackTimeout != 4*time.Second {
		t.Fatalf("unexpected BetterStackTimeout: %s", cfg.BetterStackTimeout)
	}
	if cfg.BetterStackMinLevel.String() != "warn" {
		t.Fatalf("unexpected BetterStackMinLevel: %s", cfg.BetterStackMinLevel.String())
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "faultline-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "faultline-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
			t.Fatalf("unexpected first CORS origin: %s", cfg.CORSAllowedOrigins[0])
		}
		if cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected second CORS origin: %s", cfg.CORSAllowedOrigins[1])
		}
	})
}

func TestLoad_DBConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("disabled by default", func(t *testing.T) {
		t.Setenv("DB_ENABLED", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.DBEnabled {
			t.Fatalf("expected DBEnabled=false by default")
		}
		if !cfg.DBDisablePreparedBinary {
			t.Fatalf("expected DBDisablePreparedBinary=true by default")
		}
	})

	t.Run("enabled requires url", func(t *testing.T) {
		t.Setenv("DB_ENABLED", "true")
		t.Setenv("DB_URL", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when DB_ENABLED=true without DB_URL")
		}
	})

	t.Run("invalid prepared binary flag", func(t *testing.T) {
		t.Setenv("DB_ENABLED", "false")
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
		}
	})
}

func TestLoad_AuditRetentionParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("AUDIT_RETENTION", "")
		t.Setenv("AUDIT_RETENTION_SCHEDULE", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.AuditRetention != 720*time.Hour {
			t.Fatalf("unexpected default audit retention: %s", cfg.AuditRetention)
		}
		if cfg.AuditRetentionSchedule != "@hourly" {
			t.Fatalf("unexpected default audit retention schedule: %q", cfg.AuditRetentionSchedule)
		}
	})

	t.Run("invalid retention", func(t *testing.T) {
		t.Setenv("AUDIT_RETENTION", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid AUDIT_RETENTION")
		}
	})
}

func TestLoad_PolicySourceParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("static by default", func(t *testing.T) {
		t.Setenv("POLICY_SOURCE", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.PolicySource != PolicySourceStatic {
			t.Fatalf("unexpected default policy source: %q", cfg.PolicySource)
		}
	})

	t.Run("invalid source rejected", func(t *testing.T) {
		t.Setenv("POLICY_SOURCE", "consul")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid POLICY_SOURCE")
		}
	})

	t.Run("file requires path", func(t *testing.T) {
		t.Setenv("POLICY_SOURCE", "file")
		t.Setenv("POLICY_FILE_PATH", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when POLICY_SOURCE=file without POLICY_FILE_PATH")
		}
	})

	t.Run("redis requires addr", func(t *testing.T) {
		t.Setenv("POLICY_SOURCE", "redis")
		t.Setenv("POLICY_REDIS_ADDR", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when POLICY_SOURCE=redis without POLICY_REDIS_ADDR")
		}
	})

	t.Run("http requires url", func(t *testing.T) {
		t.Setenv("POLICY_SOURCE", "http")
		t.Setenv("POLICY_HTTP_URL", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when POLICY_SOURCE=http without POLICY_HTTP_URL")
		}
	})

	t.Run("redis with values", func(t *testing.T) {
		t.Setenv("POLICY_SOURCE", "redis")
		t.Setenv("POLICY_REDIS_ADDR", "localhost:6379")
		t.Setenv("POLICY_REDIS_DB", "2")
		t.Setenv("POLICY_REDIS_KEY", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.PolicyRedisAddr != "localhost:6379" {
			t.Fatalf("unexpected redis addr: %q", cfg.PolicyRedisAddr)
		}
		if cfg.PolicyRedisDB != 2 {
			t.Fatalf("unexpected redis db: %d", cfg.PolicyRedisDB)
		}
		if cfg.PolicyRedisKey != "faultline:policy" {
			t.Fatalf("unexpected default redis key: %q", cfg.PolicyRedisKey)
		}
	})
}

func TestLoad_AlertWebhookParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("disabled by default", func(t *testing.T) {
		t.Setenv("ALERT_WEBHOOK_ENABLED", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.AlertWebhookEnabled {
			t.Fatalf("expected AlertWebhookEnabled=false by default")
		}
		if cfg.AlertPoolSize != 8 {
			t.Fatalf("unexpected default alert pool size: %d", cfg.AlertPoolSize)
		}
	})

	t.Run("enabled requires url", func(t *testing.T) {
		t.Setenv("ALERT_WEBHOOK_ENABLED", "true")
		t.Setenv("ALERT_WEBHOOK_URL", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when ALERT_WEBHOOK_ENABLED=true without ALERT_WEBHOOK_URL")
		}
	})

	t.Run("enabled with values", func(t *testing.T) {
		t.Setenv("ALERT_WEBHOOK_ENABLED", "true")
		t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.example.com/faultline")
		t.Setenv("ALERT_WEBHOOK_TIMEOUT", "5s")
		t.Setenv("ALERT_WEBHOOK_RETRY_MAX", "2")
		t.Setenv("ALERT_POOL_SIZE", "4")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.AlertWebhookURL != "https://hooks.example.com/faultline" {
			t.Fatalf("unexpected webhook url: %q", cfg.AlertWebhookURL)
		}
		if cfg.AlertWebhookTimeout != 5*time.Second {
			t.Fatalf("unexpected webhook timeout: %s", cfg.AlertWebhookTimeout)
		}
		if cfg.AlertWebhookRetryMax != 2 {
			t.Fatalf("unexpected webhook retry max: %d", cfg.AlertWebhookRetryMax)
		}
		if cfg.AlertPoolSize != 4 {
			t.Fatalf("unexpected alert pool size: %d", cfg.AlertPoolSize)
		}
	})

	t.Run("negative retry max rejected", func(t *testing.T) {
		t.Setenv("ALERT_WEBHOOK_ENABLED", "false")
		t.Setenv("ALERT_WEBHOOK_RETRY_MAX", "-1")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for negative ALERT_WEBHOOK_RETRY_MAX")
		}
	})
}

func TestLoad_DegradationAndOverviewParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DEGRADATION_EVAL_INTERVAL", "")
		t.Setenv("DEGRADATION_RECOVERY_CYCLES", "")
		t.Setenv("OVERVIEW_CACHE_TTL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.DegradationEvalInterval != 10*time.Second {
			t.Fatalf("unexpected default eval interval: %s", cfg.DegradationEvalInterval)
		}
		if cfg.DegradationRecoveryCycles != 3 {
			t.Fatalf("unexpected default recovery cycles: %d", cfg.DegradationRecoveryCycles)
		}
		if cfg.OverviewCacheTTL != 2*time.Second {
			t.Fatalf("unexpected default overview cache ttl: %s", cfg.OverviewCacheTTL)
		}
	})

	t.Run("zero recovery cycles rejected", func(t *testing.T) {
		t.Setenv("DEGRADATION_RECOVERY_CYCLES", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for DEGRADATION_RECOVERY_CYCLES=0")
		}
	})

	t.Run("invalid eval interval", func(t *testing.T) {
		t.Setenv("DEGRADATION_RECOVERY_CYCLES", "3")
		t.Setenv("DEGRADATION_EVAL_INTERVAL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DEGRADATION_EVAL_INTERVAL")
		}
	})
}

func TestLoad_OperatorTokenTrimmed(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("OPERATOR_TOKEN", "  secret-token  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OperatorToken != "secret-token" {
		t.Fatalf("unexpected operator token: %q", cfg.OperatorToken)
	}
}
