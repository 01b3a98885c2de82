package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig describes one registered database.
type DatabaseConfig struct {
	Name              string `json:"name"`
	Dialect           string `json:"dialect"` // "postgres" | "mysql"
	URI               string `json:"uri"`
	PoolMin           int    `json:"pool_min"`
	PoolMax           int    `json:"pool_max"`
	StatementTimeoutS int    `json:"statement_timeout_s"`
	RowCap            int    `json:"row_cap"`
}

type LLMConfig struct {
	Model           string  `json:"model"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	TimeoutS        int     `json:"timeout_s"`
	APIKey          string  `json:"api_key"`
	BaseURL         string  `json:"base_url"`
	JudgeEnabled    bool    `json:"judge_enabled"`
	JudgeSampleRows int     `json:"judge_sample_rows"`
}

type SecurityConfig struct {
	AllowWrite       bool     `json:"allow_write"`
	BlockedFunctions []string `json:"blocked_functions"`
	MaxRows          int      `json:"max_rows"`
	AllowExplain     bool     `json:"allow_explain"`
	AllowedTables    []string `json:"allowed_tables"`
	MaskPII          bool     `json:"mask_pii"`
	SensitiveColumns []string `json:"sensitive_columns"`
}

type CacheConfig struct {
	SchemaTTLSeconds int  `json:"schema_ttl_s"`
	RefreshBackground bool `json:"refresh_background"`
}

type ResilienceConfig struct {
	MaxRetries        int     `json:"max_retries"`
	BaseDelayMs       int     `json:"base_delay_ms"`
	Backoff           float64 `json:"backoff"`
	BreakerThreshold  int     `json:"breaker_threshold"`
	BreakerCooldownS  int     `json:"breaker_cooldown_s"`
	RateLimitRPS      float64 `json:"rate_limit_rps"`
	RateLimitBurst    int     `json:"rate_limit_burst"`
}

type ObservabilityConfig struct {
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	MetricsPort int    `json:"metrics_port"`
}

type ShutdownConfig struct {
	DeadlineS int `json:"deadline_s"`
}

// Config is the top-level configuration for the gateway.
type Config struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	APIPrefix   string `json:"api_prefix"`

	CORSOrigins []string `json:"cors_origins"`

	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	Databases    []DatabaseConfig    `json:"databases"`
	LLM          LLMConfig           `json:"llm"`
	Security     SecurityConfig      `json:"security"`
	Cache        CacheConfig         `json:"cache"`
	Resilience   ResilienceConfig    `json:"resilience"`
	Observability ObservabilityConfig `json:"observability"`
	Shutdown     ShutdownConfig      `json:"shutdown"`

	AuditLogPath       string `json:"audit_log_path"`
	EnableAuditLogging bool   `json:"enable_audit_logging"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		Environment:        DefaultEnvironment,
		APIPrefix:          DefaultAPIPrefix,
		CORSOrigins:        DefaultCORSOrigins,
		APIKeyHeader:       DefaultAPIPrefixHeader,
		EnableAuth:         false,
		RateLimitPerMinute: 60,
		LLM: LLMConfig{
			Model:           DefaultLLMModel,
			MaxTokens:       DefaultLLMMaxTokens,
			Temperature:     DefaultLLMTemperature,
			TimeoutS:        DefaultLLMTimeoutS,
			JudgeEnabled:    true,
			JudgeSampleRows: DefaultJudgeSampleRows,
		},
		Security: SecurityConfig{
			AllowWrite:       DefaultAllowWrite,
			BlockedFunctions: nil, // nil means "use dialect default", see BlockedFunctionsFor
			MaxRows:          DefaultMaxRows,
			AllowExplain:     DefaultAllowExplain,
		},
		Cache: CacheConfig{
			SchemaTTLSeconds:  DefaultSchemaTTLSeconds,
			RefreshBackground: true,
		},
		Resilience: ResilienceConfig{
			MaxRetries:       DefaultMaxRetries,
			BaseDelayMs:      DefaultBaseDelayMs,
			Backoff:          DefaultBackoffFactor,
			BreakerThreshold: DefaultBreakerThreshold,
			BreakerCooldownS: DefaultBreakerCooldownS,
			RateLimitRPS:     DefaultRateLimitRPS,
			RateLimitBurst:   DefaultRateLimitBurst,
		},
		Observability: ObservabilityConfig{
			LogLevel:    DefaultLogLevel,
			LogFormat:   DefaultLogFormat,
			MetricsPort: DefaultMetricsPort,
		},
		Shutdown: ShutdownConfig{DeadlineS: DefaultShutdownDeadlineS},
	}

	if path := getEnv("DBGATEWAY_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("DBGATEWAY_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("DBGATEWAY_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("DBGATEWAY_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("DBGATEWAY_LOG_LEVEL", ""); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := getEnv("DBGATEWAY_LOG_FORMAT", ""); v != "" {
		cfg.Observability.LogFormat = v
	}
	if v := getEnv("DBGATEWAY_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := getEnv("LLM_MODEL", ""); v != "" {
		cfg.LLM.Model = v
	}
	if v := getEnv("SECURITY_ALLOW_WRITE", ""); v != "" {
		cfg.Security.AllowWrite = v == "true" || v == "1"
	}
	if v := getEnv("SECURITY_BLOCKED_FUNCTIONS", ""); v != "" {
		cfg.Security.BlockedFunctions = strings.Split(v, ",")
	}
	if v := getEnv("SECURITY_MAX_ROWS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.MaxRows = n
		}
	}
	if v := getEnv("SECURITY_ALLOW_EXPLAIN", ""); v != "" {
		cfg.Security.AllowExplain = v == "true" || v == "1"
	}
	if v := getEnv("SECURITY_MASK_PII", ""); v != "" {
		cfg.Security.MaskPII = v == "true" || v == "1"
	}
	if v := getEnv("CACHE_SCHEMA_TTL_S", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.SchemaTTLSeconds = n
		}
	}
	if v := getEnv("RESILIENCE_MAX_RETRIES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resilience.MaxRetries = n
		}
	}
	if v := getEnv("RESILIENCE_BREAKER_THRESHOLD", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resilience.BreakerThreshold = n
		}
	}
	if v := getEnv("RESILIENCE_BREAKER_COOLDOWN_S", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resilience.BreakerCooldownS = n
		}
	}
	if v := getEnv("RESILIENCE_RATE_LIMIT_RPS", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Resilience.RateLimitRPS = f
		}
	}
	if v := getEnv("SHUTDOWN_DEADLINE_S", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Shutdown.DeadlineS = n
		}
	}
	if v := getEnv("DBGATEWAY_AUDIT_LOG", ""); v != "" {
		cfg.AuditLogPath = v
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
