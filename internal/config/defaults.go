package config

import "time"

const (
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix = "/api/v1"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultStatementTimeout  = 30 * time.Second
	DefaultPoolMin           = 1
	DefaultPoolMax           = 10

	DefaultMaxRows      = 10000
	DefaultAllowWrite   = false
	DefaultAllowExplain = false

	DefaultSchemaTTLSeconds = 3600

	DefaultMaxRetries       = 3
	DefaultBaseDelayMs      = 1000
	DefaultBackoffFactor    = 2.0
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldownS = 60
	DefaultRateLimitRPS     = 2.0
	DefaultRateLimitBurst   = 4

	DefaultMetricsPort       = 9090
	DefaultShutdownDeadlineS = 10

	DefaultRequestDeadline   = 60 * time.Second
	DefaultSchemaSubBudget   = 10 * time.Second
	DefaultGenerateSubBudget = 15 * time.Second
	DefaultExecuteSubBudget  = 30 * time.Second
	DefaultJudgeSubBudget    = 10 * time.Second

	DefaultRemediationBudget = 1

	DefaultLLMModel        = "claude-3-5-sonnet-latest"
	DefaultLLMMaxTokens    = 2000
	DefaultLLMTemperature  = 0.0
	DefaultLLMTimeoutS     = 30
	DefaultJudgeSampleRows = 20

	DefaultAPIPrefixHeader = "X-API-Key"
	DefaultCORSMaxAge      = 300
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

// DefaultBlockedFunctionsPostgres is the baseline blacklist for the
// PostgreSQL dialect: sleep-like, filesystem, network/large-object, and
// privilege-inspection functions.
var DefaultBlockedFunctionsPostgres = []string{
	"pg_sleep", "pg_sleep_for", "pg_sleep_until",
	"pg_read_file", "pg_read_binary_file", "pg_write_file", "pg_ls_dir", "pg_stat_file",
	"lo_import", "lo_export",
	"dblink", "dblink_connect", "pg_read_server_files",
	"current_setting", "set_config",
}

// DefaultBlockedFunctionsMySQL mirrors the Postgres blacklist for MySQL's
// equivalent dangerous surface.
var DefaultBlockedFunctionsMySQL = []string{
	"sleep", "benchmark",
	"load_file",
	"get_lock", "release_lock", "master_pos_wait",
	"sys_eval",
}

// BlockedFunctionsFor returns configured if the operator set an explicit
// blacklist, otherwise the dialect's baseline default.
func BlockedFunctionsFor(dialect string, configured []string) []string {
	if configured != nil {
		return configured
	}
	if dialect == "mysql" {
		return DefaultBlockedFunctionsMySQL
	}
	return DefaultBlockedFunctionsPostgres
}
