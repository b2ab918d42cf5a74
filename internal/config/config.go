package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Pipeline *pipelineConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"docflow"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"DOCFLOW_ADDRESS" default:":3443"`
	MetricsAddress  string `envconfig:"DOCFLOW_METRICS_ADDRESS" default:":8080"`
	BaseUrl         string `envconfig:"DOCFLOW_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"DOCFLOW_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"DOCFLOW_MIGRATIONS_FOLDER" default:""`
}

// pipelineConfig holds the resolution pipeline policy. The confidence
// thresholds split the [0,100] score space into three bands:
//
//	score >= AutoAssignThreshold            -> auto-assign, file job completed
//	ReviewThreshold <= score < AutoAssign   -> routed to manual review
//	score < ReviewThreshold                 -> no confident match, manual review
type pipelineConfig struct {
	Workers             int           `envconfig:"DOCFLOW_WORKERS" default:"4"`
	MaxRetries          int           `envconfig:"DOCFLOW_MAX_RETRIES" default:"3"`
	BackoffBase         time.Duration `envconfig:"DOCFLOW_BACKOFF_BASE" default:"2s"`
	BackoffCap          time.Duration `envconfig:"DOCFLOW_BACKOFF_CAP" default:"60s"`
	PollInterval        time.Duration `envconfig:"DOCFLOW_POLL_INTERVAL" default:"500ms"`
	ResolveTimeout      time.Duration `envconfig:"DOCFLOW_RESOLVE_TIMEOUT" default:"30s"`
	AutoAssignThreshold int           `envconfig:"DOCFLOW_AUTO_ASSIGN_THRESHOLD" default:"90"`
	ReviewThreshold     int           `envconfig:"DOCFLOW_REVIEW_THRESHOLD" default:"50"`
	// MaxDateTolerance caps the per-request date tolerance window (days).
	MaxDateTolerance int    `envconfig:"DOCFLOW_MAX_DATE_TOLERANCE" default:"7"`
	Scorer           string `envconfig:"DOCFLOW_SCORER" default:"heuristic"`
	ScorerModel      string `envconfig:"DOCFLOW_SCORER_MODEL" default:""`
	ScorerAPIKey     string `envconfig:"DOCFLOW_SCORER_API_KEY" default:""`
	ScorerServerURL  string `envconfig:"DOCFLOW_SCORER_SERVER_URL" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a configuration without reading the environment.
// Used by tests that run against an in-memory sqlite store.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("docflow_test", cfg); err != nil {
		panic(err)
	}
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = ":memory:"
	return cfg
}
