package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the aossindex configuration shared by all three binaries.
type Config struct {
	AWS       AWSConfig       `yaml:"aws"`
	Index     IndexConfig     `yaml:"index"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Preflight PreflightConfig `yaml:"preflight"`
	Provision ProvisionConfig `yaml:"provision"`
	Stabilize StabilizeConfig `yaml:"stabilize"`
	Callback  CallbackConfig  `yaml:"callback"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AWSConfig holds region and signing settings.
type AWSConfig struct {
	Region         string `yaml:"region"`
	SigningService string `yaml:"signing_service"` // aoss
	HTTPTimeoutSec int    `yaml:"http_timeout_sec"`
}

// IndexConfig holds the default index schema. ResourceProperties may override it per resource.
type IndexConfig struct {
	Dimension          int               `yaml:"dimension"`
	SpaceType          string            `yaml:"space_type"`
	Engine             string            `yaml:"engine"`
	HNSWM              int               `yaml:"hnsw_m"`
	HNSWEFConstruction int               `yaml:"hnsw_ef_construction"`
	MetadataFields     map[string]string `yaml:"metadata_fields"` // empty = open object
}

// BackoffConfig holds an exponential backoff schedule.
type BackoffConfig struct {
	InitialMs  int     `yaml:"initial_ms"`
	Multiplier float64 `yaml:"multiplier"`
	MaxMs      int     `yaml:"max_ms"`
	Jitter     float64 `yaml:"jitter"` // randomization factor in [0, 1)
}

// ReadinessConfig holds collection readiness polling settings.
type ReadinessConfig struct {
	IntervalSec int `yaml:"interval_sec"`
	TimeoutSec  int `yaml:"timeout_sec"`
}

// PreflightConfig holds access propagation probe settings.
type PreflightConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     BackoffConfig `yaml:"backoff"`
}

// ProvisionConfig holds index creation retry settings.
type ProvisionConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     BackoffConfig `yaml:"backoff"`
	// StrictConflict accepts a 400 as "already exists" only when the body says so.
	StrictConflict bool `yaml:"strict_conflict"`
}

// StabilizeConfig holds visibility stabilization settings.
type StabilizeConfig struct {
	IntervalSec         int    `yaml:"interval_sec"`
	RequiredConsecutive int    `yaml:"required_consecutive"`
	MaxWaitSec          int    `yaml:"max_wait_sec"`
	SettleSec           int    `yaml:"settle_sec"`
	QueryProbe          *bool  `yaml:"query_probe"` // default true
	OnTimeout           string `yaml:"on_timeout"`  // "fail" (default) | "proceed"
}

// CallbackConfig holds completion callback settings.
type CallbackConfig struct {
	Retries    int `yaml:"retries"`
	TimeoutSec int `yaml:"timeout_sec"`
	// ReserveSec is carved out of the Lambda deadline so the callback always has time to go out.
	ReserveSec int `yaml:"reserve_sec"`
}

// IngestConfig holds ingestion job settings.
type IngestConfig struct {
	KnowledgeBaseID string `yaml:"knowledge_base_id"`
	DataSourceID    string `yaml:"data_source_id"`
	Bucket          string `yaml:"bucket"`
	Key             string `yaml:"key"`
	BatchSize       int    `yaml:"batch_size"`
}

// RetrievalConfig holds query endpoint settings.
type RetrievalConfig struct {
	KnowledgeBaseID string   `yaml:"knowledge_base_id"`
	TopK            int      `yaml:"top_k"`
	PreviewChars    int      `yaml:"preview_chars"`
	MaxPreviews     int      `yaml:"max_previews"`
	HTTPPort        int      `yaml:"http_port"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`
}

// Load reads configuration from a YAML file by environment name (local, dev, lambda).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func defaultBackoff(b *BackoffConfig, maxMs int) {
	if b.InitialMs <= 0 {
		b.InitialMs = 1000
	}
	if b.Multiplier <= 1 {
		b.Multiplier = 1.6
	}
	if b.MaxMs <= 0 {
		b.MaxMs = maxMs
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.AWS.Region == "" {
		c.AWS.Region = "us-east-1"
	}
	if c.AWS.SigningService == "" {
		c.AWS.SigningService = "aoss"
	}
	if c.AWS.HTTPTimeoutSec <= 0 {
		c.AWS.HTTPTimeoutSec = 30
	}
	if c.Index.Dimension <= 0 {
		c.Index.Dimension = 1024
	}
	if c.Index.SpaceType == "" {
		c.Index.SpaceType = "cosinesimil"
	}
	if c.Index.Engine == "" {
		c.Index.Engine = "faiss"
	}
	if c.Readiness.IntervalSec <= 0 {
		c.Readiness.IntervalSec = 5
	}
	if c.Readiness.TimeoutSec <= 0 {
		c.Readiness.TimeoutSec = 600
	}
	if c.Preflight.MaxAttempts <= 0 {
		c.Preflight.MaxAttempts = 8
	}
	defaultBackoff(&c.Preflight.Backoff, 10000)
	if c.Provision.MaxAttempts <= 0 {
		c.Provision.MaxAttempts = 15
	}
	defaultBackoff(&c.Provision.Backoff, 12000)
	if c.Stabilize.IntervalSec <= 0 {
		c.Stabilize.IntervalSec = 5
	}
	if c.Stabilize.RequiredConsecutive <= 0 {
		c.Stabilize.RequiredConsecutive = 3
	}
	if c.Stabilize.MaxWaitSec <= 0 {
		c.Stabilize.MaxWaitSec = 300
	}
	if c.Stabilize.SettleSec < 0 {
		c.Stabilize.SettleSec = 0
	} else if c.Stabilize.SettleSec == 0 {
		c.Stabilize.SettleSec = 30
	}
	if c.Stabilize.QueryProbe == nil {
		enabled := true
		c.Stabilize.QueryProbe = &enabled
	}
	if c.Stabilize.OnTimeout == "" {
		c.Stabilize.OnTimeout = "fail"
	}
	if c.Callback.Retries <= 0 {
		c.Callback.Retries = 3
	}
	if c.Callback.TimeoutSec <= 0 {
		c.Callback.TimeoutSec = 10
	}
	if c.Callback.ReserveSec <= 0 {
		c.Callback.ReserveSec = 15
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 10
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.PreviewChars <= 0 {
		c.Retrieval.PreviewChars = 200
	}
	if c.Retrieval.MaxPreviews <= 0 {
		c.Retrieval.MaxPreviews = 3
	}
	if c.Retrieval.HTTPPort <= 0 {
		c.Retrieval.HTTPPort = 8080
	}
	if c.Retrieval.ShutdownSec <= 0 {
		c.Retrieval.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Stabilize.OnTimeout {
	case "fail", "proceed":
		// ok
	default:
		return fmt.Errorf("stabilize.on_timeout must be \"fail\" or \"proceed\", got %q", c.Stabilize.OnTimeout)
	}
	for name, b := range map[string]BackoffConfig{
		"preflight.backoff": c.Preflight.Backoff,
		"provision.backoff": c.Provision.Backoff,
	} {
		if b.Jitter < 0 || b.Jitter >= 1 {
			return fmt.Errorf("%s.jitter must be in [0, 1), got %v", name, b.Jitter)
		}
		if b.MaxMs < b.InitialMs {
			return fmt.Errorf("%s.max_ms must be >= initial_ms", name)
		}
	}
	if c.Ingest.BatchSize > 25 {
		return fmt.Errorf("ingest.batch_size must be at most 25, got %d", c.Ingest.BatchSize)
	}
	if c.Retrieval.HTTPPort > 65535 {
		return fmt.Errorf("retrieval.http_port must be between 1 and 65535, got %d", c.Retrieval.HTTPPort)
	}
	return nil
}

// ValidateIngest checks the fields the ingestion job needs.
func (c *Config) ValidateIngest() error {
	var missing []string
	if c.Ingest.KnowledgeBaseID == "" {
		missing = append(missing, "ingest.knowledge_base_id")
	}
	if c.Ingest.DataSourceID == "" {
		missing = append(missing, "ingest.data_source_id")
	}
	if c.Ingest.Bucket == "" {
		missing = append(missing, "ingest.bucket")
	}
	if c.Ingest.Key == "" {
		missing = append(missing, "ingest.key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateRetrieval checks the fields the query endpoint needs.
func (c *Config) ValidateRetrieval() error {
	if c.Retrieval.KnowledgeBaseID == "" {
		return fmt.Errorf("missing required config: retrieval.knowledge_base_id")
	}
	return nil
}

// Duration converts whole seconds to a time.Duration.
func Duration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

// Millis converts milliseconds to a time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Explicit override
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	// 2. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 3. Lambda task root
	if root := os.Getenv("LAMBDA_TASK_ROOT"); root != "" {
		if path := filepath.Join(root, "config", filename); fileExists(path) {
			return path
		}
	}

	// 4. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 5. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
