package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const DefaultEnvFile = "Configuration.env"

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Model         ModelConfig
	Database      DatabaseConfig
	Resources     ResourcesConfig
	Plot          PlotConfig
	Artifacts     ArtifactsConfig
	Sessions      SessionsConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ModelProvider string

const (
	ProviderAzure  ModelProvider = "azure"
	ProviderOpenAI ModelProvider = "openai"
	ProviderGemini ModelProvider = "gemini"
)

type ModelConfig struct {
	Provider          ModelProvider
	APIKey            string
	Endpoint          string
	DeploymentName    string
	APIVersion        string
	Timeout           time.Duration
	CasualTemperature float64
	PlotTemperature   float64
}

type DatabaseConfig struct {
	URI             string
	SchemaName      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	RowLimit        int
}

type ResourcesConfig struct {
	SyntaxPath         string
	DataDictionaryPath string
}

type PlotRunnerKind string

const (
	PlotRunnerProcess  PlotRunnerKind = "process"
	PlotRunnerDocker   PlotRunnerKind = "docker"
	PlotRunnerDisabled PlotRunnerKind = "disabled"
)

type PlotConfig struct {
	Runner      PlotRunnerKind
	PythonPath  string
	DockerImage string
	Timeout     time.Duration
}

type ArtifactsConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// SessionsConfig bounds how long an idle HTTP session and its charts live.
// A zero IdleTTL keeps sessions until they are deleted.
type SessionsConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

// LoadDotEnv loads configuration from a dotenv file layered under the process
// environment. A missing file is not an error; found reports whether it was read.
func LoadDotEnv(serviceName, path string) (cfg Config, found bool, err error) {
	lookup, found, err := DotEnvLookup(path, os.LookupEnv)
	if err != nil {
		return Config{}, false, err
	}
	cfg, err = Load(serviceName, lookup)
	return cfg, found, err
}

func DotEnvLookup(path string, base LookupFunc) (LookupFunc, bool, error) {
	if base == nil {
		base = func(string) (string, bool) { return "", false }
	}
	if strings.TrimSpace(path) == "" {
		return base, false, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, false, nil
		}
		return nil, false, fmt.Errorf("read env file %q: %w", path, err)
	}
	return func(key string) (string, bool) {
		if value, ok := base(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, true, nil
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("ANALYZER_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid ANALYZER_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "ANALYZER_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "ANALYZER_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "ANALYZER_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "ANALYZER_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "ANALYZER_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },

		func() error { return applyProvider(lookup, "ANALYZER_MODEL_PROVIDER", &cfg.Model.Provider) },
		func() error { return applyString(lookup, "MODEL_API_KEY", &cfg.Model.APIKey) },
		func() error { return applyString(lookup, "MODEL_ENDPOINT", &cfg.Model.Endpoint) },
		func() error { return applyString(lookup, "MODEL_DEPLOYMENT_NAME", &cfg.Model.DeploymentName) },
		func() error { return applyString(lookup, "MODEL_API_VERSION", &cfg.Model.APIVersion) },
		func() error { return applyDuration(lookup, "ANALYZER_MODEL_TIMEOUT", &cfg.Model.Timeout) },
		func() error { return applyFloat(lookup, "ANALYZER_CASUAL_TEMPERATURE", &cfg.Model.CasualTemperature) },
		func() error { return applyFloat(lookup, "ANALYZER_PLOT_TEMPERATURE", &cfg.Model.PlotTemperature) },

		func() error { return applyString(lookup, "DATABASE_URI", &cfg.Database.URI) },
		func() error { return applyString(lookup, "ANALYZER_DB_SCHEMA", &cfg.Database.SchemaName) },
		func() error { return applyInt(lookup, "ANALYZER_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "ANALYZER_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error { return applyDuration(lookup, "ANALYZER_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime) },
		func() error { return applyDuration(lookup, "ANALYZER_DB_QUERY_TIMEOUT", &cfg.Database.QueryTimeout) },
		func() error { return applyInt(lookup, "ANALYZER_DB_ROW_LIMIT", &cfg.Database.RowLimit) },

		func() error { return applyString(lookup, "ANALYZER_SYNTAX_PATH", &cfg.Resources.SyntaxPath) },
		func() error {
			return applyString(lookup, "ANALYZER_DATA_DICTIONARY_PATH", &cfg.Resources.DataDictionaryPath)
		},

		func() error { return applyPlotRunner(lookup, "ANALYZER_PLOT_RUNNER", &cfg.Plot.Runner) },
		func() error { return applyString(lookup, "ANALYZER_PLOT_PYTHON", &cfg.Plot.PythonPath) },
		func() error { return applyString(lookup, "ANALYZER_PLOT_IMAGE", &cfg.Plot.DockerImage) },
		func() error { return applyDuration(lookup, "ANALYZER_PLOT_TIMEOUT", &cfg.Plot.Timeout) },

		func() error { return applyBool(lookup, "ANALYZER_ARTIFACTS_ENABLED", &cfg.Artifacts.Enabled) },
		func() error { return applyString(lookup, "ANALYZER_ARTIFACTS_ENDPOINT", &cfg.Artifacts.Endpoint) },
		func() error { return applyString(lookup, "ANALYZER_ARTIFACTS_REGION", &cfg.Artifacts.Region) },
		func() error { return applyString(lookup, "ANALYZER_ARTIFACTS_BUCKET", &cfg.Artifacts.Bucket) },
		func() error { return applyString(lookup, "ANALYZER_ARTIFACTS_ACCESS_KEY", &cfg.Artifacts.AccessKeyID) },
		func() error { return applyString(lookup, "ANALYZER_ARTIFACTS_SECRET_KEY", &cfg.Artifacts.SecretAccessKey) },
		func() error { return applyBool(lookup, "ANALYZER_ARTIFACTS_USE_SSL", &cfg.Artifacts.UseSSL) },
		func() error { return applyString(lookup, "ANALYZER_ARTIFACTS_PREFIX", &cfg.Artifacts.Prefix) },
		func() error {
			return applyBool(lookup, "ANALYZER_ARTIFACTS_AUTO_CREATE_BUCKET", &cfg.Artifacts.AutoCreateBucket)
		},

		func() error { return applyBool(lookup, "ANALYZER_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "ANALYZER_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyDuration(lookup, "ANALYZER_SESSION_IDLE_TTL", &cfg.Sessions.IdleTTL) },
		func() error { return applyDuration(lookup, "ANALYZER_SESSION_SWEEP_INTERVAL", &cfg.Sessions.SweepInterval) },
		func() error { return applyBool(lookup, "ANALYZER_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "ANALYZER_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Database.RowLimit < 0 {
		return Config{}, fmt.Errorf("invalid ANALYZER_DB_ROW_LIMIT: must be >= 0")
	}
	if cfg.Sessions.IdleTTL < 0 || cfg.Sessions.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("invalid session sweep settings: idle ttl must be >= 0 and sweep interval > 0")
	}
	if cfg.Model.PlotTemperature <= 0 {
		return Config{}, fmt.Errorf("invalid ANALYZER_PLOT_TEMPERATURE: plot generation requires a nonzero temperature")
	}
	return cfg, nil
}

// Validate reports missing settings needed to run a chat session.
func (c Config) Validate() error {
	var missing []string
	if c.Model.APIKey == "" {
		missing = append(missing, "MODEL_API_KEY")
	}
	if c.Model.Provider != ProviderGemini && c.Model.Endpoint == "" {
		missing = append(missing, "MODEL_ENDPOINT")
	}
	if c.Model.DeploymentName == "" {
		missing = append(missing, "MODEL_DEPLOYMENT_NAME")
	}
	if c.Model.Provider == ProviderAzure && c.Model.APIVersion == "" {
		missing = append(missing, "MODEL_API_VERSION")
	}
	if c.Database.URI == "" {
		missing = append(missing, "DATABASE_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "analyzer"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Model: ModelConfig{
			Provider:          ProviderAzure,
			APIVersion:        "2024-06-01",
			Timeout:           60 * time.Second,
			CasualTemperature: 0.7,
			PlotTemperature:   0.3,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    30 * time.Second,
			RowLimit:        1000,
		},
		Resources: ResourcesConfig{
			SyntaxPath:         "resources/sintax.txt",
			DataDictionaryPath: "resources/data_dictionary.txt",
		},
		Plot: PlotConfig{
			Runner:      PlotRunnerProcess,
			PythonPath:  "python3",
			DockerImage: "analyzer-plot:latest",
			Timeout:     20 * time.Second,
		},
		Artifacts: ArtifactsConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "analyzer-charts",
			UseSSL:           false,
			AutoCreateBucket: true,
		},
		Sessions: SessionsConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Plot.Runner = PlotRunnerDisabled
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.Plot.Runner = PlotRunnerDocker
		cfg.Artifacts.UseSSL = true
		cfg.Artifacts.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyProvider(lookup LookupFunc, key string, dst *ModelProvider) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	provider := ModelProvider(strings.ToLower(strings.TrimSpace(raw)))
	switch provider {
	case ProviderAzure, ProviderOpenAI, ProviderGemini:
		*dst = provider
		return nil
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
}

func applyPlotRunner(lookup LookupFunc, key string, dst *PlotRunnerKind) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	kind := PlotRunnerKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case PlotRunnerProcess, PlotRunnerDocker, PlotRunnerDisabled:
		*dst = kind
		return nil
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
