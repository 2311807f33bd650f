package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"covidcli/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// DataConfig describes the raw dataset source
type DataConfig struct {
	InputFile string `yaml:"input_file" envconfig:"INPUT_FILE"`
	Format    string `yaml:"format" envconfig:"FORMAT" default:"auto" validate:"oneof=auto csv xlsx"`
}

// PipelineConfig controls the location filter and derived fields
type PipelineConfig struct {
	Mode                    string   `yaml:"mode" envconfig:"MODE" default:"comparative" validate:"oneof=comparative global"`
	Locations               []string `yaml:"locations" envconfig:"LOCATIONS"`
	ExcludeAggregates       []string `yaml:"exclude_aggregates" envconfig:"EXCLUDE_AGGREGATES"`
	AggregateISOPrefix      string   `yaml:"aggregate_iso_prefix" envconfig:"AGGREGATE_ISO_PREFIX" default:"OWID_"`
	DeriveDeathRate         bool     `yaml:"derive_death_rate" envconfig:"DERIVE_DEATH_RATE" default:"true"`
	DeriveVaccinatedPercent bool     `yaml:"derive_vaccinated_percent" envconfig:"DERIVE_VACCINATED_PERCENT" default:"false"`
	WarnRatePerSecond       float64  `yaml:"warn_rate_per_second" envconfig:"WARN_RATE_PER_SECOND" default:"5"`
	WarnBurst               int      `yaml:"warn_burst" envconfig:"WARN_BURST" default:"10"`
}

// AnalyticsConfig controls the downstream reporting computations
type AnalyticsConfig struct {
	RollingWindow     int     `yaml:"rolling_window" envconfig:"ROLLING_WINDOW" default:"7" validate:"min=1"`
	TopN              int     `yaml:"top_n" envconfig:"TOP_N" default:"10" validate:"min=1"`
	VaccinationTarget float64 `yaml:"vaccination_target" envconfig:"VACCINATION_TARGET" default:"70" validate:"gt=0,lte=100"`
	VariantWindowDays int     `yaml:"variant_window_days" envconfig:"VARIANT_WINDOW_DAYS" default:"30" validate:"min=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/covidcli.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"true"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("COVID", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Fill policy defaults for anything still unset
	cfg.applyDefaults()

	// Resolve relative paths
	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Validate paths
	if err := cfg.ValidatePaths(); err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	// Data config
	if envConfig.Data.InputFile == "" {
		envConfig.Data.InputFile = fileConfig.Data.InputFile
	}
	if envConfig.Data.Format == "" {
		envConfig.Data.Format = fileConfig.Data.Format
	}

	// Pipeline config
	if envConfig.Pipeline.Mode == "" {
		envConfig.Pipeline.Mode = fileConfig.Pipeline.Mode
	}
	if len(envConfig.Pipeline.Locations) == 0 {
		envConfig.Pipeline.Locations = fileConfig.Pipeline.Locations
	}
	if len(envConfig.Pipeline.ExcludeAggregates) == 0 {
		envConfig.Pipeline.ExcludeAggregates = fileConfig.Pipeline.ExcludeAggregates
	}
	if envConfig.Pipeline.AggregateISOPrefix == "" {
		envConfig.Pipeline.AggregateISOPrefix = fileConfig.Pipeline.AggregateISOPrefix
	}
	if envConfig.Pipeline.WarnRatePerSecond == 0 {
		envConfig.Pipeline.WarnRatePerSecond = fileConfig.Pipeline.WarnRatePerSecond
	}
	if envConfig.Pipeline.WarnBurst == 0 {
		envConfig.Pipeline.WarnBurst = fileConfig.Pipeline.WarnBurst
	}

	// Analytics config
	if envConfig.Analytics.RollingWindow == 0 {
		envConfig.Analytics.RollingWindow = fileConfig.Analytics.RollingWindow
	}
	if envConfig.Analytics.TopN == 0 {
		envConfig.Analytics.TopN = fileConfig.Analytics.TopN
	}
	if envConfig.Analytics.VaccinationTarget == 0 {
		envConfig.Analytics.VaccinationTarget = fileConfig.Analytics.VaccinationTarget
	}
	if envConfig.Analytics.VariantWindowDays == 0 {
		envConfig.Analytics.VariantWindowDays = fileConfig.Analytics.VariantWindowDays
	}

	// Logging config
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.Format == "" {
		envConfig.Logging.Format = fileConfig.Logging.Format
	}
	if envConfig.Logging.Output == "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	// Paths config
	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.LogsDir == "" {
		envConfig.Paths.LogsDir = fileConfig.Paths.LogsDir
	}

	return envConfig
}

// applyDefaults fills policy lists that are empty after env and file layers
func (c *Config) applyDefaults() {
	if len(c.Pipeline.ExcludeAggregates) == 0 {
		c.Pipeline.ExcludeAggregates = append([]string(nil), DefaultAggregateLocations...)
	}
	if c.Pipeline.Mode == "comparative" && len(c.Pipeline.Locations) == 0 {
		c.Pipeline.Locations = append([]string(nil), DefaultLocationAllowList...)
	}
}

// resolvePaths sets up the executable directory and the default input file
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	c.Paths.ExecutableDir = paths.ExecutableDir

	if c.Data.InputFile == "" {
		c.Data.InputFile = paths.RawDataset
	}

	return nil
}

// ValidatePaths validates that critical paths exist or can be created
func (c *Config) ValidatePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	paths.LogPathResolution()

	return nil
}

// GetDataDir returns the resolved data directory path
func (c *Config) GetDataDir() string {
	paths, err := GetPaths()
	if err != nil {
		if filepath.IsAbs(c.Paths.DataDir) {
			return c.Paths.DataDir
		}
		return filepath.Join(c.Paths.ExecutableDir, c.Paths.DataDir)
	}
	return paths.DataDir
}

// GetLogsDir returns the resolved logs directory path
func (c *Config) GetLogsDir() string {
	paths, err := GetPaths()
	if err != nil {
		if filepath.IsAbs(c.Paths.LogsDir) {
			return c.Paths.LogsDir
		}
		return filepath.Join(c.Paths.ExecutableDir, c.Paths.LogsDir)
	}
	return paths.LogsDir
}

// GetInputFile returns the resolved raw dataset path
func (c *Config) GetInputFile() string {
	if filepath.IsAbs(c.Data.InputFile) {
		return c.Data.InputFile
	}
	return filepath.Join(c.Paths.ExecutableDir, c.Data.InputFile)
}

// Filter builds the location filter policy for the configured mode.
// Comparative mode keeps the configured allow-list; global mode keeps every
// real country and relies on the aggregate exclusions alone.
func (c *Config) Filter() domain.RecordFilter {
	filter := domain.RecordFilter{
		ExcludeAggregates:  c.Pipeline.ExcludeAggregates,
		AggregateISOPrefix: c.Pipeline.AggregateISOPrefix,
	}
	if c.Pipeline.Mode == "comparative" {
		filter.AllowList = c.Pipeline.Locations
	}
	return filter
}

var structValidator = newValidator()

// newValidator builds the struct validator using yaml tag names in messages
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	tag := err.Tag()
	param := err.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Replace(param, " ", ", ", -1))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			messages := make([]string, 0, len(fieldErrors))
			for _, fe := range fieldErrors {
				messages = append(messages, formatValidationError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
		}
		return err
	}

	if c.Pipeline.WarnRatePerSecond <= 0 {
		return fmt.Errorf("pipeline warn rate must be positive")
	}
	if c.Pipeline.WarnBurst < 1 {
		return fmt.Errorf("pipeline warn burst must be at least 1")
	}

	// Logging always uses JSON with dual output
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Format: "auto",
		},
		Pipeline: PipelineConfig{
			Mode:                    "comparative",
			Locations:               append([]string(nil), DefaultLocationAllowList...),
			ExcludeAggregates:       append([]string(nil), DefaultAggregateLocations...),
			AggregateISOPrefix:      AggregateISOPrefix,
			DeriveDeathRate:         true,
			DeriveVaccinatedPercent: false,
			WarnRatePerSecond:       DefaultWarnRatePerSecond,
			WarnBurst:               DefaultWarnBurst,
		},
		Analytics: AnalyticsConfig{
			RollingWindow:     DefaultRollingWindow,
			TopN:              DefaultTopN,
			VaccinationTarget: DefaultVaccinationTarget,
			VariantWindowDays: DefaultVariantWindowDays,
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			Output:      "both",
			FilePath:    DefaultLogFile,
			Development: true,
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
	}
}
