package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flavienrj/latseq-go/pkg/errors"

	"gopkg.in/yaml.v2"
)

// Config is the top-level engine configuration, loaded from YAML and then
// overlaid with environment variable overrides.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Engine   EngineConfig   `yaml:"engine"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Sinks    SinksConfig    `yaml:"sinks"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// EngineConfig overrides the reconstruction windows and the declared point
// set. Zero values mean "use the built-in default".
type EngineConfig struct {
	JourneyWindow float64        `yaml:"journey_window"`
	ForkWindow    float64        `yaml:"fork_window"`
	Points        PointSetConfig `yaml:"points"`
}

type PointSetConfig struct {
	InD  []string `yaml:"in_d"`
	OutD []string `yaml:"out_d"`
	InU  []string `yaml:"in_u"`
	OutU []string `yaml:"out_u"`
}

func (p PointSetConfig) empty() bool {
	return len(p.InD) == 0 && len(p.OutD) == 0 && len(p.InU) == 0 && len(p.OutU) == 0
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

type SnapshotConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"` // "zstd" or "none"
}

type SinksConfig struct {
	Kafka     KafkaSinkConfig     `yaml:"kafka"`
	LocalFile LocalFileSinkConfig `yaml:"local_file"`
}

type KafkaSinkConfig struct {
	Enabled bool       `yaml:"enabled"`
	Brokers []string   `yaml:"brokers"`
	Topic   string     `yaml:"topic"`
	SASL    SASLConfig `yaml:"sasl"`
}

type SASLConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Mechanism string `yaml:"mechanism"` // SCRAM-SHA-256 or SCRAM-SHA-512
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type LocalFileSinkConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Directory   string `yaml:"directory"`
	Compression string `yaml:"compression"`
}

// LoadConfig loads configuration from an optional YAML file, applies
// defaults for anything left unset, then layers environment overrides on
// top, and validates the result before returning it.
func LoadConfig(configFile string) (*Config, error) {
	config := &Config{}

	if configFile != "" {
		if err := loadConfigFile(configFile, config); err != nil {
			fmt.Printf("Warning: failed to load config file %s: %v\n", configFile, err)
		} else {
			fmt.Printf("Loaded configuration from file: %s\n", configFile)
		}
	}

	applyDefaults(config)
	applyEnvironmentOverrides(config)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Println("✓ Configuration validation passed")
	return config, nil
}

func loadConfigFile(filename string, config *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.App.Name == "" {
		config.App.Name = "latseq"
	}
	if config.App.Version == "" {
		config.App.Version = "v0.1.0"
	}
	if config.App.LogLevel == "" {
		config.App.LogLevel = "info"
	}
	if config.App.LogFormat == "" {
		config.App.LogFormat = "text"
	}

	if config.Engine.JourneyWindow == 0 {
		config.Engine.JourneyWindow = 0.050
	}
	if config.Engine.ForkWindow == 0 {
		config.Engine.ForkWindow = 0.002
	}
	if config.Engine.Points.empty() {
		config.Engine.Points = PointSetConfig{
			InD:  []string{"ip", "rlc.tx.am"},
			OutD: []string{"phy.out.proc"},
			InU:  []string{"phy.in.proc"},
			OutU: []string{"ip"},
		}
	}

	if config.Metrics.Port == 0 {
		config.Metrics.Port = 9090
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}
	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = "latseq"
	}

	if config.Snapshot.Compression == "" {
		config.Snapshot.Compression = "zstd"
	}

	if config.Sinks.Kafka.Topic == "" {
		config.Sinks.Kafka.Topic = "latseq.journeys"
	}
	if config.Sinks.LocalFile.Compression == "" {
		config.Sinks.LocalFile.Compression = "none"
	}
}

func applyEnvironmentOverrides(config *Config) {
	config.App.LogLevel = getEnvString("LATSEQ_LOG_LEVEL", config.App.LogLevel)
	config.App.LogFormat = getEnvString("LATSEQ_LOG_FORMAT", config.App.LogFormat)

	config.Engine.JourneyWindow = getEnvFloat("LATSEQ_JOURNEY_WINDOW", config.Engine.JourneyWindow)
	config.Engine.ForkWindow = getEnvFloat("LATSEQ_FORK_WINDOW", config.Engine.ForkWindow)

	config.Metrics.Enabled = getEnvBool("LATSEQ_METRICS_ENABLED", config.Metrics.Enabled)
	config.Metrics.Port = getEnvInt("LATSEQ_METRICS_PORT", config.Metrics.Port)

	config.Snapshot.Enabled = getEnvBool("LATSEQ_SNAPSHOT_ENABLED", config.Snapshot.Enabled)
	config.Snapshot.Path = getEnvString("LATSEQ_SNAPSHOT_PATH", config.Snapshot.Path)

	config.Sinks.Kafka.Enabled = getEnvBool("LATSEQ_KAFKA_ENABLED", config.Sinks.Kafka.Enabled)
	if brokers := getEnvString("LATSEQ_KAFKA_BROKERS", ""); brokers != "" {
		config.Sinks.Kafka.Brokers = strings.Split(brokers, ",")
	}
	config.Sinks.Kafka.Topic = getEnvString("LATSEQ_KAFKA_TOPIC", config.Sinks.Kafka.Topic)
	if user := getEnvString("LATSEQ_KAFKA_SASL_USER", ""); user != "" {
		config.Sinks.Kafka.SASL.Enabled = true
		config.Sinks.Kafka.SASL.Username = user
		config.Sinks.Kafka.SASL.Password = getEnvString("LATSEQ_KAFKA_SASL_PASSWORD", "")
	}

	config.Sinks.LocalFile.Enabled = getEnvBool("LATSEQ_LOCAL_FILE_ENABLED", config.Sinks.LocalFile.Enabled)
	config.Sinks.LocalFile.Directory = getEnvString("LATSEQ_LOCAL_FILE_DIRECTORY", config.Sinks.LocalFile.Directory)
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// ValidateConfig performs comprehensive configuration validation, collecting
// every violation instead of stopping at the first.
func ValidateConfig(config *Config) error {
	v := &ConfigValidator{config: config}
	return v.Validate()
}

type ConfigValidator struct {
	config *Config
	errs   []error
}

func (v *ConfigValidator) Validate() error {
	v.validateApp()
	v.validateEngine()
	v.validateMetrics()
	v.validateSnapshot()
	v.validateSinks()

	if len(v.errs) > 0 {
		return v.buildValidationError()
	}
	return nil
}

func (v *ConfigValidator) addError(component, operation, message string) {
	err := errors.ConfigInvalid(operation, message).WithMetadata("component", component)
	v.errs = append(v.errs, err)
}

func (v *ConfigValidator) validateApp() {
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[v.config.App.LogLevel] {
		v.addError("app", "validate_log_level", fmt.Sprintf("invalid log level: %s", v.config.App.LogLevel))
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[v.config.App.LogFormat] {
		v.addError("app", "validate_log_format", fmt.Sprintf("invalid log format: %s", v.config.App.LogFormat))
	}
}

func (v *ConfigValidator) validateEngine() {
	if v.config.Engine.JourneyWindow <= 0 {
		v.addError("engine", "validate_journey_window", "journey_window must be positive")
	}
	if v.config.Engine.ForkWindow <= 0 {
		v.addError("engine", "validate_fork_window", "fork_window must be positive")
	}
	if v.config.Engine.ForkWindow > v.config.Engine.JourneyWindow {
		v.addError("engine", "validate_windows", "fork_window must not exceed journey_window")
	}
	if len(v.config.Engine.Points.InD) == 0 && len(v.config.Engine.Points.InU) == 0 {
		v.addError("engine", "validate_points", "at least one input point must be declared in either direction")
	}
	if len(v.config.Engine.Points.OutD) == 0 && len(v.config.Engine.Points.OutU) == 0 {
		v.addError("engine", "validate_points", "at least one output point must be declared in either direction")
	}
}

func (v *ConfigValidator) validateMetrics() {
	if !v.config.Metrics.Enabled {
		return
	}
	if v.config.Metrics.Port <= 0 || v.config.Metrics.Port > 65535 {
		v.addError("metrics", "validate_port", fmt.Sprintf("invalid metrics port: %d", v.config.Metrics.Port))
	}
	if v.config.Metrics.Path == "" {
		v.addError("metrics", "validate_path", "metrics path cannot be empty when enabled")
	}
}

func (v *ConfigValidator) validateSnapshot() {
	if !v.config.Snapshot.Enabled {
		return
	}
	if v.config.Snapshot.Path == "" {
		v.addError("snapshot", "validate_path", "snapshot path cannot be empty when enabled")
	}
	validCompression := map[string]bool{"zstd": true, "none": true}
	if !validCompression[v.config.Snapshot.Compression] {
		v.addError("snapshot", "validate_compression", fmt.Sprintf("invalid snapshot compression: %s", v.config.Snapshot.Compression))
	}
}

func (v *ConfigValidator) validateSinks() {
	if v.config.Sinks.Kafka.Enabled {
		if len(v.config.Sinks.Kafka.Brokers) == 0 {
			v.addError("kafka_sink", "validate_brokers", "brokers cannot be empty when enabled")
		}
		if v.config.Sinks.Kafka.Topic == "" {
			v.addError("kafka_sink", "validate_topic", "topic cannot be empty when enabled")
		}
		if v.config.Sinks.Kafka.SASL.Enabled {
			validMechanisms := map[string]bool{"SCRAM-SHA-256": true, "SCRAM-SHA-512": true}
			if !validMechanisms[v.config.Sinks.Kafka.SASL.Mechanism] {
				v.addError("kafka_sink", "validate_sasl_mechanism", fmt.Sprintf("invalid SASL mechanism: %s", v.config.Sinks.Kafka.SASL.Mechanism))
			}
			if v.config.Sinks.Kafka.SASL.Username == "" {
				v.addError("kafka_sink", "validate_sasl_username", "SASL username cannot be empty when enabled")
			}
		}
	}

	if v.config.Sinks.LocalFile.Enabled {
		if v.config.Sinks.LocalFile.Directory == "" {
			v.addError("local_file_sink", "validate_directory", "directory cannot be empty when enabled")
		}
		validCompression := map[string]bool{"none": true, "gzip": true, "zstd": true, "snappy": true, "lz4": true}
		if !validCompression[v.config.Sinks.LocalFile.Compression] {
			v.addError("local_file_sink", "validate_compression", fmt.Sprintf("invalid compression: %s", v.config.Sinks.LocalFile.Compression))
		}
	}
}

func (v *ConfigValidator) buildValidationError() error {
	if len(v.errs) == 1 {
		return v.errs[0]
	}
	var messages []string
	for _, err := range v.errs {
		messages = append(messages, err.Error())
	}
	return errors.ConfigInvalid("validate", fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; ")))
}
