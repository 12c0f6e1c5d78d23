package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by the loader.
const (
	// EnvConfigPath selects the configuration file.
	EnvConfigPath = "MQTTLAUNCHERCONFIG"

	// DefaultConfigPath is used when EnvConfigPath is unset.
	DefaultConfigPath = "launcher.conf"
)

// Fixed protocol settings.
const (
	// DefaultQoS is used for every subscription and report (exactly once).
	DefaultQoS = 2

	// DefaultReconnectDelay is the pause after the broker drops the session.
	DefaultReconnectDelay = 10 * time.Second

	// DefaultRetryDelay is the pause after a socket or connect error.
	DefaultRetryDelay = 5 * time.Second

	// DefaultKeepAlive matches the keepalive the launcher has always used.
	DefaultKeepAlive = 60 * time.Second
)

// ErrNoTopicList is returned when topiclist is missing or empty.
var ErrNoTopicList = errors.New("no topic list configured")

// Config is the root configuration structure for mqtt-launcher.
type Config struct {
	LogFile   string `yaml:"logfile"`
	LogLevel  string `yaml:"loglevel"`
	LogFormat string `yaml:"logformat"`

	TopicList map[string]TopicVariants `yaml:"topiclist"`

	ClientID string     `yaml:"mqtt_clientid"`
	Username string     `yaml:"mqtt_username"`
	Password string     `yaml:"mqtt_password"`
	TLS      Presence   `yaml:"mqtt_tls"`
	Broker   string     `yaml:"mqtt_broker"`
	Port     PortNumber `yaml:"mqtt_port"`

	// WorkDir is the scratch directory commands run in.
	WorkDir string `yaml:"workdir"`

	// ExecTimeout bounds a single command. Zero means no limit.
	ExecTimeout time.Duration `yaml:"exec_timeout"`

	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	RetryDelay     time.Duration `yaml:"retry_delay"`

	Audit    AuditConfig    `yaml:"audit"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig
	Auth      MQTTAuthConfig
	QoS       int
	KeepAlive time.Duration
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string
	Port     int
	TLS      bool
	ClientID string
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string
	Password string
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string
	Format string
	// Output is "stdout", "stderr" or a file path.
	Output string
}

// AuditConfig controls the optional SQLite execution audit trail.
type AuditConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for execution metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// PortNumber accepts both `1883` and `"1883"` in the config file.
type PortNumber int

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PortNumber) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: mqtt_port must be a number", node.Line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: mqtt_port %q is not a number", node.Line, node.Value)
	}
	*p = PortNumber(n)
	return nil
}

// Presence records whether a key was given a value. An explicit `false`
// or null counts as absent.
type Presence bool

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Presence) UnmarshalYAML(node *yaml.Node) error {
	switch {
	case node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null":
		*p = false
	case node.Kind == yaml.ScalarNode && node.ShortTag() == "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*p = Presence(b)
	default:
		*p = true
	}
	return nil
}

// Path returns the configuration file path.
// Uses MQTTLAUNCHERCONFIG if set, otherwise launcher.conf.
func Path() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return DefaultConfigPath
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables: MQTTLAUNCHER_BROKER, MQTTLAUNCHER_PORT,
// MQTTLAUNCHER_USERNAME, MQTTLAUNCHER_PASSWORD.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the launcher's defaults.
func defaultConfig() *Config {
	return &Config{
		LogFile:        "logfile",
		LogLevel:       "info",
		LogFormat:      "text",
		ClientID:       fmt.Sprintf("mqtt-launcher-%d", os.Getpid()),
		Broker:         "localhost",
		Port:           1883,
		WorkDir:        "/tmp",
		ReconnectDelay: DefaultReconnectDelay,
		RetryDelay:     DefaultRetryDelay,
		Audit: AuditConfig{
			Path:        "./data/launcher.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MQTTLAUNCHER_BROKER"); v != "" {
		cfg.Broker = v
	}
	if v := os.Getenv("MQTTLAUNCHER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MQTTLAUNCHER_PORT %q is not a number", v)
		}
		cfg.Port = PortNumber(port)
	}
	if v := os.Getenv("MQTTLAUNCHER_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("MQTTLAUNCHER_PASSWORD"); v != "" {
		cfg.Password = v
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid.
//     Wraps ErrNoTopicList when the topic list is missing.
func (c *Config) Validate() error {
	if len(c.TopicList) == 0 {
		return ErrNoTopicList
	}

	var errs []string

	topics := make([]string, 0, len(c.TopicList))
	for topic := range c.TopicList {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		variants := c.TopicList[topic]
		if topic == "" {
			errs = append(errs, "topiclist contains an empty topic")
			continue
		}
		if strings.ContainsAny(topic, "+#") {
			errs = append(errs, fmt.Sprintf("topiclist topic %q contains a wildcard and can never match", topic))
		}
		if variants.Len() == 0 {
			errs = append(errs, fmt.Sprintf("topiclist topic %q has no commands", topic))
		}
	}

	if c.Broker == "" {
		errs = append(errs, "mqtt_broker is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "mqtt_port must be between 1 and 65535")
	}
	if c.WorkDir == "" {
		errs = append(errs, "workdir is required")
	}
	if c.ExecTimeout < 0 {
		errs = append(errs, "exec_timeout cannot be negative")
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, "reconnect_delay must be positive")
	}
	if c.RetryDelay <= 0 {
		errs = append(errs, "retry_delay must be positive")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, "audit.path is required when audit is enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// MQTT returns the broker settings in the shape used by the mqtt package.
func (c *Config) MQTT() MQTTConfig {
	return MQTTConfig{
		Broker: MQTTBrokerConfig{
			Host:     c.Broker,
			Port:     int(c.Port),
			TLS:      bool(c.TLS),
			ClientID: c.ClientID,
		},
		Auth: MQTTAuthConfig{
			Username: c.Username,
			Password: c.Password,
		},
		QoS:       DefaultQoS,
		KeepAlive: DefaultKeepAlive,
	}
}

// Logging returns the logging settings in the shape used by the logging package.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: c.LogFile,
	}
}
