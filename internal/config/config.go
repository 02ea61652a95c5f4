package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level plussms configuration.
type Config struct {
	Service ServiceConfig `toml:"service"`
	Send    SendConfig    `toml:"send"`
	Logging LoggingConfig `toml:"logging"`
}

type ServiceConfig struct {
	PutURL       string `toml:"put_url"`
	StateURL     string `toml:"state_url"`
	Project      string `toml:"project"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Timeout      int    `toml:"timeout"`       // seconds, 0 = no default deadline
	WaitInterval int    `toml:"wait_interval"` // milliseconds between delivery polls
}

type SendConfig struct {
	Orig     string `toml:"orig"`
	Encoding string `toml:"encoding"` // "iso", "gsm", "utf-8" or "ucs2"; empty = platform default
	MaxParts int    `toml:"max_parts"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			PutURL:       plusserver.DefaultPutURL,
			StateURL:     plusserver.DefaultStateURL,
			WaitInterval: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration with priority: defaults → plussms.toml → env vars → CLI flags.
// The flags parameter allows CLI flag overrides to be passed in.
func Load(configPath string, flags map[string]string) (*Config, error) {
	cfg := Default()

	// Load from TOML file if it exists.
	if configPath == "" {
		configPath = "plussms.toml"
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	// Apply environment variables.
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	// Apply CLI flag overrides.
	applyFlags(cfg, flags)

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Service.PutURL == "" {
		return fmt.Errorf("service.put_url must not be empty")
	}
	if c.Service.StateURL == "" {
		return fmt.Errorf("service.state_url must not be empty")
	}
	if c.Service.Timeout < 0 {
		return fmt.Errorf("service.timeout must be non-negative, got %d", c.Service.Timeout)
	}
	if c.Service.WaitInterval < 0 {
		return fmt.Errorf("service.wait_interval must be non-negative, got %d", c.Service.WaitInterval)
	}
	switch c.Send.Encoding {
	case "", "iso", "gsm", "utf-8", "ucs2":
	default:
		return fmt.Errorf("send.encoding must be one of: iso, gsm, utf-8, ucs2; got %q", c.Send.Encoding)
	}
	if c.Send.MaxParts < 0 {
		return fmt.Errorf("send.max_parts must be non-negative, got %d", c.Send.MaxParts)
	}
	if c.Logging.Level != "" {
		switch c.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.level must be one of: debug, info, warn, error; got %q", c.Logging.Level)
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

// ClientConfig translates the file configuration into the client library's
// Config. The logger may be nil; the client falls back to slog.Default().
func (c *Config) ClientConfig(logger *slog.Logger) plusserver.Config {
	return plusserver.Config{
		PutURL:       c.Service.PutURL,
		StateURL:     c.Service.StateURL,
		Project:      c.Service.Project,
		Username:     c.Service.Username,
		Password:     c.Service.Password,
		Orig:         c.Send.Orig,
		Encoding:     c.Send.Encoding,
		MaxParts:     c.Send.MaxParts,
		Timeout:      time.Duration(c.Service.Timeout) * time.Second,
		WaitInterval: time.Duration(c.Service.WaitInterval) * time.Millisecond,
		Logger:       logger,
	}
}

// GenerateDefault writes a commented default plussms.toml to the given path.
func GenerateDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultTOML), 0o644)
}

// ToTOML returns the config serialized as TOML.
func (c *Config) ToTOML() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// envInt reads an integer from the named environment variable.
// Returns an error if the value is set but not a valid integer.
func envInt(name string, dest *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q is not an integer", name, v)
	}
	*dest = n
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PLUSSMS_PUT_URL"); v != "" {
		cfg.Service.PutURL = v
	}
	if v := os.Getenv("PLUSSMS_STATE_URL"); v != "" {
		cfg.Service.StateURL = v
	}
	if v := os.Getenv("PLUSSMS_PROJECT"); v != "" {
		cfg.Service.Project = v
	}
	if v := os.Getenv("PLUSSMS_USERNAME"); v != "" {
		cfg.Service.Username = v
	}
	if v := os.Getenv("PLUSSMS_PASSWORD"); v != "" {
		cfg.Service.Password = v
	}
	if err := envInt("PLUSSMS_TIMEOUT", &cfg.Service.Timeout); err != nil {
		return err
	}
	if err := envInt("PLUSSMS_WAIT_INTERVAL", &cfg.Service.WaitInterval); err != nil {
		return err
	}
	if v := os.Getenv("PLUSSMS_ORIG"); v != "" {
		cfg.Send.Orig = v
	}
	if v := os.Getenv("PLUSSMS_ENCODING"); v != "" {
		cfg.Send.Encoding = v
	}
	if err := envInt("PLUSSMS_MAX_PARTS", &cfg.Send.MaxParts); err != nil {
		return err
	}
	if v := os.Getenv("PLUSSMS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PLUSSMS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

func applyFlags(cfg *Config, flags map[string]string) {
	if flags == nil {
		return
	}
	if v, ok := flags["put-url"]; ok && v != "" {
		cfg.Service.PutURL = v
	}
	if v, ok := flags["state-url"]; ok && v != "" {
		cfg.Service.StateURL = v
	}
	if v, ok := flags["project"]; ok && v != "" {
		cfg.Service.Project = v
	}
	if v, ok := flags["username"]; ok && v != "" {
		cfg.Service.Username = v
	}
	if v, ok := flags["password"]; ok && v != "" {
		cfg.Service.Password = v
	}
	if v, ok := flags["timeout"]; ok && v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Service.Timeout = secs
		}
	}
}

// validKeys is the complete set of dot-separated config keys.
var validKeys = map[string]bool{
	"service.put_url": true, "service.state_url": true, "service.project": true,
	"service.username": true, "service.password": true,
	"service.timeout": true, "service.wait_interval": true,
	"send.orig": true, "send.encoding": true, "send.max_parts": true,
	"logging.level": true, "logging.format": true,
}

// IsValidKey returns true if the dotted key is a recognized config key.
func IsValidKey(key string) bool {
	return validKeys[key]
}

// GetValue returns the value for a dotted config key (e.g. "service.project").
func GetValue(cfg *Config, key string) (any, error) {
	switch key {
	case "service.put_url":
		return cfg.Service.PutURL, nil
	case "service.state_url":
		return cfg.Service.StateURL, nil
	case "service.project":
		return cfg.Service.Project, nil
	case "service.username":
		return cfg.Service.Username, nil
	case "service.password":
		return cfg.Service.Password, nil
	case "service.timeout":
		return cfg.Service.Timeout, nil
	case "service.wait_interval":
		return cfg.Service.WaitInterval, nil
	case "send.orig":
		return cfg.Send.Orig, nil
	case "send.encoding":
		return cfg.Send.Encoding, nil
	case "send.max_parts":
		return cfg.Send.MaxParts, nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
	default:
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}
}

// SetValue reads the existing TOML file, updates a single key, and writes it back.
// Creates the file with just the key if it doesn't exist.
func SetValue(configPath, key, value string) error {
	// Read existing TOML as a generic map.
	var data map[string]any
	if raw, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}
	if data == nil {
		data = make(map[string]any)
	}

	// Split key into section.field.
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid key format: %s (expected section.field)", key)
	}
	section, field := parts[0], parts[1]

	// Get or create section map.
	sectionMap, ok := data[section].(map[string]any)
	if !ok {
		sectionMap = make(map[string]any)
		data[section] = sectionMap
	}

	// Convert value to appropriate type.
	sectionMap[field] = coerceValue(key, value)

	// Marshal back to TOML and write.
	out, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(configPath, out, 0o644)
}

// coerceValue converts a string value to the appropriate Go type for TOML serialization.
func coerceValue(key, value string) any {
	switch key {
	case "service.timeout", "service.wait_interval", "send.max_parts":
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return value
}

const defaultTOML = `# plussms Configuration
# Documentation: https://github.com/W-Z-FinTech-GmbH/sms-plusserver

[service]
# Platform endpoints. The defaults point at the production platform.
put_url = "https://sms.openit.de/put.php"
state_url = "https://sms.openit.de/sms-state.php"

# Platform account credentials. Required by send, state and wait.
# username = ""
# password = ""

# Project name submitted with every message.
# project = ""

# Default timeout in seconds for platform calls. 0 waits forever.
timeout = 0

# Milliseconds between delivery polls while waiting for an SMS to arrive.
wait_interval = 500

[send]
# Default sender shown on the receiver's phone.
# orig = ""

# Default text encoding: "iso", "gsm", "utf-8" or "ucs2".
# Empty lets the platform decide.
# encoding = ""

# Maximum number of parts for long messages. 0 lets the platform decide.
max_parts = 0

[logging]
# One of: debug, info, warn, error.
level = "info"

# Log output format: "text" or "json".
format = "text"
`
