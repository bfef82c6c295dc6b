// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Huobi      HuobiConfig      `yaml:"huobi"`
	KuCoin     KuCoinConfig     `yaml:"kucoin"`
	KuCoinMain KuCoinMainConfig `yaml:"kucoin_main"`
	System     SystemConfig     `yaml:"system"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig contains inbound transport settings
type ServerConfig struct {
	HTTPPort     int    `yaml:"http_port"`
	GRPCAddr     string `yaml:"grpc_addr"`
	APIKeys      Secret `yaml:"api_keys"`      // Comma-separated inbound API keys; empty disables auth
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
}

// HuobiConfig contains Huobi credentials and endpoint
type HuobiConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey Secret `yaml:"secret_key"`
	Host      string `yaml:"host"`
	Scheme    string `yaml:"scheme"` // https unless pointed at a local fake
}

// KuCoinConfig contains the primary KuCoin credentials
type KuCoinConfig struct {
	APIKey        string `yaml:"api_key"`
	SecretKey     Secret `yaml:"secret_key"`
	Passphrase    Secret `yaml:"passphrase"`
	BrokerName    string `yaml:"broker_name"`
	Partner       string `yaml:"partner"`
	PartnerSecret Secret `yaml:"partner_secret"`
	KeyVersion    string `yaml:"key_version"`
	Host          string `yaml:"host"`
	BrokerHost    string `yaml:"broker_host"`
	Scheme        string `yaml:"scheme"`
}

// KuCoinMainConfig holds the main-account credentials used only for sub-account lookups
type KuCoinMainConfig struct {
	APIKey     string `yaml:"api_key"`
	SecretKey  Secret `yaml:"secret_key"`
	Passphrase Secret `yaml:"passphrase"`
	KeyVersion string `yaml:"key_version"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel            string `yaml:"log_level"`
	LogJSON             bool   `yaml:"log_json"`
	DebugSignedRequests bool   `yaml:"debug_signed_requests"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
	MetricsPort   int  `yaml:"metrics_port"`
	ExportTraces  bool `yaml:"export_traces"`
	ExportLogs    bool `yaml:"export_logs"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file with environment variable
// expansion. Fields the file leaves out keep their DefaultConfig values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// FromEnv builds a configuration from DefaultConfig and process environment
// variables. Unset credentials stay empty.
func FromEnv() (*Config, error) {
	config := DefaultConfig()

	config.Huobi.AccessKey = os.Getenv("HUOBI_HMAC")
	config.Huobi.SecretKey = Secret(os.Getenv("HUOBI_SECRET_KEY"))

	config.KuCoin.APIKey = os.Getenv("KUCOIN_API_KEY")
	config.KuCoin.SecretKey = Secret(os.Getenv("KUCOIN_SECRET_KEY"))
	config.KuCoin.Passphrase = Secret(os.Getenv("KUCOIN_API_PASSPHRASE"))
	config.KuCoin.BrokerName = os.Getenv("KUCOIN_BROKER_NAME")
	config.KuCoin.Partner = os.Getenv("KUCOIN_API_PARTNER")
	config.KuCoin.PartnerSecret = Secret(os.Getenv("KUCOIN_API_PARTNER_SECRETKEY"))

	config.KuCoinMain.APIKey = os.Getenv("KUCOIN_MAIN_API_KEY")
	config.KuCoinMain.SecretKey = Secret(os.Getenv("KUCOIN_MAIN_SECRET_KEY"))
	config.KuCoinMain.Passphrase = Secret(os.Getenv("KUCOIN_MAIN_API_PASSPHRASE"))
	if v := os.Getenv("KUCOIN_MAIN_API_KEY_VERSION"); v != "" {
		config.KuCoinMain.KeyVersion = v
	}

	if v := os.Getenv("GATEWAY_API_KEYS"); v != "" {
		config.Server.APIKeys = Secret(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.System.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, ValidationError{Field: "PORT", Value: v, Message: "must be an integer"}
		}
		config.Server.HTTPPort = p
	}
	if v := os.Getenv("GRPC_BIND_URL"); v != "" {
		config.Server.GRPCAddr = v
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// Validate performs validation of the configuration. Empty credentials are
// accepted; they only produce signatures the exchanges reject.
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateServerConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateExchanges(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSystemConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateTelemetryConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}
	return nil
}

func (c *Config) validateServerConfig() error {
	if !validPort(c.Server.HTTPPort) {
		return ValidationError{Field: "server.http_port", Value: c.Server.HTTPPort, Message: "must be between 1 and 65535"}
	}
	if c.Server.GRPCAddr == "" {
		return ValidationError{Field: "server.grpc_addr", Message: "gRPC bind address is required"}
	}
	return nil
}

func (c *Config) validateExchanges() error {
	if c.Huobi.Host == "" {
		return ValidationError{Field: "huobi.host", Message: "host is required"}
	}
	if c.KuCoin.Host == "" || c.KuCoin.BrokerHost == "" {
		return ValidationError{Field: "kucoin.host", Message: "host and broker_host are required"}
	}
	for field, scheme := range map[string]string{"huobi.scheme": c.Huobi.Scheme, "kucoin.scheme": c.KuCoin.Scheme} {
		if scheme != "https" && scheme != "http" {
			return ValidationError{Field: field, Value: scheme, Message: "must be http or https"}
		}
	}
	for field, v := range map[string]string{"kucoin.key_version": c.KuCoin.KeyVersion, "kucoin_main.key_version": c.KuCoinMain.KeyVersion} {
		if !contains(validKeyVersions, v) {
			return ValidationError{Field: field, Value: v, Message: fmt.Sprintf("must be one of: %s", strings.Join(validKeyVersions, ", "))}
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

func (c *Config) validateTelemetryConfig() error {
	if c.Telemetry.EnableMetrics && !validPort(c.Telemetry.MetricsPort) {
		return ValidationError{Field: "telemetry.metrics_port", Value: c.Telemetry.MetricsPort, Message: "must be between 1 and 65535"}
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Huobi.Host == "" {
		c.Huobi.Host = def.Huobi.Host
	}
	c.Huobi.Host = strings.ToLower(c.Huobi.Host)
	if c.Huobi.Scheme == "" {
		c.Huobi.Scheme = def.Huobi.Scheme
	}
	if c.KuCoin.Host == "" {
		c.KuCoin.Host = def.KuCoin.Host
	}
	if c.KuCoin.BrokerHost == "" {
		c.KuCoin.BrokerHost = def.KuCoin.BrokerHost
	}
	if c.KuCoin.Scheme == "" {
		c.KuCoin.Scheme = def.KuCoin.Scheme
	}
	if c.KuCoin.KeyVersion == "" {
		c.KuCoin.KeyVersion = def.KuCoin.KeyVersion
	}
	if c.KuCoinMain.KeyVersion == "" {
		c.KuCoinMain.KeyVersion = def.KuCoinMain.KeyVersion
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = def.System.LogLevel
	}
}

// String returns a YAML representation with sensitive data masked
func (c *Config) String() string {
	configCopy := *c
	configCopy.Huobi.AccessKey = maskString(c.Huobi.AccessKey)
	configCopy.KuCoin.APIKey = maskString(c.KuCoin.APIKey)
	configCopy.KuCoinMain.APIKey = maskString(c.KuCoinMain.APIKey)

	data, _ := yaml.Marshal(configCopy)
	return string(data)
}

// APIKeyList splits the inbound API key setting
func (s ServerConfig) APIKeyList() []string {
	var keys []string
	for _, k := range strings.Split(string(s.APIKeys), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Helper functions

var validKeyVersions = []string{"1", "2", "3"}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func validPort(p int) bool {
	return p > 0 && p < 65536
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// DefaultConfig returns the built-in defaults with empty credentials
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "exchanges_gateway",
		},
		Server: ServerConfig{
			HTTPPort:     3000,
			GRPCAddr:     "0.0.0.0:50051",
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Huobi: HuobiConfig{
			Host:   "api.huobi.pro",
			Scheme: "https",
		},
		KuCoin: KuCoinConfig{
			Host:       "api.kucoin.com",
			BrokerHost: "api-broker.kucoin.com",
			Scheme:     "https",
			KeyVersion: "2",
		},
		KuCoinMain: KuCoinMainConfig{
			KeyVersion: "2",
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: false,
			MetricsPort:   9090,
		},
	}
}
