package config

import "time"

// Config is the full daemon configuration.
type Config struct {
	Timing   TimingConfig  `yaml:"timing"`
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	Audit    AuditConfig   `yaml:"audit"`
	Log      LogConfig     `yaml:"log"`
	Tracing  TracingConfig `yaml:"tracing"`
	Simulate bool          `yaml:"simulate"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AuthConfig configures bearer token verification. Auth is disabled when no key
// source is set. With JWKSURL, tokens carrying a kid use the published keys and
// the rest fall back to PublicKeyPath.
type AuthConfig struct {
	HMACSecret    string        `yaml:"hmacSecret"`
	PublicKeyPath string        `yaml:"publicKeyPath"`
	JWKSURL       string        `yaml:"jwksUrl"`
	JWKSRefresh   time.Duration `yaml:"jwksRefresh"`
}

// Enabled reports whether any verification key is configured.
func (a AuthConfig) Enabled() bool {
	return a.HMACSecret != "" || a.PublicKeyPath != "" || a.JWKSURL != ""
}

// MQTTConfig configures the transport bridge. The bridge is off when Broker is empty.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"clientId"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topicPrefix"`
	QoS         byte   `yaml:"qos"`
}

// AuditConfig configures the rotating command audit log.
type AuditConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// TracingConfig configures span export. Spans are recorded but not exported
// when Endpoint is empty.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs without any external services.
func Default() *Config {
	return &Config{
		Timing: *LoadTimingBaseline(),
		Server: ServerConfig{Addr: ":8080"},
		MQTT: MQTTConfig{
			ClientID:    "dronelinkd",
			TopicPrefix: "dronelink",
			QoS:         1,
		},
		Audit: AuditConfig{
			Path:       "audit.jsonl",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Auth: AuthConfig{JWKSRefresh: 5 * time.Minute},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}
