package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "DRONELINK_"

// Load merges Default() + the optional YAML file at path + DRONELINK_* env overrides,
// then validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		if err := loadFromFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile overlays the YAML document at path onto config. Keys absent from the
// file keep their current value.
func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func applyEnvOverrides(config *Config) error {
	durations := map[string]*time.Duration{
		"TIMING_CAPTURE_SETTLE":         &config.Timing.CaptureSettleDelay,
		"TIMING_STOP_VIDEO_SETTLE":      &config.Timing.StopVideoSettleDelay,
		"TIMING_BUSY_POLL_INTERVAL":     &config.Timing.BusyPollInterval,
		"TIMING_FILE_POLL_INTERVAL":     &config.Timing.FilePollInterval,
		"TIMING_COMMAND_TIMEOUT":        &config.Timing.CommandTimeout,
		"TIMING_STATE_REFRESH":          &config.Timing.StateRefreshInterval,
		"TIMING_HEARTBEAT_INTERVAL":     &config.Timing.HeartbeatInterval,
		"TIMING_HEARTBEAT_JITTER":       &config.Timing.HeartbeatJitter,
		"TIMING_EVENT_BUFFER_RETENTION": &config.Timing.EventBufferRetention,
		"AUTH_JWKS_REFRESH":             &config.Auth.JWKSRefresh,
	}
	for key, dst := range durations {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"TIMING_BUSY_POLL_ATTEMPTS": &config.Timing.BusyPollMaxAttempts,
		"TIMING_FILE_POLL_ATTEMPTS": &config.Timing.FilePollMaxAttempts,
		"TIMING_EVENT_BUFFER_SIZE":  &config.Timing.EventBufferSize,
		"AUDIT_MAX_SIZE_MB":         &config.Audit.MaxSizeMB,
		"AUDIT_MAX_BACKUPS":         &config.Audit.MaxBackups,
		"AUDIT_MAX_AGE_DAYS":        &config.Audit.MaxAgeDays,
	}
	for key, dst := range ints {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		"SERVER_ADDR":       &config.Server.Addr,
		"AUTH_HMAC_SECRET":  &config.Auth.HMACSecret,
		"AUTH_PUBLIC_KEY":   &config.Auth.PublicKeyPath,
		"AUTH_JWKS_URL":     &config.Auth.JWKSURL,
		"MQTT_BROKER":       &config.MQTT.Broker,
		"MQTT_CLIENT_ID":    &config.MQTT.ClientID,
		"MQTT_USERNAME":     &config.MQTT.Username,
		"MQTT_PASSWORD":     &config.MQTT.Password,
		"MQTT_TOPIC_PREFIX": &config.MQTT.TopicPrefix,
		"AUDIT_PATH":        &config.Audit.Path,
		"LOG_LEVEL":         &config.Log.Level,
		"LOG_FORMAT":        &config.Log.Format,
		"TRACING_ENDPOINT":  &config.Tracing.Endpoint,
	}
	for key, dst := range strs {
		if val, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = val
		}
	}

	bools := map[string]*bool{
		"SIMULATE":         &config.Simulate,
		"TRACING_INSECURE": &config.Tracing.Insecure,
	}
	for key, dst := range bools {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	return nil
}
