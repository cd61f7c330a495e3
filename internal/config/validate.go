package config

import (
	"fmt"
	"strings"
)

// Validate checks the whole configuration.
func Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := ValidateTiming(&config.Timing); err != nil {
		return err
	}
	if config.Server.Addr == "" {
		return fmt.Errorf("server address must not be empty")
	}
	if config.Auth.JWKSURL != "" && config.Auth.JWKSRefresh <= 0 {
		return fmt.Errorf("jwks refresh must be positive, got %v", config.Auth.JWKSRefresh)
	}
	if config.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", config.MQTT.QoS)
	}
	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.Log.Level)
	}
	switch strings.ToLower(config.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", config.Log.Format)
	}
	return nil
}

// ValidateTiming enforces the timing rules.
func ValidateTiming(config *TimingConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateVerification(config); err != nil {
		return fmt.Errorf("verification validation failed: %w", err)
	}

	if config.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %v", config.CommandTimeout)
	}
	if config.StateRefreshInterval <= 0 {
		return fmt.Errorf("state refresh interval must be positive, got %v", config.StateRefreshInterval)
	}

	if err := validateHeartbeat(config); err != nil {
		return fmt.Errorf("heartbeat validation failed: %w", err)
	}

	if err := validateEventBuffer(config); err != nil {
		return fmt.Errorf("event buffer validation failed: %w", err)
	}

	return nil
}

func validateVerification(config *TimingConfig) error {
	if config.CaptureSettleDelay < 0 {
		return fmt.Errorf("capture settle delay must be non-negative, got %v", config.CaptureSettleDelay)
	}
	if config.StopVideoSettleDelay < 0 {
		return fmt.Errorf("stop video settle delay must be non-negative, got %v", config.StopVideoSettleDelay)
	}
	if config.BusyPollInterval <= 0 {
		return fmt.Errorf("busy poll interval must be positive, got %v", config.BusyPollInterval)
	}
	if config.BusyPollMaxAttempts < 1 {
		return fmt.Errorf("busy poll attempts must be at least 1, got %d", config.BusyPollMaxAttempts)
	}
	if config.FilePollInterval <= 0 {
		return fmt.Errorf("file poll interval must be positive, got %v", config.FilePollInterval)
	}
	if config.FilePollMaxAttempts < 1 {
		return fmt.Errorf("file poll attempts must be at least 1, got %d", config.FilePollMaxAttempts)
	}
	return nil
}

func validateHeartbeat(config *TimingConfig) error {
	if config.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", config.HeartbeatInterval)
	}

	// Jitter ≤ 50% of interval
	maxJitter := config.HeartbeatInterval / 2
	if config.HeartbeatJitter < 0 {
		return fmt.Errorf("heartbeat jitter must be non-negative, got %v", config.HeartbeatJitter)
	}
	if config.HeartbeatJitter > maxJitter {
		return fmt.Errorf("heartbeat jitter %v exceeds 50%% of interval %v", config.HeartbeatJitter, config.HeartbeatInterval)
	}

	return nil
}

func validateEventBuffer(config *TimingConfig) error {
	if config.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", config.EventBufferSize)
	}
	if config.EventBufferRetention <= 0 {
		return fmt.Errorf("event buffer retention must be positive, got %v", config.EventBufferRetention)
	}
	return nil
}
