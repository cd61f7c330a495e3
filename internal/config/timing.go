package config

import "time"

// TimingConfig holds every delay, interval and budget used by the command engine,
// the session and the telemetry hub. Tests shrink these to milliseconds.
type TimingConfig struct {
	// Settle delays before verification starts.
	CaptureSettleDelay   time.Duration `yaml:"captureSettleDelay"`
	StopVideoSettleDelay time.Duration `yaml:"stopVideoSettleDelay"`

	// Busy-clear verification.
	BusyPollInterval    time.Duration `yaml:"busyPollInterval"`
	BusyPollMaxAttempts int           `yaml:"busyPollMaxAttempts"`

	// File-appearance verification.
	FilePollInterval    time.Duration `yaml:"filePollInterval"`
	FilePollMaxAttempts int           `yaml:"filePollMaxAttempts"`

	// Upper bound for any single adapter call.
	CommandTimeout time.Duration `yaml:"commandTimeout"`

	// Session snapshot pull cadence.
	StateRefreshInterval time.Duration `yaml:"stateRefreshInterval"`

	// Telemetry stream.
	HeartbeatInterval    time.Duration `yaml:"heartbeatInterval"`
	HeartbeatJitter      time.Duration `yaml:"heartbeatJitter"`
	EventBufferSize      int           `yaml:"eventBufferSize"`
	EventBufferRetention time.Duration `yaml:"eventBufferRetention"`
}

// LoadTimingBaseline returns the production timing values.
func LoadTimingBaseline() *TimingConfig {
	return &TimingConfig{
		CaptureSettleDelay:   500 * time.Millisecond,
		StopVideoSettleDelay: 2 * time.Second,

		BusyPollInterval:    100 * time.Millisecond,
		BusyPollMaxAttempts: 10,

		FilePollInterval:    250 * time.Millisecond,
		FilePollMaxAttempts: 20,

		CommandTimeout: 10 * time.Second,

		StateRefreshInterval: 1 * time.Second,

		HeartbeatInterval:    15 * time.Second,
		HeartbeatJitter:      2 * time.Second,
		EventBufferSize:      50,
		EventBufferRetention: 1 * time.Hour,
	}
}

// FileVerificationBudget is the longest a file-appearance check can wait after the
// settle delay.
func (c *TimingConfig) FileVerificationBudget() time.Duration {
	return time.Duration(c.FilePollMaxAttempts) * c.FilePollInterval
}

// CommandWaitBudget bounds how long a caller waits for any command outcome: the
// longer settle delay, both verification budgets and one adapter call.
func (c *TimingConfig) CommandWaitBudget() time.Duration {
	settle := c.CaptureSettleDelay
	if c.StopVideoSettleDelay > settle {
		settle = c.StopVideoSettleDelay
	}
	busy := time.Duration(c.BusyPollMaxAttempts) * c.BusyPollInterval
	return settle + c.FileVerificationBudget() + busy + c.CommandTimeout
}
