package session

import (
	"context"
	"time"

	"github.com/dronelink/dronelinkd/internal/command"
)

// CommandReport describes one finished command.
type CommandReport struct {
	SessionID string
	CommandID string
	Kind      command.Kind
	Channel   uint
	Started   time.Time
	Duration  time.Duration

	// Rejected is true when the command was refused before it started.
	Rejected bool
	Err      error
}

// Reporter receives every command outcome of every session. ctx is the context
// the command was submitted with and may already be cancelled.
type Reporter interface {
	CommandFinished(ctx context.Context, r CommandReport)
}

// Reporters fans a report out to several reporters in order.
type Reporters []Reporter

func (rs Reporters) CommandFinished(ctx context.Context, r CommandReport) {
	for _, reporter := range rs {
		if reporter != nil {
			reporter.CommandFinished(ctx, r)
		}
	}
}
