package command

import (
	"context"
	"log/slog"
	"time"
)

const (
	checkBusy = "busy"
	checkFile = "file"
)

// poller is one bounded verification chain. Each step runs on its own timer, so
// no goroutine sleeps while waiting and the attempt counter belongs to this
// chain alone.
type poller struct {
	check       string
	interval    time.Duration
	maxAttempts int

	// probe reports whether the expected effect is observed.
	probe func(ctx context.Context) (bool, error)

	// exhausted is the outcome once maxAttempts probes saw nothing; nil means
	// best-effort success.
	exhausted error

	target   Target
	finish   Finished
	recorder PollRecorder
	logger   *slog.Logger

	attempts int
}

func (p *poller) start(ctx context.Context, delay time.Duration) {
	time.AfterFunc(delay, func() { p.step(ctx) })
}

func (p *poller) step(ctx context.Context) {
	if ctx.Err() != nil || !p.target.Valid() {
		p.logger.Debug("Verification abandoned", "check", p.check, "attempts", p.attempts)
		p.finish(ErrSessionClosed)
		return
	}

	p.attempts++
	p.recorder.PollAttempt(p.check)
	observed, err := p.probe(ctx)
	switch {
	case err != nil:
		p.finish(err)
	case observed:
		p.logger.Debug("Verification succeeded", "check", p.check, "attempts", p.attempts)
		p.finish(nil)
	case p.attempts >= p.maxAttempts:
		p.logger.Debug("Verification attempts exhausted", "check", p.check, "attempts", p.attempts)
		p.recorder.PollExhausted(p.check)
		p.finish(p.exhausted)
	default:
		time.AfterFunc(p.interval, func() { p.step(ctx) })
	}
}
