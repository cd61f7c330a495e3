package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/config"
)

// step is the asynchronous body of a planned command. It must call finish once.
type step func(ctx context.Context, finish Finished)

// Engine applies commands to a Target.
//
// A command is either a conditional write (read, compare, write only when
// different) or an action followed by bounded verification polling. The engine
// keeps no per-command state; callers must not run two commands for the same
// channel and property concurrently.
type Engine struct {
	timing   *config.TimingConfig
	logger   *slog.Logger
	recorder PollRecorder
}

// NewEngine creates an engine using timing for every delay, budget and timeout.
func NewEngine(timing *config.TimingConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		timing:   timing,
		logger:   logger,
		recorder: nopRecorder{},
	}
}

// SetPollRecorder installs an observer for verification polling.
func (e *Engine) SetPollRecorder(r PollRecorder) {
	if r == nil {
		r = nopRecorder{}
	}
	e.recorder = r
}

// Execute starts cmd against target.
//
// A non-nil return is an immediate rejection (unknown unit, incompatible mode,
// bad parameter, unhandled kind) and done is never called. Otherwise done is
// called exactly once from another goroutine. ctx bounds the whole execution,
// including verification; cancelling it abandons verification with
// ErrSessionClosed.
func (e *Engine) Execute(ctx context.Context, cmd Command, target Target, done Finished) error {
	if cmd == nil || !Known(cmd.Kind()) {
		return ErrUnhandled
	}

	run, err := e.plan(cmd, target)
	if err != nil {
		return err
	}

	finish := finishOnce(done)
	go run(ctx, finish)
	return nil
}

func (e *Engine) plan(cmd Command, target Target) (step, error) {
	if err := Validate(cmd); err != nil {
		return nil, err
	}
	switch cmd.(type) {
	case SetGimbalMode, ResetGimbal, FineTuneGimbalRoll:
		return e.planGimbal(cmd, target)
	case StartGoHome, StartLanding:
		return e.planFlightController(cmd, target)
	default:
		return e.planCamera(cmd, target)
	}
}

func (e *Engine) planGimbal(cmd Command, target Target) (step, error) {
	channel := cmd.Metadata().Channel
	gimbal, ok := target.Gimbal(channel)
	if !ok {
		return nil, fmt.Errorf("%w: no gimbal at channel %d", adapter.ErrUnavailable, channel)
	}

	switch c := cmd.(type) {
	case SetGimbalMode:
		return writeProperty(e, gimbal, adapter.PropertyGimbalMode, c.Value), nil
	case ResetGimbal:
		return e.action(gimbal.Reset), nil
	case FineTuneGimbalRoll:
		return e.action(func(ctx context.Context) error {
			return gimbal.FineTuneRoll(ctx, c.Degrees)
		}), nil
	}
	return nil, ErrUnhandled
}

func (e *Engine) planFlightController(cmd Command, target Target) (step, error) {
	fc, ok := target.FlightController()
	if !ok {
		return nil, fmt.Errorf("%w: no flight controller", adapter.ErrUnavailable)
	}

	switch cmd.(type) {
	case StartGoHome:
		return e.action(fc.StartGoHome), nil
	case StartLanding:
		return e.action(fc.StartLanding), nil
	}
	return nil, ErrUnhandled
}

// call runs fn bounded by the command timeout.
func (e *Engine) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timing.CommandTimeout)
	defer cancel()
	return fn(ctx)
}

// action issues fn unconditionally and reports its result.
func (e *Engine) action(fn func(context.Context) error) step {
	return func(ctx context.Context, finish Finished) {
		finish(e.call(ctx, fn))
	}
}

func succeed(ctx context.Context, finish Finished) { finish(nil) }

// read runs fn bounded by the command timeout.
func read[T any](e *Engine, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timing.CommandTimeout)
	defer cancel()
	return fn(ctx)
}

// conditionalWrite reads the current value and writes target only when it differs.
// A read error fails the command without writing.
func conditionalWrite[T comparable](e *Engine, get func(context.Context) (T, error), set func(context.Context, T) error, target T) step {
	return func(ctx context.Context, finish Finished) {
		current, err := read(e, ctx, get)
		if err != nil {
			finish(err)
			return
		}
		if current == target {
			finish(nil)
			return
		}
		finish(e.call(ctx, func(ctx context.Context) error { return set(ctx, target) }))
	}
}

// writeProperty is a conditional write of p using a fresh read.
func writeProperty[T comparable](e *Engine, store adapter.PropertyStore, p adapter.Property[T], target T) step {
	return conditionalWrite(e,
		func(ctx context.Context) (T, error) { return adapter.Get(ctx, store, p) },
		func(ctx context.Context, v T) error { return adapter.Set(ctx, store, p, v) },
		target)
}

// writeUnless is a conditional write decided from cached state.
func writeUnless[T comparable](e *Engine, satisfied bool, store adapter.PropertyStore, p adapter.Property[T], target T) step {
	if satisfied {
		return succeed
	}
	return func(ctx context.Context, finish Finished) {
		finish(e.call(ctx, func(ctx context.Context) error { return adapter.Set(ctx, store, p, target) }))
	}
}

func finishOnce(done Finished) Finished {
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			if done != nil {
				done(err)
			}
		})
	}
}
