package command

import (
	"context"
	"fmt"
	"time"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

// planStartCapture picks the capture action from the camera mode. Starting while
// the same kind of capture is active is a no-op; any mode other than photo or
// video is rejected.
func (e *Engine) planStartCapture(c StartCapture, cam adapter.CameraAdapter, state adapter.CameraState, target Target) (step, error) {
	switch state.Mode {
	case adapter.CameraModePhoto:
		if state.IsCapturingPhotoInterval {
			e.logger.Debug("Camera start capture skipped, already shooting interval photos", "channel", cam.Index())
			return succeed, nil
		}
		return func(ctx context.Context, finish Finished) {
			started := time.Now()
			if err := e.call(ctx, cam.StartShootPhoto); err != nil {
				finish(err)
				return
			}
			if c.VerifyFileCreated {
				e.verifyFile(ctx, cam, target, started, finish)
				return
			}
			e.verifyNotBusy(ctx, cam, target, e.timing.CaptureSettleDelay, finish)
		}, nil

	case adapter.CameraModeVideo:
		if state.IsCapturingVideo {
			e.logger.Debug("Camera start capture skipped, already recording video", "channel", cam.Index())
			return succeed, nil
		}
		return func(ctx context.Context, finish Finished) {
			if err := e.call(ctx, cam.StartRecordVideo); err != nil {
				finish(err)
				return
			}
			e.verifyNotBusy(ctx, cam, target, e.timing.CaptureSettleDelay, finish)
		}, nil
	}

	return nil, fmt.Errorf("%w: cannot start capture in %q mode", adapter.ErrInvalidState, state.Mode)
}

// planStopCapture stops interval shooting or recording. Stopping when nothing is
// being captured, or in any other mode, is a no-op.
func (e *Engine) planStopCapture(cam adapter.CameraAdapter, state adapter.CameraState, target Target) step {
	switch state.Mode {
	case adapter.CameraModePhoto:
		if !state.IsCapturingPhotoInterval {
			e.logger.Debug("Camera stop capture skipped, not shooting interval photos", "channel", cam.Index())
			return succeed
		}
		return e.action(cam.StopShootPhoto)

	case adapter.CameraModeVideo:
		if !state.IsCapturingVideo {
			e.logger.Debug("Camera stop capture skipped, not recording video", "channel", cam.Index())
			return succeed
		}
		return func(ctx context.Context, finish Finished) {
			if err := e.call(ctx, cam.StopRecordVideo); err != nil {
				finish(err)
				return
			}
			e.verifyNotBusy(ctx, cam, target, e.timing.StopVideoSettleDelay, finish)
		}
	}

	return succeed
}

// verifyNotBusy waits delay, then polls until the camera reports not busy. Running
// out of attempts still succeeds.
func (e *Engine) verifyNotBusy(ctx context.Context, cam adapter.CameraAdapter, target Target, delay time.Duration, finish Finished) {
	p := &poller{
		check:       checkBusy,
		interval:    e.timing.BusyPollInterval,
		maxAttempts: e.timing.BusyPollMaxAttempts,
		probe: func(ctx context.Context) (bool, error) {
			state, err := read(e, ctx, cam.State)
			if err != nil {
				return false, err
			}
			return !state.IsBusy, nil
		},
		exhausted: nil,
		target:    target,
		finish:    finish,
		recorder:  e.recorder,
		logger:    e.logger.With("channel", cam.Index()),
	}
	p.start(ctx, delay)
}

// verifyFile waits the capture settle delay, then polls for a file created after
// started. Running out of attempts fails with ErrNoFileProduced; finding the file
// continues with busy verification.
func (e *Engine) verifyFile(ctx context.Context, cam adapter.CameraAdapter, target Target, started time.Time, finish Finished) {
	p := &poller{
		check:       checkFile,
		interval:    e.timing.FilePollInterval,
		maxAttempts: e.timing.FilePollMaxAttempts,
		probe: func(ctx context.Context) (bool, error) {
			file, ok, err := readFile(e, ctx, cam.MostRecentFile)
			if err != nil {
				return false, err
			}
			return ok && file.Created.After(started), nil
		},
		exhausted: ErrNoFileProduced,
		target:    target,
		finish: func(err error) {
			if err != nil {
				finish(err)
				return
			}
			e.verifyNotBusy(ctx, cam, target, 0, finish)
		},
		recorder: e.recorder,
		logger:   e.logger.With("channel", cam.Index()),
	}
	p.start(ctx, e.timing.CaptureSettleDelay)
}

func readFile(e *Engine, ctx context.Context, fn func(context.Context) (adapter.CameraFile, bool, error)) (adapter.CameraFile, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timing.CommandTimeout)
	defer cancel()
	return fn(ctx)
}
