package command

import (
	"context"
	"fmt"
	"math"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

func (e *Engine) planCamera(cmd Command, target Target) (step, error) {
	channel := cmd.Metadata().Channel
	cam, ok := target.Camera(channel)
	if !ok {
		return nil, fmt.Errorf("%w: no camera at channel %d", adapter.ErrUnavailable, channel)
	}
	dated, ok := target.CameraState(channel)
	if !ok {
		return nil, fmt.Errorf("%w: no state for camera %d", adapter.ErrUnavailable, channel)
	}
	state := dated.Value
	exposure := state.Exposure

	switch c := cmd.(type) {
	case SetAEBCount:
		return writeProperty(e, cam, adapter.PropertyAEBCount, c.Value), nil
	case SetAperture:
		return writeUnless(e, exposure != nil && exposure.Aperture == c.Value, cam, adapter.PropertyAperture, c.Value), nil
	case SetAutoExposureLock:
		return writeProperty(e, cam, adapter.PropertyAELock, c.Enabled), nil
	case SetAutoLockGimbal:
		return writeProperty(e, cam, adapter.PropertyAutoLockGimbal, c.Enabled), nil
	case SetColor:
		return writeProperty(e, cam, adapter.PropertyColor, c.Value), nil
	case SetContrast:
		return writeProperty(e, cam, adapter.PropertyContrast, c.Value), nil
	case SetExposureCompensation:
		return writeUnless(e, exposure != nil && exposure.ExposureCompensation == c.Value, cam, adapter.PropertyExposureCompensation, c.Value), nil
	case StepExposureCompensation:
		next := state.ExposureCompensation().Offset(c.Steps)
		return writeUnless(e, exposure != nil && exposure.ExposureCompensation == next, cam, adapter.PropertyExposureCompensation, next), nil
	case SetExposureMode:
		return writeProperty(e, cam, adapter.PropertyExposureMode, c.Value), nil
	case SetFileIndexMode:
		return writeProperty(e, cam, adapter.PropertyFileIndexMode, c.Value), nil
	case Focus:
		return e.action(func(ctx context.Context) error { return cam.SetFocusTarget(ctx, c.Target) }), nil
	case SetFocusMode:
		return writeProperty(e, cam, adapter.PropertyFocusMode, c.Value), nil
	case SetFocusRing:
		return e.focusRing(cam, c.Percent), nil
	case SetISO:
		return writeUnless(e, exposure != nil && exposure.ISO == c.Value, cam, adapter.PropertyISO, c.Value), nil
	case SetMechanicalShutter:
		return writeProperty(e, cam, adapter.PropertyMechanicalShutter, c.Enabled), nil
	case SetMeteringMode:
		return writeProperty(e, cam, adapter.PropertyMeteringMode, c.Value), nil
	case SetMode:
		if cam.IsFlatModeSupported() {
			return writeProperty(e, cam, adapter.PropertyFlatMode, adapter.FlatModeForCameraMode(c.Value)), nil
		}
		return writeUnless(e, state.Mode == c.Value, cam, adapter.PropertyMode, c.Value), nil
	case SetPhotoAspectRatio:
		return writeProperty(e, cam, adapter.PropertyPhotoAspectRatio, c.Value), nil
	case SetPhotoFileFormat:
		return writeProperty(e, cam, adapter.PropertyPhotoFileFormat, c.Value), nil
	case SetPhotoInterval:
		settings := adapter.PhotoTimeIntervalSettings{CaptureCount: 255, IntervalSeconds: c.Seconds}
		return writeProperty(e, cam, adapter.PropertyPhotoTimeInterval, settings), nil
	case SetPhotoMode:
		if cam.IsFlatModeSupported() {
			return writeProperty(e, cam, adapter.PropertyFlatMode, adapter.FlatModeForShootPhotoMode(c.Value)), nil
		}
		return writeProperty(e, cam, adapter.PropertyShootPhotoMode, c.Value), nil
	case SetSaturation:
		return writeProperty(e, cam, adapter.PropertySaturation, c.Value), nil
	case SetSharpness:
		return writeProperty(e, cam, adapter.PropertySharpness, c.Value), nil
	case SetShutterSpeed:
		return writeUnless(e, exposure != nil && exposure.ShutterSpeed == c.Value, cam, adapter.PropertyShutterSpeed, c.Value), nil
	case SetSpotMeteringTarget:
		row := uint8(math.Round(c.Target.Y * 7))
		column := uint8(math.Round(c.Target.X * 11))
		return e.action(func(ctx context.Context) error {
			return cam.SetSpotMeteringTarget(ctx, row, column)
		}), nil
	case StartCapture:
		return e.planStartCapture(c, cam, state, target)
	case StopCapture:
		return e.planStopCapture(cam, state, target), nil
	case SetStorageLocation:
		return writeProperty(e, cam, adapter.PropertyStorageLocation, c.Value), nil
	case SetVideoCaption:
		return writeProperty(e, cam, adapter.PropertyVideoCaption, c.Enabled), nil
	case SetVideoFileCompressionStandard:
		return writeProperty(e, cam, adapter.PropertyVideoFileCompressionStandard, c.Value), nil
	case SetVideoFileFormat:
		return writeProperty(e, cam, adapter.PropertyVideoFileFormat, c.Value), nil
	case SetVideoMode:
		if cam.IsFlatModeSupported() {
			return writeProperty(e, cam, adapter.PropertyFlatMode, adapter.FlatModeForVideoMode(c.Value)), nil
		}
		return writeUnless(e, state.Mode == adapter.CameraModeVideo, cam, adapter.PropertyMode, adapter.CameraModeVideo), nil
	case SetVideoResolutionFrameRate:
		format := adapter.VideoResolutionFrameRate{
			Resolution:  c.Resolution,
			FrameRate:   c.FrameRate,
			FieldOfView: c.FieldOfView,
		}
		return writeProperty(e, cam, adapter.PropertyVideoResolutionFrameRate, format), nil
	case SetVideoStandard:
		return writeProperty(e, cam, adapter.PropertyVideoStandard, c.Value), nil
	case SetWhiteBalanceCustom:
		wb, err := adapter.CustomWhiteBalance(c.Kelvin)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return writeProperty(e, cam, adapter.PropertyWhiteBalance, wb), nil
	case SetWhiteBalancePreset:
		return conditionalWrite(e,
			func(ctx context.Context) (adapter.WhiteBalancePreset, error) {
				current, err := adapter.Get(ctx, cam, adapter.PropertyWhiteBalance)
				return current.Preset, err
			},
			func(ctx context.Context, preset adapter.WhiteBalancePreset) error {
				return adapter.Set(ctx, cam, adapter.PropertyWhiteBalance, adapter.WhiteBalance{Preset: preset})
			},
			c.Value), nil
	}

	return nil, ErrUnhandled
}

// focusRing reads the ring's upper bound, then moves it to percent of that bound.
func (e *Engine) focusRing(cam adapter.CameraAdapter, percent float64) step {
	return func(ctx context.Context, finish Finished) {
		bound, err := read(e, ctx, func(ctx context.Context) (uint, error) {
			return adapter.Get(ctx, cam, adapter.PropertyFocusRingUpperBound)
		})
		if err != nil {
			finish(err)
			return
		}
		value := uint(percent * float64(bound))
		finish(e.call(ctx, func(ctx context.Context) error { return cam.SetFocusRingValue(ctx, value) }))
	}
}
