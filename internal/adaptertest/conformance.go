// Package adaptertest provides vendor-agnostic conformance tests for camera adapters.
//
// Every CameraAdapter must round-trip typed property writes, reject values of the
// wrong type with adapter.ErrInvalidRange, reflect capture actions in its state
// snapshot and honour context cancellation.
package adaptertest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

// Sample is a value written to one property during the round-trip test. It should
// differ from the adapter's initial value.
type Sample struct {
	Name  string
	Value any
}

// DefaultCameraSamples covers every camera property key.
func DefaultCameraSamples() []Sample {
	return []Sample{
		{adapter.PropertyAEBCount.Name(), adapter.AEBCount5},
		{adapter.PropertyAperture.Name(), adapter.Aperture("f/4.0")},
		{adapter.PropertyAELock.Name(), true},
		{adapter.PropertyAutoLockGimbal.Name(), true},
		{adapter.PropertyColor.Name(), adapter.CameraColorDLog},
		{adapter.PropertyContrast.Name(), 1},
		{adapter.PropertyExposureCompensation.Name(), adapter.ExposureCompensation("+0.7")},
		{adapter.PropertyExposureMode.Name(), adapter.ExposureModeManual},
		{adapter.PropertyFileIndexMode.Name(), adapter.FileIndexModeReset},
		{adapter.PropertyFocusMode.Name(), adapter.FocusModeManual},
		{adapter.PropertyISO.Name(), adapter.ISO("400")},
		{adapter.PropertyMechanicalShutter.Name(), true},
		{adapter.PropertyMeteringMode.Name(), adapter.MeteringModeSpot},
		{adapter.PropertyPhotoAspectRatio.Name(), adapter.PhotoAspectRatio16x9},
		{adapter.PropertyPhotoFileFormat.Name(), adapter.PhotoFileFormatRAWJPEG},
		{adapter.PropertyPhotoTimeInterval.Name(), adapter.PhotoTimeIntervalSettings{CaptureCount: 255, IntervalSeconds: 5}},
		{adapter.PropertySaturation.Name(), -1},
		{adapter.PropertySharpness.Name(), 2},
		{adapter.PropertyShootPhotoMode.Name(), adapter.ShootPhotoModeHDR},
		{adapter.PropertyShutterSpeed.Name(), adapter.ShutterSpeed("1/1000")},
		{adapter.PropertyStorageLocation.Name(), adapter.StorageLocationInternal},
		{adapter.PropertyVideoCaption.Name(), true},
		{adapter.PropertyVideoFileCompressionStandard.Name(), adapter.VideoFileCompressionH265},
		{adapter.PropertyVideoFileFormat.Name(), adapter.VideoFileFormatMOV},
		{adapter.PropertyVideoResolutionFrameRate.Name(), adapter.VideoResolutionFrameRate{Resolution: "1920x1080", FrameRate: "60", FieldOfView: "wide"}},
		{adapter.PropertyVideoStandard.Name(), adapter.VideoStandardPAL},
		{adapter.PropertyWhiteBalance.Name(), adapter.WhiteBalance{Preset: adapter.WhiteBalanceCustom, ColorTemperature: 56}},
	}
}

// RunCameraConformance runs the camera suite. newCamera must return a fresh camera
// on every call.
func RunCameraConformance(t *testing.T, newCamera func() adapter.CameraAdapter, samples []Sample) {
	t.Helper()

	t.Run("State_Basic", func(t *testing.T) {
		cam := newCamera()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if _, err := cam.State(ctx); err != nil {
			t.Fatalf("State() failed: %v", err)
		}
	})

	t.Run("Property_RoundTrip", func(t *testing.T) {
		cam := newCamera()
		ctx := context.Background()

		for _, s := range samples {
			if err := cam.Set(ctx, s.Name, s.Value); err != nil {
				t.Errorf("Set(%s) failed: %v", s.Name, err)
				continue
			}
			got, err := cam.Get(ctx, s.Name)
			if err != nil {
				t.Errorf("Get(%s) failed: %v", s.Name, err)
				continue
			}
			if !reflect.DeepEqual(got, s.Value) {
				t.Errorf("Get(%s) = %v, want %v", s.Name, got, s.Value)
			}
		}
	})

	t.Run("Property_TypeMismatch", func(t *testing.T) {
		cam := newCamera()
		ctx := context.Background()

		for _, s := range samples {
			err := cam.Set(ctx, s.Name, struct{ bogus bool }{})
			if !errors.Is(err, adapter.ErrInvalidRange) {
				t.Errorf("Set(%s) with wrong type: expected ErrInvalidRange, got %v", s.Name, err)
			}
		}
	})

	t.Run("Capture_Video", func(t *testing.T) {
		cam := newCamera()
		ctx := context.Background()

		if err := adapter.Set(ctx, cam, adapter.PropertyMode, adapter.CameraModeVideo); err != nil {
			t.Fatalf("Set(mode=video) failed: %v", err)
		}
		if err := cam.StartRecordVideo(ctx); err != nil {
			t.Fatalf("StartRecordVideo() failed: %v", err)
		}
		state, err := cam.State(ctx)
		if err != nil {
			t.Fatalf("State() failed: %v", err)
		}
		if !state.IsCapturingVideo {
			t.Error("Expected IsCapturingVideo after StartRecordVideo")
		}

		if err := cam.StopRecordVideo(ctx); err != nil {
			t.Fatalf("StopRecordVideo() failed: %v", err)
		}
		state, err = cam.State(ctx)
		if err != nil {
			t.Fatalf("State() failed: %v", err)
		}
		if state.IsCapturingVideo {
			t.Error("Expected IsCapturingVideo cleared after StopRecordVideo")
		}
	})

	t.Run("Context_Cancelled", func(t *testing.T) {
		cam := newCamera()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := cam.Get(ctx, adapter.PropertyMode.Name()); !errors.Is(err, context.Canceled) {
			t.Errorf("Get() with cancelled context: expected context.Canceled, got %v", err)
		}
		if err := cam.StartShootPhoto(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("StartShootPhoto() with cancelled context: expected context.Canceled, got %v", err)
		}
	})
}
