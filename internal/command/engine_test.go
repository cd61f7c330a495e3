package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/adapter/fake"
	"github.com/dronelink/dronelinkd/internal/config"
)

// testTarget exposes a simulated drone and mirrors pushed camera state the way
// a session does.
type testTarget struct {
	drone   *fake.Drone
	mu      sync.Mutex
	states  map[uint]adapter.Dated[adapter.CameraState]
	invalid atomic.Bool
}

func newTestTarget(t *testing.T) *testTarget {
	t.Helper()
	tt := &testTarget{
		drone:  fake.NewDrone("Sim"),
		states: map[uint]adapter.Dated[adapter.CameraState]{},
	}
	cam := tt.camera(t)
	state, err := cam.State(context.Background())
	if err != nil {
		t.Fatalf("initial State() failed: %v", err)
	}
	tt.states[0] = adapter.NewDated(state)
	cam.OnCameraState(func(channel uint, state adapter.CameraState) {
		tt.mu.Lock()
		defer tt.mu.Unlock()
		tt.states[channel] = adapter.NewDated(state)
	})
	return tt
}

func (tt *testTarget) camera(t *testing.T) *fake.Camera {
	t.Helper()
	cam, ok := tt.drone.FakeCamera(0)
	if !ok {
		t.Fatal("simulated drone has no camera 0")
	}
	return cam
}

func (tt *testTarget) Camera(channel uint) (adapter.CameraAdapter, bool) {
	return tt.drone.Camera(channel)
}

func (tt *testTarget) Gimbal(channel uint) (adapter.GimbalAdapter, bool) {
	return tt.drone.Gimbal(channel)
}

func (tt *testTarget) FlightController() (adapter.FlightControllerAdapter, bool) {
	return tt.drone.FlightController()
}

func (tt *testTarget) CameraState(channel uint) (adapter.Dated[adapter.CameraState], bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	s, ok := tt.states[channel]
	return s, ok
}

func (tt *testTarget) Valid() bool { return !tt.invalid.Load() }

func testTiming() *config.TimingConfig {
	timing := config.LoadTimingBaseline()
	timing.CaptureSettleDelay = 5 * time.Millisecond
	timing.StopVideoSettleDelay = 10 * time.Millisecond
	timing.BusyPollInterval = 2 * time.Millisecond
	timing.FilePollInterval = 5 * time.Millisecond
	timing.CommandTimeout = time.Second
	return timing
}

func newTestEngine() *Engine {
	return NewEngine(testTiming(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// execute runs cmd and waits for its outcome. rejected is the immediate error.
func execute(t *testing.T, e *Engine, target Target, cmd Command) (rejected, outcome error) {
	t.Helper()
	result := make(chan error, 2)
	if err := e.Execute(context.Background(), cmd, target, func(err error) { result <- err }); err != nil {
		return err, nil
	}
	select {
	case outcome = <-result:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: no outcome within 2s", cmd.Kind())
	}
	select {
	case extra := <-result:
		t.Fatalf("%s: completion called twice (second: %v)", cmd.Kind(), extra)
	case <-time.After(5 * time.Millisecond):
	}
	return nil, outcome
}

func mustSucceed(t *testing.T, e *Engine, target Target, cmd Command) {
	t.Helper()
	rejected, outcome := execute(t, e, target, cmd)
	if rejected != nil {
		t.Fatalf("%s rejected: %v", cmd.Kind(), rejected)
	}
	if outcome != nil {
		t.Fatalf("%s failed: %v", cmd.Kind(), outcome)
	}
}

func TestConditionalWriteIsIdempotent(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)

	cmd := SetExposureMode{Meta: NewMeta(0), Value: adapter.ExposureModeManual}
	mustSucceed(t, e, target, cmd)
	mustSucceed(t, e, target, cmd)

	if got := cam.Writes(adapter.PropertyExposureMode.Name()); got != 1 {
		t.Errorf("Expected exactly 1 write, got %d", got)
	}
}

func TestConditionalWriteSkipsSatisfiedTarget(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)

	commands := []Command{
		SetExposureMode{Meta: NewMeta(0), Value: adapter.ExposureModeProgram},
		SetPhotoInterval{Meta: NewMeta(0), Seconds: 2},
		SetVideoResolutionFrameRate{Meta: NewMeta(0), Resolution: "3840x2160", FrameRate: "30", FieldOfView: "default"},
		SetWhiteBalancePreset{Meta: NewMeta(0), Value: adapter.WhiteBalanceAuto},
		SetISO{Meta: NewMeta(0), Value: "100"},
		SetMode{Meta: NewMeta(0), Value: adapter.CameraModePhoto},
	}
	for _, cmd := range commands {
		mustSucceed(t, e, target, cmd)
	}

	if got := cam.TotalWrites(); got != 0 {
		t.Errorf("Expected no writes for satisfied targets, got %d", got)
	}
}

func TestConditionalWriteReadErrorShortCircuits(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)
	readErr := errors.New("CAMERA_BUSY")
	cam.FailRead(adapter.PropertyColor.Name(), readErr)

	_, outcome := execute(t, e, target, SetColor{Meta: NewMeta(0), Value: adapter.CameraColorArt})

	if !errors.Is(outcome, readErr) {
		t.Errorf("Expected read error, got %v", outcome)
	}
	if got := cam.Writes(adapter.PropertyColor.Name()); got != 0 {
		t.Errorf("Expected no write after read error, got %d", got)
	}
}

func TestConditionalWriteForwardsWriteError(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	writeErr := errors.New("PARAM_OUT_OF_RANGE")
	target.camera(t).FailWrite(adapter.PropertySharpness.Name(), writeErr)

	_, outcome := execute(t, e, target, SetSharpness{Meta: NewMeta(0), Value: 3})

	if !errors.Is(outcome, writeErr) {
		t.Errorf("Expected write error, got %v", outcome)
	}
}

func TestCachedSettingUsesSnapshot(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)

	mustSucceed(t, e, target, SetISO{Meta: NewMeta(0), Value: "400"})
	mustSucceed(t, e, target, SetISO{Meta: NewMeta(0), Value: "400"})

	if got := cam.Writes(adapter.PropertyISO.Name()); got != 1 {
		t.Errorf("Expected 1 ISO write, got %d", got)
	}
}

func TestStepExposureCompensation(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)

	mustSucceed(t, e, target, StepExposureCompensation{Meta: NewMeta(0), Steps: 2})

	got, err := adapter.Get(context.Background(), cam, adapter.PropertyExposureCompensation)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != "+0.7" {
		t.Errorf("Expected +0.7, got %q", got)
	}

	mustSucceed(t, e, target, StepExposureCompensation{Meta: NewMeta(0), Steps: -1})
	got, _ = adapter.Get(context.Background(), cam, adapter.PropertyExposureCompensation)
	if got != "+0.3" {
		t.Errorf("Expected +0.3, got %q", got)
	}
}

func TestFlatModeCommands(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)
	cam.SetFlatModeSupported(true)
	ctx := context.Background()

	mustSucceed(t, e, target, SetMode{Meta: NewMeta(0), Value: adapter.CameraModeVideo})
	if got, _ := adapter.Get(ctx, cam, adapter.PropertyFlatMode); got != adapter.FlatModeVideoNormal {
		t.Errorf("Expected flat mode videoNormal, got %q", got)
	}

	mustSucceed(t, e, target, SetPhotoMode{Meta: NewMeta(0), Value: adapter.ShootPhotoModeHDR})
	if got, _ := adapter.Get(ctx, cam, adapter.PropertyFlatMode); got != adapter.FlatModePhotoHDR {
		t.Errorf("Expected flat mode photoHDR, got %q", got)
	}

	mustSucceed(t, e, target, SetVideoMode{Meta: NewMeta(0), Value: adapter.VideoModeSlowMotion})
	if got, _ := adapter.Get(ctx, cam, adapter.PropertyFlatMode); got != adapter.FlatModeSlowMotion {
		t.Errorf("Expected flat mode slowMotion, got %q", got)
	}

	if got := cam.Writes(adapter.PropertyMode.Name()) + cam.Writes(adapter.PropertyShootPhotoMode.Name()); got != 0 {
		t.Errorf("Expected no split-mode writes on a flat-mode camera, got %d", got)
	}
}

func TestVideoModeWithoutFlatMode(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)

	mustSucceed(t, e, target, SetVideoMode{Meta: NewMeta(0), Value: adapter.VideoModeNormal})
	mustSucceed(t, e, target, SetVideoMode{Meta: NewMeta(0), Value: adapter.VideoModeNormal})

	if got := cam.Writes(adapter.PropertyMode.Name()); got != 1 {
		t.Errorf("Expected 1 mode write, got %d", got)
	}
}

func TestFocusRingScalesUpperBound(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	cam := target.camera(t)

	mustSucceed(t, e, target, SetFocusRing{Meta: NewMeta(0), Percent: 0.5})
	if got := cam.Actions("setFocusRingValue"); got != 1 {
		t.Errorf("Expected focus ring action, got %d", got)
	}

	cam.FailRead(adapter.PropertyFocusRingUpperBound.Name(), adapter.ErrBusy)
	_, outcome := execute(t, e, target, SetFocusRing{Meta: NewMeta(0), Percent: 0.5})
	if !errors.Is(outcome, adapter.ErrBusy) {
		t.Errorf("Expected bound read error, got %v", outcome)
	}
	if got := cam.Actions("setFocusRingValue"); got != 1 {
		t.Errorf("Expected no focus ring action after read error, got %d", got)
	}
}

func TestParameterValidation(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)

	tests := []Command{
		SetFocusRing{Meta: NewMeta(0), Percent: 1.5},
		Focus{Meta: NewMeta(0), Target: adapter.Point{X: -0.1, Y: 0.5}},
		SetSpotMeteringTarget{Meta: NewMeta(0), Target: adapter.Point{X: 0.5, Y: 2}},
		SetWhiteBalanceCustom{Meta: NewMeta(0), Kelvin: 30000},
		SetExposureMode{Meta: NewMeta(0), Value: "bogus"},
		SetMode{Meta: NewMeta(0), Value: adapter.CameraModeUnknown},
		SetExposureCompensation{Meta: NewMeta(0), Value: "+9.0"},
		SetSaturation{Meta: NewMeta(0), Value: -4},
		SetGimbalMode{Meta: NewMeta(0), Value: "orbit"},
	}
	cam := target.camera(t)
	for _, cmd := range tests {
		rejected, _ := execute(t, e, target, cmd)
		if !errors.Is(rejected, ErrInvalidParameter) {
			t.Errorf("%s: expected ErrInvalidParameter, got %v", cmd.Kind(), rejected)
		}
	}
	if got := cam.TotalWrites(); got != 0 {
		t.Errorf("Expected no writes for rejected commands, got %d", got)
	}

	mustSucceed(t, e, target, SetSpotMeteringTarget{Meta: NewMeta(0), Target: adapter.Point{X: 1, Y: 1}})
	mustSucceed(t, e, target, SetWhiteBalanceCustom{Meta: NewMeta(0), Kelvin: 5600})
	wb, err := adapter.Get(context.Background(), cam, adapter.PropertyWhiteBalance)
	if err != nil {
		t.Fatalf("Get(whiteBalance) failed: %v", err)
	}
	if wb.ColorTemperature != 56 {
		t.Errorf("Expected colour temperature 56, got %d", wb.ColorTemperature)
	}
}

func TestUnavailableChannelIsRejected(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)

	tests := []Command{
		SetExposureMode{Meta: NewMeta(5), Value: adapter.ExposureModeManual},
		StartCapture{Meta: NewMeta(1)},
		SetGimbalMode{Meta: NewMeta(2), Value: adapter.GimbalModeFPV},
	}
	for _, cmd := range tests {
		called := false
		err := e.Execute(context.Background(), cmd, target, func(error) { called = true })
		if !errors.Is(err, adapter.ErrUnavailable) {
			t.Errorf("%s: expected ErrUnavailable, got %v", cmd.Kind(), err)
		}
		if called {
			t.Errorf("%s: completion must not be called for a rejected command", cmd.Kind())
		}
	}
}

type unknownCommand struct {
	Meta
}

func (unknownCommand) Kind() Kind { return "teleport" }

type impostorCommand struct {
	Meta
}

func (impostorCommand) Kind() Kind { return KindISO }

func TestUnhandledCommandFails(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)

	for _, cmd := range []Command{nil, unknownCommand{NewMeta(0)}, impostorCommand{NewMeta(0)}} {
		err := e.Execute(context.Background(), cmd, target, func(error) {
			t.Error("completion must not be called for an unhandled command")
		})
		if !errors.Is(err, ErrUnhandled) {
			t.Errorf("Expected ErrUnhandled for %T, got %v", cmd, err)
		}
	}
}

func TestEveryKindIsHandled(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)

	for _, kind := range Kinds() {
		cmd, err := New(kind)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", kind, err)
		}
		if _, err := e.plan(cmd, target); errors.Is(err, ErrUnhandled) {
			t.Errorf("kind %s falls through to unhandled", kind)
		}
	}
}

func TestGimbalCommands(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	gimbal, _ := target.drone.FakeGimbal(0)

	mustSucceed(t, e, target, SetGimbalMode{Meta: NewMeta(0), Value: adapter.GimbalModeFPV})
	mustSucceed(t, e, target, SetGimbalMode{Meta: NewMeta(0), Value: adapter.GimbalModeFPV})
	if got := gimbal.Writes(); got != 1 {
		t.Errorf("Expected 1 gimbal mode write, got %d", got)
	}

	mustSucceed(t, e, target, ResetGimbal{Meta: NewMeta(0)})
	mustSucceed(t, e, target, ResetGimbal{Meta: NewMeta(0)})
	if got := gimbal.Resets(); got != 2 {
		t.Errorf("Expected reset to run every time, got %d", got)
	}

	mustSucceed(t, e, target, FineTuneGimbalRoll{Meta: NewMeta(0), Degrees: 1.5})
	state, _ := gimbal.State(context.Background())
	if state.Attitude.Roll != 1.5 {
		t.Errorf("Expected roll 1.5, got %v", state.Attitude.Roll)
	}
}

func TestFlightControllerCommands(t *testing.T) {
	e := newTestEngine()
	target := newTestTarget(t)
	fc := target.drone.FakeFlightController()

	_, outcome := execute(t, e, target, StartGoHome{Meta: NewMeta(0)})
	if !errors.Is(outcome, adapter.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState while landed, got %v", outcome)
	}

	fc.SetFlying(true)
	mustSucceed(t, e, target, StartLanding{Meta: NewMeta(0)})
	state, _ := fc.State(context.Background())
	if !state.IsLanding {
		t.Error("Expected aircraft landing")
	}
}
