package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/adapter/fake"
	"github.com/dronelink/dronelinkd/internal/command"
	"github.com/dronelink/dronelinkd/internal/config"
)

// recordingReporter collects command reports.
type recordingReporter struct {
	mu      sync.Mutex
	reports []CommandReport
}

func (r *recordingReporter) CommandFinished(ctx context.Context, report CommandReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recordingReporter) all() []CommandReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CommandReport(nil), r.reports...)
}

func testTiming() *config.TimingConfig {
	timing := config.LoadTimingBaseline()
	timing.CaptureSettleDelay = 5 * time.Millisecond
	timing.StopVideoSettleDelay = 5 * time.Millisecond
	timing.BusyPollInterval = 2 * time.Millisecond
	timing.FilePollInterval = 2 * time.Millisecond
	timing.CommandTimeout = time.Second
	timing.StateRefreshInterval = 0
	return timing
}

func testOptions(reporter Reporter) Options {
	return Options{
		Timing:   testTiming(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Reporter: reporter,
	}
}

func openTestSession(t *testing.T, opts Options) (*Session, *fake.Drone, *fake.Camera) {
	t.Helper()
	drone := fake.NewDrone("Sim")
	s := Open(drone, opts)
	t.Cleanup(func() { s.Close() })
	cam, _ := drone.FakeCamera(0)
	return s, drone, cam
}

func TestSessionRunIsIdempotent(t *testing.T) {
	reporter := &recordingReporter{}
	s, _, cam := openTestSession(t, testOptions(reporter))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Run(ctx, command.SetISO{Meta: command.NewMeta(0), Value: "400"}); err != nil {
			t.Fatalf("Run() #%d failed: %v", i+1, err)
		}
	}

	if got := cam.Writes(adapter.PropertyISO.Name()); got != 1 {
		t.Errorf("Expected 1 ISO write, got %d", got)
	}
	reports := reporter.all()
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}
	for _, r := range reports {
		if r.SessionID != s.ID() || r.Kind != command.KindISO || r.Err != nil || r.Rejected {
			t.Errorf("Unexpected report %+v", r)
		}
	}
}

func TestSessionFetchesMissingCameraStateOnce(t *testing.T) {
	s, _, cam := openTestSession(t, testOptions(nil))

	if _, ok := s.CameraState(0); !ok {
		t.Fatal("Expected camera state to be fetched")
	}
	if _, ok := s.CameraState(0); !ok {
		t.Fatal("Expected cached camera state")
	}
	if got := cam.StateReads(); got != 1 {
		t.Errorf("Expected 1 state read, got %d", got)
	}

	if _, ok := s.CameraState(4); ok {
		t.Error("Expected no state for a missing camera")
	}
}

func TestSessionRejectsMissingUnit(t *testing.T) {
	reporter := &recordingReporter{}
	s, _, _ := openTestSession(t, testOptions(reporter))

	err := s.Execute(context.Background(), command.SetColor{Meta: command.NewMeta(3), Value: adapter.CameraColorArt}, func(error) {
		t.Error("completion must not run for a rejected command")
	})

	if !errors.Is(err, adapter.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	reports := reporter.all()
	if len(reports) != 1 || !reports[0].Rejected {
		t.Errorf("Expected one rejected report, got %+v", reports)
	}
}

func TestSessionNormalizesVendorErrors(t *testing.T) {
	opts := testOptions(nil)
	opts.Vendor = "dji"
	s, _, cam := openTestSession(t, opts)
	vendorErr := errors.New("CAMERA_BUSY: try later")
	cam.FailWrite(adapter.PropertyColor.Name(), vendorErr)

	err := s.Run(context.Background(), command.SetColor{Meta: command.NewMeta(0), Value: adapter.CameraColorArt})

	if !errors.Is(err, adapter.ErrBusy) {
		t.Errorf("Expected BUSY, got %v", err)
	}
	if !errors.Is(err, vendorErr) {
		t.Errorf("Expected the vendor error to be kept, got %v", err)
	}
}

func TestSessionKeepsEngineErrors(t *testing.T) {
	s, _, cam := openTestSession(t, testOptions(nil))
	cam.FileDelay = -1

	err := s.Run(context.Background(), command.StartCapture{Meta: command.NewMeta(0), VerifyFileCreated: true})

	if !errors.Is(err, command.ErrNoFileProduced) {
		t.Errorf("Expected ErrNoFileProduced, got %v", err)
	}
	if adapter.IsNormalized(err) {
		t.Errorf("Expected no normalized code on %v", err)
	}
}

func TestSessionCloseAbandonsVerification(t *testing.T) {
	opts := testOptions(nil)
	opts.Timing.CaptureSettleDelay = 50 * time.Millisecond
	s, drone, cam := openTestSession(t, opts)

	result := make(chan error, 1)
	if err := s.Execute(context.Background(), command.StartCapture{Meta: command.NewMeta(0)}, func(err error) { result <- err }); err != nil {
		t.Fatalf("Execute() rejected: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for cam.Actions("startShootPhoto") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("capture action never issued")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	s.Close()

	select {
	case err := <-result:
		if !errors.Is(err, command.ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("verification not abandoned")
	}
	if got := drone.CloseCount(); got != 1 {
		t.Errorf("Expected drone closed once, got %d", got)
	}
	if s.Valid() {
		t.Error("Expected closed session to be invalid")
	}

	err := s.Execute(context.Background(), command.StopCapture{Meta: command.NewMeta(0)}, nil)
	if !errors.Is(err, command.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed after close, got %v", err)
	}
}

func TestSessionComponentEvents(t *testing.T) {
	s, _, _ := openTestSession(t, testOptions(nil))

	s.ComponentConnected(ComponentGimbal, 0)
	s.ComponentConnected(ComponentFlightController, 0)
	s.ComponentConnected("battery", 0)

	state := s.State().Value
	if _, ok := state.Gimbals[0]; !ok {
		t.Error("Expected gimbal 0 snapshot after connect")
	}
	if state.FlightController == nil {
		t.Error("Expected flight controller snapshot after connect")
	}

	s.ComponentDisconnected(ComponentGimbal, 0)
	state = s.State().Value
	if _, ok := state.Gimbals[0]; ok {
		t.Error("Expected gimbal 0 snapshot dropped after disconnect")
	}
	if _, ok := s.Gimbal(0); !ok {
		t.Error("Expected gimbal handle to stay cached")
	}
}

func TestSessionHooksLateCamera(t *testing.T) {
	s, drone, _ := openTestSession(t, testOptions(nil))

	late := drone.AddCamera(1)
	s.ComponentConnected(ComponentCamera, 1)
	s.ComponentConnected(ComponentCamera, 1)

	late.SetState(adapter.CameraState{IsCapturingVideo: true})
	state, ok := s.State().Value.Cameras[1]
	if !ok || !state.Value.IsCapturingVideo {
		t.Errorf("Expected pushed state for late camera, got %+v", state)
	}
}

func TestSessionHandleCacheIsStable(t *testing.T) {
	s, _, _ := openTestSession(t, testOptions(nil))

	first, ok := s.Camera(0)
	if !ok {
		t.Fatal("Expected camera 0")
	}
	second, _ := s.Camera(0)
	if first != second {
		t.Error("Expected the same camera handle on every lookup")
	}
	if _, ok := s.Camera(1); ok {
		t.Error("Expected no camera 1")
	}
}

func TestSessionStatusMessages(t *testing.T) {
	s, _, cam := openTestSession(t, testOptions(nil))

	if msgs := s.State().Value.StatusMessages; len(msgs) != 0 {
		t.Fatalf("Expected no messages, got %+v", msgs)
	}

	cam.SetState(adapter.CameraState{
		Mode:    adapter.CameraModePhoto,
		Storage: &adapter.StorageState{Inserted: false},
	})

	msgs := s.State().Value.StatusMessages
	if len(msgs) != 1 || msgs[0].Title != "SD card missing" {
		t.Errorf("Expected SD card message, got %+v", msgs)
	}
}

func TestSessionRefresh(t *testing.T) {
	s, _, cam := openTestSession(t, testOptions(nil))
	cam.AddFile(time.Now())

	s.Refresh(context.Background())

	state := s.State().Value
	if _, ok := state.Cameras[0]; !ok {
		t.Error("Expected camera snapshot")
	}
	if state.RemoteController == nil || state.FlightController == nil {
		t.Error("Expected remote and flight controller snapshots")
	}
	if state.MostRecentFile == nil || state.MostRecentFile.Value.Name != "DJI_0001.JPG" {
		t.Errorf("Expected most recent file, got %+v", state.MostRecentFile)
	}
}

func TestSessionRefreshLoop(t *testing.T) {
	opts := testOptions(nil)
	opts.Timing.StateRefreshInterval = 5 * time.Millisecond
	s, _, _ := openTestSession(t, opts)

	deadline := time.Now().Add(time.Second)
	for s.State().Value.FlightController == nil {
		if time.Now().After(deadline) {
			t.Fatal("refresh loop never populated the flight controller")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSessionRunHonoursContext(t *testing.T) {
	opts := testOptions(nil)
	opts.Timing.CaptureSettleDelay = 200 * time.Millisecond
	s, _, _ := openTestSession(t, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, command.StartCapture{Meta: command.NewMeta(0)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
