package adapter

import (
	"context"
	"errors"
	"testing"
)

// mapStore is a minimal PropertyStore backed by a map.
type mapStore map[string]any

func (m mapStore) Get(ctx context.Context, name string) (any, error) {
	v, ok := m[name]
	if !ok {
		return nil, ErrUnavailable
	}
	return v, nil
}

func (m mapStore) Set(ctx context.Context, name string, value any) error {
	m[name] = value
	return nil
}

func TestGetSetRoundTrip(t *testing.T) {
	store := mapStore{}
	ctx := context.Background()

	if err := Set(ctx, store, PropertyExposureMode, ExposureModeManual); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	got, err := Get(ctx, store, PropertyExposureMode)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != ExposureModeManual {
		t.Errorf("Expected %q, got %q", ExposureModeManual, got)
	}

	target := VideoResolutionFrameRate{Resolution: "3840x2160", FrameRate: "30", FieldOfView: "default"}
	_ = Set(ctx, store, PropertyVideoResolutionFrameRate, target)
	current, _ := Get(ctx, store, PropertyVideoResolutionFrameRate)
	if current != target {
		t.Errorf("Expected composite value %+v, got %+v", target, current)
	}
}

func TestGetWrongTypeIsInternal(t *testing.T) {
	store := mapStore{"contrast": "high"}

	_, err := Get(context.Background(), store, PropertyContrast)
	if !errors.Is(err, ErrInternal) {
		t.Errorf("Expected ErrInternal for mistyped value, got %v", err)
	}
}

func TestExposureCompensationOffset(t *testing.T) {
	tests := []struct {
		start ExposureCompensation
		steps int
		want  ExposureCompensation
	}{
		{"0.0", 1, "+0.3"},
		{"0.0", -3, "-1.0"},
		{"+4.7", 5, "+5.0"},
		{"-4.7", -5, "-5.0"},
		{"bogus", 2, "+0.7"},
		{"+1.0", 0, "+1.0"},
	}
	for _, tt := range tests {
		if got := tt.start.Offset(tt.steps); got != tt.want {
			t.Errorf("%q.Offset(%d) = %q, want %q", tt.start, tt.steps, got, tt.want)
		}
	}
}

func TestCameraStateHelpers(t *testing.T) {
	var s CameraState
	if !s.IsSDCardInserted() {
		t.Error("Expected camera without storage reporting to count as inserted")
	}
	if s.ExposureCompensation() != ExposureCompensationZero {
		t.Errorf("Expected zero compensation, got %q", s.ExposureCompensation())
	}

	s = CameraState{IsCapturingVideo: true, Storage: &StorageState{Inserted: false}}
	if !s.IsCapturing() {
		t.Error("Expected IsCapturing while recording")
	}
	if s.IsSDCardInserted() {
		t.Error("Expected missing SD card to be reported")
	}
}

func TestCustomWhiteBalance(t *testing.T) {
	wb, err := CustomWhiteBalance(5650)
	if err != nil {
		t.Fatalf("CustomWhiteBalance() failed: %v", err)
	}
	if wb.Preset != WhiteBalanceCustom || wb.ColorTemperature != 56 {
		t.Errorf("Expected custom/56, got %+v", wb)
	}

	for _, kelvin := range []int{-100, 0, 1999, 10001, 25600, 30000} {
		if _, err := CustomWhiteBalance(kelvin); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("%dK: expected ErrInvalidRange, got %v", kelvin, err)
		}
	}
	for _, kelvin := range []int{MinWhiteBalanceKelvin, MaxWhiteBalanceKelvin} {
		if _, err := CustomWhiteBalance(kelvin); err != nil {
			t.Errorf("%dK: expected success, got %v", kelvin, err)
		}
	}
}

func TestEnumValid(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"exposure mode", ExposureModeManual.Valid()},
		{"camera mode", CameraModeVideo.Valid()},
		{"gimbal mode", GimbalModeYawFollow.Valid()},
		{"white balance preset", WhiteBalanceCloudy.Valid()},
		{"point corner", Point{X: 1, Y: 0}.Valid()},
		{"bogus exposure mode", !ExposureMode("bogus").Valid()},
		{"unknown camera mode", !CameraModeUnknown.Valid()},
		{"empty metering mode", !MeteringMode("").Valid()},
		{"empty ISO", !ISO("").Valid()},
		{"partial video format", !VideoResolutionFrameRate{Resolution: "1920x1080"}.Valid()},
		{"point outside", !Point{X: 1.01, Y: 0}.Valid()},
	}
	for _, tt := range tests {
		if !tt.valid {
			t.Errorf("%s: unexpected validity", tt.name)
		}
	}
}
