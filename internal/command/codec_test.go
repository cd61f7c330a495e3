package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

func TestKindsAreRegistered(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 41 {
		t.Errorf("Expected 41 kinds, got %d", len(kinds))
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] >= kinds[i] {
			t.Errorf("Kinds not sorted at %d: %s >= %s", i, kinds[i-1], kinds[i])
		}
	}
	for _, kind := range kinds {
		cmd, err := New(kind)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", kind, err)
		}
		if cmd.Kind() != kind {
			t.Errorf("New(%s) built %s", kind, cmd.Kind())
		}
		if cmd.Metadata().ID == "" {
			t.Errorf("New(%s) left the ID empty", kind)
		}
	}
}

func TestDecode(t *testing.T) {
	cmd, err := Decode([]byte(`{"type":"exposureMode","channel":1,"value":"manual"}`))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	c, ok := cmd.(SetExposureMode)
	if !ok {
		t.Fatalf("Expected SetExposureMode, got %T", cmd)
	}
	if c.Channel != 1 {
		t.Errorf("Expected channel 1, got %d", c.Channel)
	}
	if c.Value != adapter.ExposureModeManual {
		t.Errorf("Expected manual, got %q", c.Value)
	}
	if c.ID == "" {
		t.Error("Expected a generated ID")
	}

	cmd, err = Decode([]byte(`{"type":"startCapture","id":"abc","verifyFileCreated":true}`))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	start := cmd.(StartCapture)
	if start.ID != "abc" {
		t.Errorf("Expected ID abc to be kept, got %q", start.ID)
	}
	if !start.VerifyFileCreated {
		t.Error("Expected verifyFileCreated true")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"not json", `{"type":`, ErrInvalidParameter},
		{"missing type", `{"value":"manual"}`, ErrInvalidParameter},
		{"unknown type", `{"type":"teleport"}`, ErrUnknownKind},
		{"wrong value type", `{"type":"contrast","value":"high"}`, ErrInvalidParameter},
		{"unsupported enum value", `{"type":"exposureMode","value":"bogus"}`, ErrInvalidParameter},
		{"missing enum value", `{"type":"gimbalMode"}`, ErrInvalidParameter},
		{"kelvin above range", `{"type":"whiteBalanceCustom","kelvin":30000}`, ErrInvalidParameter},
		{"kelvin below range", `{"type":"whiteBalanceCustom","kelvin":1500}`, ErrInvalidParameter},
		{"contrast out of range", `{"type":"contrast","value":9}`, ErrInvalidParameter},
		{"focus target outside view", `{"type":"focus","target":{"x":1.5,"y":0.5}}`, ErrInvalidParameter},
		{"zero photo interval", `{"type":"photoInterval","seconds":0}`, ErrInvalidParameter},
		{"incomplete video format", `{"type":"videoResolutionFrameRate","resolution":"1920x1080"}`, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEncodeIncludesType(t *testing.T) {
	original := SetVideoResolutionFrameRate{
		Meta:        Meta{ID: "cmd-1", Channel: 2},
		Resolution:  "1920x1080",
		FrameRate:   "60",
		FieldOfView: "wide",
	}

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Encode() produced invalid JSON: %v", err)
	}
	if fields["type"] != string(KindVideoResolutionFrameRate) {
		t.Errorf("Expected type %s, got %v", KindVideoResolutionFrameRate, fields["type"])
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if decoded != Command(original) {
		t.Errorf("Expected %+v, got %+v", original, decoded)
	}
}
