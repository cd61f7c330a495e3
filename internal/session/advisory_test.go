package session

import "testing"

func TestFlyZoneMessages(t *testing.T) {
	tests := []struct {
		state FlyZoneState
		want  string
		level MessageLevel
	}{
		{FlyZoneClear, "", ""},
		{FlyZoneUnknown, "", ""},
		{FlyZoneInWarningZone, "Warning zone", MessageWarning},
		{FlyZoneNearRestrictedZone, "Near restricted zone", MessageWarning},
		{FlyZoneInRestrictedZone, "Restricted zone", MessageDanger},
	}

	for _, tt := range tests {
		msg, ok := tt.state.Message()
		if ok != (tt.want != "") {
			t.Errorf("%s: expected message %v, got %v", tt.state, tt.want != "", ok)
			continue
		}
		if msg.Title != tt.want || msg.Level != tt.level {
			t.Errorf("%s: expected %q/%s, got %q/%s", tt.state, tt.want, tt.level, msg.Title, msg.Level)
		}
		if !tt.state.Valid() {
			t.Errorf("%s: expected valid", tt.state)
		}
	}

	if FlyZoneState("nearAirport").Valid() {
		t.Error("Expected unknown airspace state to be invalid")
	}
}

func TestActivationMessages(t *testing.T) {
	for _, state := range []ActivationState{ActivationNotSupported, ActivationActivated, ActivationUnknown} {
		if _, ok := state.Message(); ok {
			t.Errorf("%s: expected no message", state)
		}
	}

	msg, ok := ActivationLoginRequired.Message()
	if !ok || msg.Level != MessageError {
		t.Errorf("Expected login required error message, got %+v", msg)
	}
	if ActivationState("banned").Valid() {
		t.Error("Expected unknown activation state to be invalid")
	}
}
