package adapter

import "time"

// ExposureSettings are the exposure values reported with camera state.
type ExposureSettings struct {
	Aperture             Aperture             `json:"aperture"`
	ShutterSpeed         ShutterSpeed         `json:"shutterSpeed"`
	ISO                  ISO                  `json:"iso"`
	ExposureCompensation ExposureCompensation `json:"exposureCompensation"`
}

// StorageState describes the active storage medium.
type StorageState struct {
	Inserted       bool  `json:"inserted"`
	RemainingBytes int64 `json:"remainingBytes"`
}

// CameraState is an immutable camera snapshot. Snapshots are replaced, never edited.
type CameraState struct {
	Mode                     CameraMode        `json:"mode"`
	IsBusy                   bool              `json:"isBusy"`
	IsCapturingPhotoInterval bool              `json:"isCapturingPhotoInterval"`
	IsCapturingVideo         bool              `json:"isCapturingVideo"`
	IsShootingSinglePhoto    bool              `json:"isShootingSinglePhoto"`
	IsShootingBurstPhoto     bool              `json:"isShootingBurstPhoto"`
	Storage                  *StorageState     `json:"storage,omitempty"`
	Exposure                 *ExposureSettings `json:"exposure,omitempty"`
	LensInformation          string            `json:"lensInformation,omitempty"`
}

// IsCapturing reports whether any capture is in progress.
func (s CameraState) IsCapturing() bool {
	return s.IsCapturingVideo || s.IsCapturingPhotoInterval || s.IsShootingSinglePhoto || s.IsShootingBurstPhoto
}

// IsSDCardInserted treats a camera without storage reporting as inserted.
func (s CameraState) IsSDCardInserted() bool {
	if s.Storage == nil {
		return true
	}
	return s.Storage.Inserted
}

// ExposureCompensation returns the current compensation, or zero when unreported.
func (s CameraState) ExposureCompensation() ExposureCompensation {
	if s.Exposure == nil || !s.Exposure.ExposureCompensation.Valid() {
		return ExposureCompensationZero
	}
	return s.Exposure.ExposureCompensation
}

// CameraFile describes a media file generated by a camera.
type CameraFile struct {
	Channel uint      `json:"channel"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// Attitude is an orientation in degrees.
type Attitude struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// GimbalState is an immutable gimbal snapshot.
type GimbalState struct {
	Mode     GimbalMode `json:"mode"`
	Attitude Attitude   `json:"attitude"`
}

// StickState holds stick positions normalized to [-1,1].
type StickState struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
}

// ButtonState reports whether a button exists and is pressed.
type ButtonState struct {
	Present bool `json:"present"`
	Pressed bool `json:"pressed"`
}

// RemoteControllerState is an immutable remote controller snapshot.
type RemoteControllerState struct {
	LeftStick   StickState  `json:"leftStick"`
	RightStick  StickState  `json:"rightStick"`
	PauseButton ButtonState `json:"pauseButton"`
	C1Button    ButtonState `json:"c1Button"`
	C2Button    ButtonState `json:"c2Button"`
}

// FlightControllerState is an immutable flight controller snapshot.
type FlightControllerState struct {
	IsFlying       bool     `json:"isFlying"`
	IsGoingHome    bool     `json:"isGoingHome"`
	IsLanding      bool     `json:"isLanding"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Altitude       float64  `json:"altitude"`
	Attitude       Attitude `json:"attitude"`
	BatteryPercent int      `json:"batteryPercent"`
}
