package command

import (
	"github.com/google/uuid"

	"github.com/dronelink/dronelinkd/internal/adapter"
)

// Kind names a command variant. It doubles as the JSON "type" discriminator.
type Kind string

// Camera kinds.
const (
	KindAEBCount                     Kind = "aebCount"
	KindAperture                     Kind = "aperture"
	KindAutoExposureLock             Kind = "autoExposureLock"
	KindAutoLockGimbal               Kind = "autoLockGimbal"
	KindColor                        Kind = "color"
	KindContrast                     Kind = "contrast"
	KindExposureCompensation         Kind = "exposureCompensation"
	KindExposureCompensationStep     Kind = "exposureCompensationStep"
	KindExposureMode                 Kind = "exposureMode"
	KindFileIndexMode                Kind = "fileIndexMode"
	KindFocus                        Kind = "focus"
	KindFocusMode                    Kind = "focusMode"
	KindFocusRing                    Kind = "focusRing"
	KindISO                          Kind = "iso"
	KindMechanicalShutter            Kind = "mechanicalShutter"
	KindMeteringMode                 Kind = "meteringMode"
	KindMode                         Kind = "mode"
	KindPhotoAspectRatio             Kind = "photoAspectRatio"
	KindPhotoFileFormat              Kind = "photoFileFormat"
	KindPhotoInterval                Kind = "photoInterval"
	KindPhotoMode                    Kind = "photoMode"
	KindSaturation                   Kind = "saturation"
	KindSharpness                    Kind = "sharpness"
	KindShutterSpeed                 Kind = "shutterSpeed"
	KindSpotMeteringTarget           Kind = "spotMeteringTarget"
	KindStartCapture                 Kind = "startCapture"
	KindStopCapture                  Kind = "stopCapture"
	KindStorageLocation              Kind = "storageLocation"
	KindVideoCaption                 Kind = "videoCaption"
	KindVideoFileCompressionStandard Kind = "videoFileCompressionStandard"
	KindVideoFileFormat              Kind = "videoFileFormat"
	KindVideoMode                    Kind = "videoMode"
	KindVideoResolutionFrameRate     Kind = "videoResolutionFrameRate"
	KindVideoStandard                Kind = "videoStandard"
	KindWhiteBalanceCustom           Kind = "whiteBalanceCustom"
	KindWhiteBalancePreset           Kind = "whiteBalancePreset"
)

// Gimbal and flight controller kinds.
const (
	KindGimbalMode         Kind = "gimbalMode"
	KindGimbalReset        Kind = "gimbalReset"
	KindGimbalFineTuneRoll Kind = "gimbalFineTuneRoll"
	KindStartGoHome        Kind = "startGoHome"
	KindStartLanding       Kind = "startLanding"
)

// Meta identifies a command and the unit it addresses.
type Meta struct {
	ID      string `json:"id"`
	Channel uint   `json:"channel"`
}

// NewMeta returns metadata with a fresh ID.
func NewMeta(channel uint) Meta {
	return Meta{ID: uuid.NewString(), Channel: channel}
}

// Metadata returns m.
func (m Meta) Metadata() Meta { return m }

func (Meta) sealed() {}

func (m *Meta) ensureID() {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
}

// Command is the closed set of requests the engine executes. Implementations live
// in this package only; every variant embeds Meta.
type Command interface {
	Kind() Kind
	Metadata() Meta
	sealed()
}

type SetAEBCount struct {
	Meta
	Value adapter.AEBCount `json:"value"`
}

// SetAperture is checked against the cached exposure settings.
type SetAperture struct {
	Meta
	Value adapter.Aperture `json:"value"`
}

type SetAutoExposureLock struct {
	Meta
	Enabled bool `json:"enabled"`
}

type SetAutoLockGimbal struct {
	Meta
	Enabled bool `json:"enabled"`
}

type SetColor struct {
	Meta
	Value adapter.CameraColor `json:"value"`
}

type SetContrast struct {
	Meta
	Value int `json:"value"`
}

// SetExposureCompensation is checked against the cached exposure settings.
type SetExposureCompensation struct {
	Meta
	Value adapter.ExposureCompensation `json:"value"`
}

// StepExposureCompensation moves the cached compensation by Steps thirds of a stop.
type StepExposureCompensation struct {
	Meta
	Steps int `json:"steps"`
}

type SetExposureMode struct {
	Meta
	Value adapter.ExposureMode `json:"value"`
}

type SetFileIndexMode struct {
	Meta
	Value adapter.FileIndexMode `json:"value"`
}

// Focus focuses on a normalized view point. It is an action, never skipped.
type Focus struct {
	Meta
	Target adapter.Point `json:"target"`
}

type SetFocusMode struct {
	Meta
	Value adapter.FocusMode `json:"value"`
}

// SetFocusRing positions the focus ring at Percent (0..1) of its travel.
type SetFocusRing struct {
	Meta
	Percent float64 `json:"percent"`
}

// SetISO is checked against the cached exposure settings.
type SetISO struct {
	Meta
	Value adapter.ISO `json:"value"`
}

type SetMechanicalShutter struct {
	Meta
	Enabled bool `json:"enabled"`
}

type SetMeteringMode struct {
	Meta
	Value adapter.MeteringMode `json:"value"`
}

// SetMode selects the camera work mode. Flat-mode cameras get the flat equivalent.
type SetMode struct {
	Meta
	Value adapter.CameraMode `json:"value"`
}

type SetPhotoAspectRatio struct {
	Meta
	Value adapter.PhotoAspectRatio `json:"value"`
}

type SetPhotoFileFormat struct {
	Meta
	Value adapter.PhotoFileFormat `json:"value"`
}

// SetPhotoInterval configures interval shooting with an unbounded capture count.
type SetPhotoInterval struct {
	Meta
	Seconds uint16 `json:"seconds"`
}

// SetPhotoMode selects the photo sub-mode. Flat-mode cameras get the flat equivalent.
type SetPhotoMode struct {
	Meta
	Value adapter.ShootPhotoMode `json:"value"`
}

type SetSaturation struct {
	Meta
	Value int `json:"value"`
}

type SetSharpness struct {
	Meta
	Value int `json:"value"`
}

// SetShutterSpeed is checked against the cached exposure settings.
type SetShutterSpeed struct {
	Meta
	Value adapter.ShutterSpeed `json:"value"`
}

// SetSpotMeteringTarget meters on a normalized view point.
type SetSpotMeteringTarget struct {
	Meta
	Target adapter.Point `json:"target"`
}

// StartCapture starts photo or video capture depending on the camera mode.
// VerifyFileCreated makes photo capture wait for the new file.
type StartCapture struct {
	Meta
	VerifyFileCreated bool `json:"verifyFileCreated"`
}

// StopCapture stops interval shooting or video recording.
type StopCapture struct {
	Meta
}

type SetStorageLocation struct {
	Meta
	Value adapter.StorageLocation `json:"value"`
}

type SetVideoCaption struct {
	Meta
	Enabled bool `json:"enabled"`
}

type SetVideoFileCompressionStandard struct {
	Meta
	Value adapter.VideoFileCompressionStandard `json:"value"`
}

type SetVideoFileFormat struct {
	Meta
	Value adapter.VideoFileFormat `json:"value"`
}

// SetVideoMode switches to video. Flat-mode cameras get the flat equivalent of Value.
type SetVideoMode struct {
	Meta
	Value adapter.VideoMode `json:"value"`
}

type SetVideoResolutionFrameRate struct {
	Meta
	Resolution  adapter.VideoResolution  `json:"resolution"`
	FrameRate   adapter.VideoFrameRate   `json:"frameRate"`
	FieldOfView adapter.VideoFieldOfView `json:"fieldOfView"`
}

type SetVideoStandard struct {
	Meta
	Value adapter.VideoStandard `json:"value"`
}

// SetWhiteBalanceCustom sets a custom colour temperature in kelvin.
type SetWhiteBalanceCustom struct {
	Meta
	Kelvin int `json:"kelvin"`
}

// SetWhiteBalancePreset only compares the preset, not the colour temperature.
type SetWhiteBalancePreset struct {
	Meta
	Value adapter.WhiteBalancePreset `json:"value"`
}

type SetGimbalMode struct {
	Meta
	Value adapter.GimbalMode `json:"value"`
}

type ResetGimbal struct {
	Meta
}

type FineTuneGimbalRoll struct {
	Meta
	Degrees float64 `json:"degrees"`
}

type StartGoHome struct {
	Meta
}

type StartLanding struct {
	Meta
}

func (SetAEBCount) Kind() Kind                     { return KindAEBCount }
func (SetAperture) Kind() Kind                     { return KindAperture }
func (SetAutoExposureLock) Kind() Kind             { return KindAutoExposureLock }
func (SetAutoLockGimbal) Kind() Kind               { return KindAutoLockGimbal }
func (SetColor) Kind() Kind                        { return KindColor }
func (SetContrast) Kind() Kind                     { return KindContrast }
func (SetExposureCompensation) Kind() Kind         { return KindExposureCompensation }
func (StepExposureCompensation) Kind() Kind        { return KindExposureCompensationStep }
func (SetExposureMode) Kind() Kind                 { return KindExposureMode }
func (SetFileIndexMode) Kind() Kind                { return KindFileIndexMode }
func (Focus) Kind() Kind                           { return KindFocus }
func (SetFocusMode) Kind() Kind                    { return KindFocusMode }
func (SetFocusRing) Kind() Kind                    { return KindFocusRing }
func (SetISO) Kind() Kind                          { return KindISO }
func (SetMechanicalShutter) Kind() Kind            { return KindMechanicalShutter }
func (SetMeteringMode) Kind() Kind                 { return KindMeteringMode }
func (SetMode) Kind() Kind                         { return KindMode }
func (SetPhotoAspectRatio) Kind() Kind             { return KindPhotoAspectRatio }
func (SetPhotoFileFormat) Kind() Kind              { return KindPhotoFileFormat }
func (SetPhotoInterval) Kind() Kind                { return KindPhotoInterval }
func (SetPhotoMode) Kind() Kind                    { return KindPhotoMode }
func (SetSaturation) Kind() Kind                   { return KindSaturation }
func (SetSharpness) Kind() Kind                    { return KindSharpness }
func (SetShutterSpeed) Kind() Kind                 { return KindShutterSpeed }
func (SetSpotMeteringTarget) Kind() Kind           { return KindSpotMeteringTarget }
func (StartCapture) Kind() Kind                    { return KindStartCapture }
func (StopCapture) Kind() Kind                     { return KindStopCapture }
func (SetStorageLocation) Kind() Kind              { return KindStorageLocation }
func (SetVideoCaption) Kind() Kind                 { return KindVideoCaption }
func (SetVideoFileCompressionStandard) Kind() Kind { return KindVideoFileCompressionStandard }
func (SetVideoFileFormat) Kind() Kind              { return KindVideoFileFormat }
func (SetVideoMode) Kind() Kind                    { return KindVideoMode }
func (SetVideoResolutionFrameRate) Kind() Kind     { return KindVideoResolutionFrameRate }
func (SetVideoStandard) Kind() Kind                { return KindVideoStandard }
func (SetWhiteBalanceCustom) Kind() Kind           { return KindWhiteBalanceCustom }
func (SetWhiteBalancePreset) Kind() Kind           { return KindWhiteBalancePreset }
func (SetGimbalMode) Kind() Kind                   { return KindGimbalMode }
func (ResetGimbal) Kind() Kind                     { return KindGimbalReset }
func (FineTuneGimbalRoll) Kind() Kind              { return KindGimbalFineTuneRoll }
func (StartGoHome) Kind() Kind                     { return KindStartGoHome }
func (StartLanding) Kind() Kind                    { return KindStartLanding }
