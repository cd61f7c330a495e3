package adapter

// CameraMode is the camera's work mode.
type CameraMode string

const (
	CameraModePhoto    CameraMode = "photo"
	CameraModeVideo    CameraMode = "video"
	CameraModePlayback CameraMode = "playback"
	CameraModeDownload CameraMode = "download"
	CameraModeUnknown  CameraMode = "unknown"
)

type ExposureMode string

const (
	ExposureModeProgram          ExposureMode = "program"
	ExposureModeShutterPriority  ExposureMode = "shutterPriority"
	ExposureModeAperturePriority ExposureMode = "aperturePriority"
	ExposureModeManual           ExposureMode = "manual"
)

type AEBCount string

const (
	AEBCount3 AEBCount = "3"
	AEBCount5 AEBCount = "5"
	AEBCount7 AEBCount = "7"
)

type Aperture string
type ShutterSpeed string
type ISO string

type CameraColor string

const (
	CameraColorNone       CameraColor = "none"
	CameraColorArt        CameraColor = "art"
	CameraColorBlackWhite CameraColor = "blackAndWhite"
	CameraColorDLog       CameraColor = "dLog"
)

type FileIndexMode string

const (
	FileIndexModeReset    FileIndexMode = "reset"
	FileIndexModeSequence FileIndexMode = "sequence"
)

type FocusMode string

const (
	FocusModeManual FocusMode = "manual"
	FocusModeAuto   FocusMode = "auto"
	FocusModeAFC    FocusMode = "afc"
)

type MeteringMode string

const (
	MeteringModeCenter  MeteringMode = "center"
	MeteringModeAverage MeteringMode = "average"
	MeteringModeSpot    MeteringMode = "spot"
)

type PhotoAspectRatio string

const (
	PhotoAspectRatio4x3  PhotoAspectRatio = "4x3"
	PhotoAspectRatio16x9 PhotoAspectRatio = "16x9"
	PhotoAspectRatio3x2  PhotoAspectRatio = "3x2"
)

type PhotoFileFormat string

const (
	PhotoFileFormatRAW     PhotoFileFormat = "raw"
	PhotoFileFormatJPEG    PhotoFileFormat = "jpeg"
	PhotoFileFormatRAWJPEG PhotoFileFormat = "rawAndJpeg"
)

// ShootPhotoMode is the photo sub-mode on cameras without flat mode support.
type ShootPhotoMode string

const (
	ShootPhotoModeSingle   ShootPhotoMode = "single"
	ShootPhotoModeHDR      ShootPhotoMode = "hdr"
	ShootPhotoModeBurst    ShootPhotoMode = "burst"
	ShootPhotoModeAEB      ShootPhotoMode = "aeb"
	ShootPhotoModeInterval ShootPhotoMode = "interval"
)

// FlatMode merges work mode and photo sub-mode on cameras that support it.
type FlatMode string

const (
	FlatModeVideoNormal   FlatMode = "videoNormal"
	FlatModeVideoHDR      FlatMode = "videoHDR"
	FlatModeSlowMotion    FlatMode = "slowMotion"
	FlatModePhotoSingle   FlatMode = "photoSingle"
	FlatModePhotoHDR      FlatMode = "photoHDR"
	FlatModePhotoBurst    FlatMode = "photoBurst"
	FlatModePhotoAEB      FlatMode = "photoAEB"
	FlatModePhotoInterval FlatMode = "photoInterval"
)

// FlatModeForShootPhotoMode maps a photo sub-mode onto its flat equivalent.
func FlatModeForShootPhotoMode(mode ShootPhotoMode) FlatMode {
	switch mode {
	case ShootPhotoModeHDR:
		return FlatModePhotoHDR
	case ShootPhotoModeBurst:
		return FlatModePhotoBurst
	case ShootPhotoModeAEB:
		return FlatModePhotoAEB
	case ShootPhotoModeInterval:
		return FlatModePhotoInterval
	default:
		return FlatModePhotoSingle
	}
}

// FlatModeForCameraMode maps a work mode onto its flat equivalent.
func FlatModeForCameraMode(mode CameraMode) FlatMode {
	if mode == CameraModeVideo {
		return FlatModeVideoNormal
	}
	return FlatModePhotoSingle
}

// VideoMode is the recording sub-mode.
type VideoMode string

const (
	VideoModeNormal     VideoMode = "normal"
	VideoModeHDR        VideoMode = "hdr"
	VideoModeSlowMotion VideoMode = "slowMotion"
)

// FlatModeForVideoMode maps a recording sub-mode onto its flat equivalent.
func FlatModeForVideoMode(mode VideoMode) FlatMode {
	switch mode {
	case VideoModeHDR:
		return FlatModeVideoHDR
	case VideoModeSlowMotion:
		return FlatModeSlowMotion
	default:
		return FlatModeVideoNormal
	}
}

type StorageLocation string

const (
	StorageLocationSDCard   StorageLocation = "sdCard"
	StorageLocationInternal StorageLocation = "internal"
)

type VideoFileCompressionStandard string

const (
	VideoFileCompressionH264 VideoFileCompressionStandard = "h264"
	VideoFileCompressionH265 VideoFileCompressionStandard = "h265"
)

type VideoFileFormat string

const (
	VideoFileFormatMOV VideoFileFormat = "mov"
	VideoFileFormatMP4 VideoFileFormat = "mp4"
)

type VideoStandard string

const (
	VideoStandardPAL  VideoStandard = "pal"
	VideoStandardNTSC VideoStandard = "ntsc"
)

type VideoResolution string
type VideoFrameRate string
type VideoFieldOfView string

type WhiteBalancePreset string

const (
	WhiteBalanceAuto        WhiteBalancePreset = "auto"
	WhiteBalanceSunny       WhiteBalancePreset = "sunny"
	WhiteBalanceCloudy      WhiteBalancePreset = "cloudy"
	WhiteBalanceIndoor      WhiteBalancePreset = "indoorIncandescent"
	WhiteBalanceFluorescent WhiteBalancePreset = "indoorFluorescent"
	WhiteBalanceCustom      WhiteBalancePreset = "custom"
)

// WhiteBalance is a preset or, for WhiteBalanceCustom, a colour temperature in
// hundreds of kelvin.
type WhiteBalance struct {
	Preset           WhiteBalancePreset `json:"preset"`
	ColorTemperature uint8              `json:"colorTemperature,omitempty"`
}

// PhotoTimeIntervalSettings configures interval shooting.
type PhotoTimeIntervalSettings struct {
	CaptureCount    uint8  `json:"captureCount"`
	IntervalSeconds uint16 `json:"intervalSeconds"`
}

// VideoResolutionFrameRate is the combined video format setting.
type VideoResolutionFrameRate struct {
	Resolution  VideoResolution  `json:"resolution"`
	FrameRate   VideoFrameRate   `json:"frameRate"`
	FieldOfView VideoFieldOfView `json:"fieldOfView"`
}

type GimbalMode string

const (
	GimbalModeFree      GimbalMode = "free"
	GimbalModeFPV       GimbalMode = "fpv"
	GimbalModeYawFollow GimbalMode = "yawFollow"
)

// Point is a normalized view coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ExposureCompensation is an EV offset in thirds of a stop.
type ExposureCompensation string

// exposureCompensationSteps is ordered from lowest to highest EV.
var exposureCompensationSteps = []ExposureCompensation{
	"-5.0", "-4.7", "-4.3", "-4.0", "-3.7", "-3.3", "-3.0", "-2.7", "-2.3", "-2.0",
	"-1.7", "-1.3", "-1.0", "-0.7", "-0.3", "0.0", "+0.3", "+0.7", "+1.0", "+1.3",
	"+1.7", "+2.0", "+2.3", "+2.7", "+3.0", "+3.3", "+3.7", "+4.0", "+4.3", "+4.7",
	"+5.0",
}

// ExposureCompensationZero is the neutral exposure compensation.
const ExposureCompensationZero ExposureCompensation = "0.0"

// Valid reports whether e is one of the supported steps.
func (e ExposureCompensation) Valid() bool {
	return e.index() >= 0
}

// Offset moves e by steps thirds of a stop, clamped to the supported range.
// An unknown value is treated as zero.
func (e ExposureCompensation) Offset(steps int) ExposureCompensation {
	i := e.index()
	if i < 0 {
		i = ExposureCompensationZero.index()
	}
	i += steps
	if i < 0 {
		i = 0
	}
	if i >= len(exposureCompensationSteps) {
		i = len(exposureCompensationSteps) - 1
	}
	return exposureCompensationSteps[i]
}

func (e ExposureCompensation) index() int {
	for i, step := range exposureCompensationSteps {
		if step == e {
			return i
		}
	}
	return -1
}
