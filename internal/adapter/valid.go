package adapter

import "fmt"

// Valid reports whether m is a mode a camera can be switched to.
func (m CameraMode) Valid() bool {
	switch m {
	case CameraModePhoto, CameraModeVideo, CameraModePlayback, CameraModeDownload:
		return true
	}
	return false
}

func (m ExposureMode) Valid() bool {
	switch m {
	case ExposureModeProgram, ExposureModeShutterPriority, ExposureModeAperturePriority, ExposureModeManual:
		return true
	}
	return false
}

func (c AEBCount) Valid() bool {
	switch c {
	case AEBCount3, AEBCount5, AEBCount7:
		return true
	}
	return false
}

func (c CameraColor) Valid() bool {
	switch c {
	case CameraColorNone, CameraColorArt, CameraColorBlackWhite, CameraColorDLog:
		return true
	}
	return false
}

func (m FileIndexMode) Valid() bool {
	return m == FileIndexModeReset || m == FileIndexModeSequence
}

func (m FocusMode) Valid() bool {
	switch m {
	case FocusModeManual, FocusModeAuto, FocusModeAFC:
		return true
	}
	return false
}

func (m MeteringMode) Valid() bool {
	switch m {
	case MeteringModeCenter, MeteringModeAverage, MeteringModeSpot:
		return true
	}
	return false
}

func (r PhotoAspectRatio) Valid() bool {
	switch r {
	case PhotoAspectRatio4x3, PhotoAspectRatio16x9, PhotoAspectRatio3x2:
		return true
	}
	return false
}

func (f PhotoFileFormat) Valid() bool {
	switch f {
	case PhotoFileFormatRAW, PhotoFileFormatJPEG, PhotoFileFormatRAWJPEG:
		return true
	}
	return false
}

func (m ShootPhotoMode) Valid() bool {
	switch m {
	case ShootPhotoModeSingle, ShootPhotoModeHDR, ShootPhotoModeBurst, ShootPhotoModeAEB, ShootPhotoModeInterval:
		return true
	}
	return false
}

func (m FlatMode) Valid() bool {
	switch m {
	case FlatModeVideoNormal, FlatModeVideoHDR, FlatModeSlowMotion,
		FlatModePhotoSingle, FlatModePhotoHDR, FlatModePhotoBurst, FlatModePhotoAEB, FlatModePhotoInterval:
		return true
	}
	return false
}

func (m VideoMode) Valid() bool {
	switch m {
	case VideoModeNormal, VideoModeHDR, VideoModeSlowMotion:
		return true
	}
	return false
}

func (l StorageLocation) Valid() bool {
	return l == StorageLocationSDCard || l == StorageLocationInternal
}

func (s VideoFileCompressionStandard) Valid() bool {
	return s == VideoFileCompressionH264 || s == VideoFileCompressionH265
}

func (f VideoFileFormat) Valid() bool {
	return f == VideoFileFormatMOV || f == VideoFileFormatMP4
}

func (s VideoStandard) Valid() bool {
	return s == VideoStandardPAL || s == VideoStandardNTSC
}

func (p WhiteBalancePreset) Valid() bool {
	switch p {
	case WhiteBalanceAuto, WhiteBalanceSunny, WhiteBalanceCloudy, WhiteBalanceIndoor, WhiteBalanceFluorescent, WhiteBalanceCustom:
		return true
	}
	return false
}

func (m GimbalMode) Valid() bool {
	switch m {
	case GimbalModeFree, GimbalModeFPV, GimbalModeYawFollow:
		return true
	}
	return false
}

// Aperture, shutter speed, ISO and video format values are model specific, so
// only their presence is checked here; the camera rejects unsupported ones.

func (a Aperture) Valid() bool     { return a != "" }
func (s ShutterSpeed) Valid() bool { return s != "" }
func (i ISO) Valid() bool          { return i != "" }

// Valid reports whether every part of the format is set.
func (f VideoResolutionFrameRate) Valid() bool {
	return f.Resolution != "" && f.FrameRate != "" && f.FieldOfView != ""
}

// Valid reports whether p lies in the unit square.
func (p Point) Valid() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// Custom colour temperatures the cameras accept, in kelvin.
const (
	MinWhiteBalanceKelvin = 2000
	MaxWhiteBalanceKelvin = 10000
)

// CustomWhiteBalance builds a custom white balance from a temperature in
// kelvin. Temperatures outside the supported range fail with ErrInvalidRange.
func CustomWhiteBalance(kelvin int) (WhiteBalance, error) {
	if kelvin < MinWhiteBalanceKelvin || kelvin > MaxWhiteBalanceKelvin {
		return WhiteBalance{}, fmt.Errorf("%w: colour temperature %dK outside %d-%dK",
			ErrInvalidRange, kelvin, MinWhiteBalanceKelvin, MaxWhiteBalanceKelvin)
	}
	return WhiteBalance{Preset: WhiteBalanceCustom, ColorTemperature: uint8(kelvin / 100)}, nil
}
