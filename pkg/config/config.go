package config

import (
	"errors"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/sensor"
)

// ErrInvalidConfig is returned when a loaded or set value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

type Config interface {
	FlashPath() string
	Calibration() calibration.Settings
	RequireFactoryCal() bool
	Profile() sensor.Profile
	Channel() sensor.Channel
	Frame() sensor.Frame
	ClpcSchedule() string
	SerialPort() string
	CapturePath() string
	BaudRate() int
	FrameRateLimit() float64
	RangeBins() int

	SetFlashPath(string)
	SetCalibrationOffset(uint32)
	SetRequireFactoryCal(bool)
	SetTxChannelMask(uint16) error
	SetClpcSchedule(string)
	SetSerialPort(string)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
