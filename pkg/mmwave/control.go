// Package mmwave is the host side of the radar front-end control interface.
//
// Every operation of Control returns an *Error on failure, carrying a packed
// code that can be split with DecodeError.
package mmwave

// Control drives the radar front-end through its lifecycle:
// Init, Open, Config, Start, then Stop, Close and Deinit.
type Control interface {
	Init() error
	Open(cfg *OpenConfig) error
	Config(cfg *CtrlConfig) error
	Start(calib *CalibrationConfig, start *StartConfig) error
	Stop() error
	Close() error
	Deinit() error

	// FactoryCalibConfig runs or restores the factory calibration.
	FactoryCalibConfig(cfg *FactoryCalConfig) error
	// RunTxClpcCalibration runs the runtime TX power calibration.
	RunTxClpcCalibration(cmd *TxClpcCalCommand) error
}

// Operation names, used in Error.Op.
const (
	OpInit         = "init"
	OpOpen         = "open"
	OpConfig       = "config"
	OpStart        = "start"
	OpStop         = "stop"
	OpClose        = "close"
	OpDeinit       = "deinit"
	OpFactoryCalib = "factoryCalibConfig"
	OpTxClpcCalib  = "txClpcCalib"
)

// DefaultOpenConfig returns the open configuration used at bring-up. Runtime
// calibration stays off; clpc is kept so the front-end can run it on request.
func DefaultOpenConfig(clpc *TxClpcCalCommand, rdifSampleCount uint16) *OpenConfig {
	return &OpenConfig{
		UseRunTimeCalib:             false,
		UseCustomCalibration:        false,
		RunTxClpcCalib:              false,
		CustomCalibrationEnableMask: 0,
		RdifEnable:                  false,
		RdifSampleCount:             rdifSampleCount,
		TxClpcCalCmd:                clpc,
	}
}

// DefaultCalibrationConfig disables chirp calibration on start.
func DefaultCalibrationConfig() *CalibrationConfig {
	return &CalibrationConfig{
		EnableCalibration:    false,
		EnablePeriodicity:    false,
		PeriodicTimeInFrames: 10,
	}
}

// DefaultStartConfig starts frames from the software trigger.
func DefaultStartConfig() *StartConfig {
	return &StartConfig{
		FrameTrigMode:     0,
		ChirpStartSigLbEn: 0,
		FrameLivMonEn:     0,
		FrameTrigTimerVal: 0,
	}
}
