package mmwave

import "github.com/charlie0129/mmwctl/pkg/sensor"

// FactoryCalDataSize is the size of the factory calibration data block the
// front-end produces and consumes. Its content is opaque to the host.
const FactoryCalDataSize = 248

// Boot calibration control bits (FactoryCalConfig.CalCtrlBitMask).
const (
	CalCtrlVCO    uint16 = 1 << 1
	CalCtrlPD     uint16 = 1 << 2
	CalCtrlLODist uint16 = 1 << 3
	CalCtrlRxIFA  uint16 = 1 << 5
	CalCtrlRxGain uint16 = 1 << 6
	CalCtrlTxPwr  uint16 = 1 << 7

	calCtrlReserved uint16 = 1<<0 | 1<<4
)

// FactoryCalConfig requests a factory calibration run (FactoryCalEnabled) or the
// restore of previously stored factory calibration data.
type FactoryCalConfig struct {
	FactoryCalEnabled bool
	ATECalibEfused    bool

	CalCtrlBitMask    uint16
	MiscCalCtrl       uint8
	CalRxGainSel      uint8
	CalTxBackOffSel   [2]uint8
	CalRfFreq         uint16
	CalRfSlope        int16
	TxPwrCalTxEnaMask [2]uint8

	// FactoryCalData is borrowed for the duration of the call.
	FactoryCalData []byte
}

// TxClpcCalCommand is the runtime TX closed-loop power calibration command.
type TxClpcCalCommand struct {
	// CalMode 0 means no override.
	CalMode           uint8    `json:"calMode"`
	CalTxBackOffSel   [2]uint8 `json:"calTxBackOffSel"`
	CalRfFreq         uint16   `json:"calRfFreq"`
	CalRfSlope        int16    `json:"calRfSlope"`
	TxPwrCalTxEnaMask [2]uint8 `json:"txPwrCalTxEnaMask"`
}

// OpenConfig is passed once when opening the front-end.
type OpenConfig struct {
	UseRunTimeCalib             bool
	UseCustomCalibration        bool
	RunTxClpcCalib              bool
	CustomCalibrationEnableMask uint32
	RdifEnable                  bool
	RdifSampleCount             uint16
	TxClpcCalCmd                *TxClpcCalCommand
}

// CtrlConfig is the chirp configuration applied by Config.
type CtrlConfig struct {
	Profile sensor.Profile
	Channel sensor.Channel
	Frame   sensor.Frame
}

// CalibrationConfig controls the chirp calibration started with the sensor.
type CalibrationConfig struct {
	EnableCalibration    bool
	EnablePeriodicity    bool
	PeriodicTimeInFrames uint32
}

// StartConfig is passed when starting the sensor.
type StartConfig struct {
	FrameTrigMode     uint8
	ChirpStartSigLbEn uint8
	FrameLivMonEn     uint8
	FrameTrigTimerVal uint32
}
