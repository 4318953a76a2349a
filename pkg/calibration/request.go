package calibration

import (
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/mmwctl/pkg/mmwave"
	"github.com/charlie0129/mmwctl/pkg/sensor"
)

const (
	// CalCtrlBitMask enables every boot calibration except RX IFA.
	CalCtrlBitMask = mmwave.CalCtrlVCO | mmwave.CalCtrlPD | mmwave.CalCtrlLODist |
		mmwave.CalCtrlRxGain | mmwave.CalCtrlTxPwr
	// CalRfSlope is 2.2 MHz/us.
	CalRfSlope int16 = 0x4D
	// ClpcModeNoOverride lets the front-end pick the CLPC targets.
	ClpcModeNoOverride uint8 = 0x0
)

// TxPwrCalTxEnaMask returns the TX power calibration enable masks for a TX
// channel mask. Only 0x3, 0x1 and 0x2 are known; any other mask returns zero
// masks and false.
func TxPwrCalTxEnaMask(txChCtrlBitMask uint16) ([2]uint8, bool) {
	switch txChCtrlBitMask {
	case 0x3:
		return [2]uint8{0x3, 0x1}, true
	case 0x1:
		return [2]uint8{0x1, 0x1}, true
	case 0x2:
		return [2]uint8{0x2, 0x2}, true
	}
	return [2]uint8{}, false
}

// CalRfFrequency is the center of the configured sweep, in the same units as
// the profile start frequency. The fraction is dropped and the result keeps
// the low 16 bits.
func CalRfFrequency(p sensor.Profile) uint16 {
	halfSweep := ((p.SlopeMHzPerUs * 256.0 / 300) * (float64(p.ChirpRampEndTime) * 0.1)) / 2
	// Float to unsigned conversion is undefined once out of range, integer
	// narrowing is not.
	return uint16(int64(float64(p.ChirpRfFreqStart) + halfSweep))
}

// BuildFactoryCalConfig builds the factory calibration request for the current
// profile and channel configuration. The request still has FactoryCalEnabled
// set; the restore clears it before applying so the stored data is used
// instead of running the calibration again.
func BuildFactoryCalConfig(ctx *Context, s Settings, rec *Record) *mmwave.FactoryCalConfig {
	cfg := &mmwave.FactoryCalConfig{
		FactoryCalEnabled: true,
		ATECalibEfused:    true,
		CalCtrlBitMask:    CalCtrlBitMask,
		MiscCalCtrl:       0x0,
		CalRxGainSel:      s.RxGainSel,
		CalTxBackOffSel:   [2]uint8{s.TxBackOffSel, s.TxBackOffSel},
		CalRfFreq:         CalRfFrequency(ctx.Profile),
		CalRfSlope:        CalRfSlope,
	}

	mask, ok := TxPwrCalTxEnaMask(ctx.Channel.TxChCtrlBitMask)
	if !ok {
		logrus.WithField("txChCtrlBitMask", ctx.Channel.TxChCtrlBitMask).
			Warn("unsupported TX channel mask, TX power calibration enable mask left at zero")
	}
	cfg.TxPwrCalTxEnaMask = mask

	if rec != nil {
		cfg.FactoryCalData = rec.Payload[:]
	}

	return cfg
}

// ProjectClpc derives the runtime calibration command from an applied request.
func ProjectClpc(cfg *mmwave.FactoryCalConfig) mmwave.TxClpcCalCommand {
	return mmwave.TxClpcCalCommand{
		CalMode:           ClpcModeNoOverride,
		CalTxBackOffSel:   cfg.CalTxBackOffSel,
		CalRfFreq:         cfg.CalRfFreq,
		CalRfSlope:        cfg.CalRfSlope,
		TxPwrCalTxEnaMask: cfg.TxPwrCalTxEnaMask,
	}
}
