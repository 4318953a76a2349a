package sensor

import "math"

// Chirp timings are in 0.1 us units unless stated otherwise.
const (
	DefaultDigOutputSampRate   uint8   = 8
	DefaultDigOutputBitsSel    uint8   = 0
	DefaultDfeFirSel           uint8   = 0
	DefaultNumAdcSamples       uint16  = 128
	DefaultMimoPatSel          uint8   = 0
	DefaultMiscSettings        uint8   = 0
	DefaultHpfFastInitDuration uint8   = 15
	DefaultChirpRampEndTime    uint16  = 361
	DefaultChirpRxHpfSel       uint8   = 1
	DefaultChirpIdleTime       uint16  = 80
	DefaultChirpAdcStartTime   uint16  = 300
	DefaultChirpTxStartTime    int16   = 0
	DefaultChirpSlopeMHzPerUs  float64 = 20
	// DefaultChirpRfFreqStart is 60 GHz in low resolution units (300/256 MHz per LSB).
	DefaultChirpRfFreqStart uint32 = 51200

	// maxRampDownTimeUs caps the ramp-down time used for the CRD slope.
	maxRampDownTimeUs = 6.0
)

// Profile is the chirp profile: the common configuration and the timing
// configuration handed to the front-end together.
type Profile struct {
	DigOutputSampRate   uint8  `json:"digOutputSampRate"`
	DigOutputBitsSel    uint8  `json:"digOutputBitsSel"`
	DfeFirSel           uint8  `json:"dfeFirSel"`
	NumOfAdcSamples     uint16 `json:"numOfAdcSamples"`
	ChirpTxMimoPatSel   uint8  `json:"chirpTxMimoPatSel"`
	MiscSettings        uint8  `json:"miscSettings"`
	HpfFastInitDuration uint8  `json:"hpfFastInitDuration"`
	CrdNSlopeMag        uint16 `json:"crdNSlopeMag"`
	ChirpRampEndTime    uint16 `json:"chirpRampEndTime"`
	ChirpRxHpfSel       uint8  `json:"chirpRxHpfSel"`

	ChirpIdleTime     uint16 `json:"chirpIdleTime"`
	ChirpAdcStartTime uint16 `json:"chirpAdcStartTime"`
	ChirpTxStartTime  int16  `json:"chirpTxStartTime"`
	// ChirpRfFreqSlope is the slope in device units, see SlopeCode.
	ChirpRfFreqSlope int16  `json:"chirpRfFreqSlope"`
	ChirpRfFreqStart uint32 `json:"chirpRfFreqStart"`
	ChirpTxEnSel     uint16 `json:"chirpTxEnSel"`
	ChirpTxBpmEnSel  uint16 `json:"chirpTxBpmEnSel"`

	// SlopeMHzPerUs is the configured frequency slope the device units were derived from.
	SlopeMHzPerUs float64 `json:"slopeMHzPerUs"`
}

// DefaultProfile returns the default chirp profile with derived fields filled in.
func DefaultProfile(txMask uint16) Profile {
	p := Profile{
		DigOutputSampRate:   DefaultDigOutputSampRate,
		DigOutputBitsSel:    DefaultDigOutputBitsSel,
		DfeFirSel:           DefaultDfeFirSel,
		NumOfAdcSamples:     DefaultNumAdcSamples,
		ChirpTxMimoPatSel:   DefaultMimoPatSel,
		MiscSettings:        DefaultMiscSettings,
		HpfFastInitDuration: DefaultHpfFastInitDuration,
		ChirpRampEndTime:    DefaultChirpRampEndTime,
		ChirpRxHpfSel:       DefaultChirpRxHpfSel,
		ChirpIdleTime:       DefaultChirpIdleTime,
		ChirpAdcStartTime:   DefaultChirpAdcStartTime,
		ChirpTxStartTime:    DefaultChirpTxStartTime,
		ChirpRfFreqStart:    DefaultChirpRfFreqStart,
		ChirpTxEnSel:        txMask,
		ChirpTxBpmEnSel:     0,
	}
	p.SetSlope(DefaultChirpSlopeMHzPerUs)

	return p
}

// SetSlope sets the slope in MHz/us and recomputes the values derived from it.
func (p *Profile) SetSlope(mhzPerUs float64) {
	p.SlopeMHzPerUs = mhzPerUs
	p.ChirpRfFreqSlope = SlopeCode(mhzPerUs)
	p.CrdNSlopeMag = p.ComputeCrdNSlopeMag()
}

// RFBandwidthMHz is the swept bandwidth of one chirp ramp.
func (p *Profile) RFBandwidthMHz() float64 {
	return float64(p.ChirpRampEndTime) * 0.1 * p.SlopeMHzPerUs
}

// RampDownTimeUs is the time available for the ramp down, capped at 6 us.
func (p *Profile) RampDownTimeUs() float64 {
	return math.Min(float64(p.ChirpIdleTime)*0.1-1.0, maxRampDownTimeUs)
}

// ComputeCrdNSlopeMag returns the chirp ramp-down slope magnitude.
func (p *Profile) ComputeCrdNSlopeMag() uint16 {
	rampDown := p.RampDownTimeUs()
	if rampDown <= 0 {
		return 0
	}
	scale := 65536. / (3 * 100 * 100)

	return uint16(math.Abs(scale*p.RFBandwidthMHz()/rampDown + 0.5))
}

// SlopeCode converts a slope in MHz/us to front-end units (30000/2^20 MHz/us per LSB).
func SlopeCode(mhzPerUs float64) int16 {
	return int16(mhzPerUs * (1 << 20) / 30000)
}
