package sensor

// Frame is the burst/frame timing. Periodicities are in 40 MHz crystal ticks.
type Frame struct {
	NumOfChirpsInBurst uint16 `json:"numOfChirpsInBurst"`
	NumOfChirpsAccum   uint8  `json:"numOfChirpsAccum"`
	BurstPeriodicity   uint32 `json:"burstPeriodicity"`
	NumOfBurstsInFrame uint16 `json:"numOfBurstsInFrame"`
	FramePeriodicity   uint32 `json:"framePeriodicity"`
	NumOfFrames        uint16 `json:"numOfFrames"`
	FrameEvent0TimeCfg uint32 `json:"frameEvent0TimeCfg"`
	FrameEvent1TimeCfg uint32 `json:"frameEvent1TimeCfg"`
	TempCtrlBitMask    uint16 `json:"tempCtrlBitMask"`
}

// DefaultFrame returns the default frame configuration. NumOfFrames 0 runs forever.
func DefaultFrame() Frame {
	return Frame{
		NumOfChirpsInBurst: 2,
		NumOfChirpsAccum:   0,
		BurstPeriodicity:   1698,
		NumOfBurstsInFrame: 64,
		FramePeriodicity:   10000000,
		NumOfFrames:        0,
		TempCtrlBitMask:    0x311,
	}
}

// NumChirps is the number of chirps in one frame.
func (f Frame) NumChirps() int {
	return int(f.NumOfChirpsInBurst) * int(f.NumOfBurstsInFrame)
}
