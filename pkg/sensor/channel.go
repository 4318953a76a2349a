package sensor

const (
	NumTxAntennas = 2
	NumRxChannels = 3

	DefaultTxChannelMask uint16 = 0x3
	DefaultRxChannelMask uint16 = 0x7
)

// Channel is the RF channel (power) configuration: which TX and RX chains are active.
type Channel struct {
	TxChCtrlBitMask uint16 `json:"txChCtrlBitMask"`
	RxChCtrlBitMask uint16 `json:"rxChCtrlBitMask"`
	MiscCtrl        uint8  `json:"miscCtrl"`
}

// ADCBufChannel is the ADC buffer placement of one enabled RX channel.
type ADCBufChannel struct {
	Channel int
	// Offset is the byte offset of the channel data in the ADC buffer.
	Offset uint32
	// Address is the value programmed in the ADCBUFADDRXn field.
	Address uint16
}

// NumTxAntennas counts the enabled TX antennas.
func (c Channel) NumTxAntennas() int {
	return countBits(c.TxChCtrlBitMask, NumTxAntennas)
}

// NumRxAntennas counts the enabled RX channels.
func (c Channel) NumRxAntennas() int {
	return countBits(c.RxChCtrlBitMask, NumRxChannels)
}

// ADCBufLayout packs the enabled RX channels into the ADC buffer in channel
// order, each taking chanDataSize bytes.
func (c Channel) ADCBufLayout(chanDataSize uint32) []ADCBufChannel {
	var (
		layout []ADCBufChannel
		offset uint32
	)

	for ch := 0; ch < NumRxChannels; ch++ {
		if c.RxChCtrlBitMask&(1<<ch) == 0 {
			continue
		}
		layout = append(layout, ADCBufChannel{
			Channel: ch,
			Offset:  offset,
			Address: uint16(offset >> 4),
		})
		offset += chanDataSize
	}

	return layout
}

func countBits(mask uint16, n int) int {
	count := 0
	for i := 0; i < n; i++ {
		if (mask>>i)&0x1 == 1 {
			count++
		}
	}
	return count
}
