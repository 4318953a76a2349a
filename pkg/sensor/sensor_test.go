package sensor

import (
	"reflect"
	"testing"
)

func TestSlopeCode(t *testing.T) {
	tests := []struct {
		name     string
		mhzPerUs float64
		want     int16
	}{
		{name: "12 MHz/us", mhzPerUs: 12, want: 419},
		{name: "20 MHz/us", mhzPerUs: 20, want: 699},
		{name: "100 MHz/us", mhzPerUs: 100, want: 3495},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SlopeCode(tt.mhzPerUs); got != tt.want {
				t.Errorf("SlopeCode(%v) = %v, want %v", tt.mhzPerUs, got, tt.want)
			}
		})
	}
}

func TestDefaultProfileDerivedFields(t *testing.T) {
	p := DefaultProfile(0x3)

	if p.ChirpTxEnSel != 0x3 {
		t.Fatalf("expected tx enable 0x3, got 0x%x", p.ChirpTxEnSel)
	}
	if p.ChirpRfFreqSlope != 699 {
		t.Fatalf("expected slope code 699, got %d", p.ChirpRfFreqSlope)
	}
	// 36.1us * 20MHz/us
	if bw := p.RFBandwidthMHz(); bw < 721.9 || bw > 722.1 {
		t.Fatalf("unexpected bandwidth %v", bw)
	}
	// idle time 8us - 1us is capped to 6us
	if rd := p.RampDownTimeUs(); rd != 6.0 {
		t.Fatalf("expected ramp down time capped at 6us, got %v", rd)
	}
	if p.CrdNSlopeMag != 263 {
		t.Fatalf("expected crd slope magnitude 263, got %d", p.CrdNSlopeMag)
	}
}

func TestComputeCrdNSlopeMagNoRampDown(t *testing.T) {
	p := DefaultProfile(0x1)
	p.ChirpIdleTime = 10 // 1us idle leaves no ramp down time
	if got := p.ComputeCrdNSlopeMag(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestChannelAntennaCount(t *testing.T) {
	tests := []struct {
		name   string
		ch     Channel
		wantTx int
		wantRx int
	}{
		{name: "all", ch: Channel{TxChCtrlBitMask: 0x3, RxChCtrlBitMask: 0x7}, wantTx: 2, wantRx: 3},
		{name: "tx2 rx1,3", ch: Channel{TxChCtrlBitMask: 0x2, RxChCtrlBitMask: 0x5}, wantTx: 1, wantRx: 2},
		{name: "bits beyond hardware ignored", ch: Channel{TxChCtrlBitMask: 0xF, RxChCtrlBitMask: 0xF}, wantTx: 2, wantRx: 3},
		{name: "none", ch: Channel{}, wantTx: 0, wantRx: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ch.NumTxAntennas(); got != tt.wantTx {
				t.Errorf("NumTxAntennas() = %v, want %v", got, tt.wantTx)
			}
			if got := tt.ch.NumRxAntennas(); got != tt.wantRx {
				t.Errorf("NumRxAntennas() = %v, want %v", got, tt.wantRx)
			}
		})
	}
}

func TestADCBufLayout(t *testing.T) {
	ch := Channel{RxChCtrlBitMask: 0x5}
	got := ch.ADCBufLayout(256)
	want := []ADCBufChannel{
		{Channel: 0, Offset: 0, Address: 0},
		{Channel: 2, Offset: 256, Address: 16},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ADCBufLayout() = %+v, want %+v", got, want)
	}
}

func TestDefaultFrameNumChirps(t *testing.T) {
	if got := DefaultFrame().NumChirps(); got != 128 {
		t.Fatalf("expected 128 chirps per frame, got %d", got)
	}
}
