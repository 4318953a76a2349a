package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/sensor"
)

func TestNewFileMissingUsesDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if got := f.Calibration(); got != calibration.DefaultSettings() {
		t.Fatalf("Calibration = %+v, want defaults", got)
	}
	if !f.RequireFactoryCal() {
		t.Fatalf("RequireFactoryCal should default to true")
	}
	if got := f.Channel().TxChCtrlBitMask; got != sensor.DefaultTxChannelMask {
		t.Fatalf("TxChCtrlBitMask = 0x%x", got)
	}
	if f.SerialPort() != "" {
		t.Fatalf("streaming should be disabled by default")
	}

	want := sensor.DefaultProfile(sensor.DefaultTxChannelMask)
	if got := f.Profile(); got != want {
		t.Fatalf("Profile = %+v, want %+v", got, want)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(p, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if f.FlashPath() != *defaultFileConfig.FlashPath {
		t.Fatalf("FlashPath = %q", f.FlashPath())
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "flashPath": "/tmp/flash.bin",
  "calibrationOffset": 4096,
  "rxGainSel": 30,
  "txChannelMask": 1,
  "slopeMHzPerUs": 12,
  "requireFactoryCal": false,
  "clpcSchedule": ""
}`
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if f.FlashPath() != "/tmp/flash.bin" {
		t.Fatalf("FlashPath = %q", f.FlashPath())
	}
	cal := f.Calibration()
	if cal.FlashOffset != 4096 || cal.RxGainSel != 30 || cal.TxBackOffSel != calibration.DefaultTxBackOffSel {
		t.Fatalf("Calibration = %+v", cal)
	}
	if f.RequireFactoryCal() {
		t.Fatalf("RequireFactoryCal = true")
	}
	if f.ClpcSchedule() != "" {
		t.Fatalf("ClpcSchedule = %q", f.ClpcSchedule())
	}

	prof := f.Profile()
	if prof.ChirpRfFreqSlope != sensor.SlopeCode(12) {
		t.Fatalf("ChirpRfFreqSlope = %d", prof.ChirpRfFreqSlope)
	}
	if prof.ChirpTxEnSel != 1 {
		t.Fatalf("ChirpTxEnSel = %d", prof.ChirpTxEnSel)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(p, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(p); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MMWCTL_SERIALPORT", "/dev/ttyUSB1")
	t.Setenv("MMWCTL_CALIBRATIONOFFSET", "0x1000")
	t.Setenv("MMWCTL_NOSUCHKEY", "1")

	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if f.SerialPort() != "/dev/ttyUSB1" {
		t.Fatalf("SerialPort = %q", f.SerialPort())
	}
	if got := f.Calibration().FlashOffset; got != 0x1000 {
		t.Fatalf("FlashOffset = 0x%x", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	f := NewFileFromConfig(nil, p)
	f.SetFlashPath("/data/flash.img")
	f.SetCalibrationOffset(0x2000)
	if err := f.SetTxChannelMask(0x2); err != nil {
		t.Fatalf("SetTxChannelMask: %v", err)
	}
	f.SetRequireFactoryCal(false)
	f.SetClpcSchedule("0 */5 * * * *")
	f.SetSerialPort("/dev/ttyACM0")

	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if g.FlashPath() != "/data/flash.img" ||
		g.Calibration().FlashOffset != 0x2000 ||
		g.Channel().TxChCtrlBitMask != 0x2 ||
		g.RequireFactoryCal() ||
		g.ClpcSchedule() != "0 */5 * * * *" ||
		g.SerialPort() != "/dev/ttyACM0" {
		t.Fatalf("reloaded config differs: %v", g.LogrusFields())
	}
}

func TestSetTxChannelMask(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	for _, mask := range []uint16{0x0, 0x4, 0xF} {
		if err := f.SetTxChannelMask(mask); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("SetTxChannelMask(0x%x) = %v, want ErrInvalidConfig", mask, err)
		}
	}
	if got := f.Channel().TxChCtrlBitMask; got != sensor.DefaultTxChannelMask {
		t.Fatalf("rejected mask was stored: 0x%x", got)
	}

	if err := f.SetTxChannelMask(0x1); err != nil {
		t.Fatalf("SetTxChannelMask(0x1): %v", err)
	}
	if got := f.Channel().TxChCtrlBitMask; got != 0x1 {
		t.Fatalf("TxChCtrlBitMask = 0x%x", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr bool
	}{
		{name: "zero range bins", content: `{"rangeBins": 0}`, wantErr: true},
		{name: "negative range bins", content: `{"rangeBins": -4}`, wantErr: true},
		{name: "more range bins than ADC samples", content: `{"rangeBins": 129}`, wantErr: true},
		{name: "range bins above reduced ADC samples", content: `{"numAdcSamples": 64}`, wantErr: true},
		{name: "range bins within ADC samples", content: `{"numAdcSamples": 64, "rangeBins": 64}`},
		{name: "zero range bins from env", env: map[string]string{"MMWCTL_RANGEBINS": "0"}, wantErr: true},
		{name: "env fixes file value", content: `{"rangeBins": 0}`, env: map[string]string{"MMWCTL_RANGEBINS": "32"}},
		{name: "unknown tx mask", content: `{"txChannelMask": 4}`, wantErr: true},
		{name: "zero tx mask from env", env: map[string]string{"MMWCTL_TXCHANNELMASK": "0"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(p, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewFile(p)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("NewFile error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFile: %v", err)
			}
		})
	}
}
