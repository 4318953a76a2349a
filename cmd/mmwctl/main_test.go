package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, version.Version) {
		t.Fatalf("output %q does not contain the version", out)
	}
}

func TestParseUintArg(t *testing.T) {
	tests := []struct {
		in      string
		bitSize int
		want    uint64
		wantErr bool
	}{
		{in: "4096", bitSize: 32, want: 4096},
		{in: "0x1FF000", bitSize: 32, want: 0x1FF000},
		{in: "0b11", bitSize: 16, want: 3},
		{in: "-1", bitSize: 16, wantErr: true},
		{in: "0x10000", bitSize: 16, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseUintArg([]string{tt.in}, "value", tt.bitSize)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseUintArg(%q) = %d, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseUintArg(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}

	if _, err := parseUintArg(nil, "value", 32); err == nil {
		t.Fatalf("expected error without arguments")
	}
}

func TestFlashWriteInspectRestore(t *testing.T) {
	dir := t.TempDir()
	flashPath := filepath.Join(dir, "flash.bin")
	cfgPath := filepath.Join(dir, "config.json")
	payloadPath := filepath.Join(dir, "payload.bin")

	cfg := `{"flashPath": "` + flashPath + `", "calibrationOffset": 4096}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(payloadPath, bytes.Repeat([]byte{0x5A}, calibration.PayloadSize), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "--config", cfgPath, "flash", "write-record", "--payload", payloadPath, "--create", "8192"); err != nil {
		t.Fatalf("write-record: %v", err)
	}

	out, err := execute(t, "--config", cfgPath, "flash", "inspect")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "0x7cb28df9") {
		t.Fatalf("inspect output has no magic: %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "restore", "--json")
	if err != nil {
		t.Fatalf("restore: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"phase": "Projected"`) {
		t.Fatalf("restore output: %q", out)
	}

	if _, err := execute(t, "--config", cfgPath, "flash", "erase"); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if _, err := execute(t, "--config", cfgPath, "restore"); err == nil {
		t.Fatalf("restore of an erased record should fail")
	}
}
