package daemon

import (
	"os"
	"strings"
	"testing"
)

func TestInstallUninstall(t *testing.T) {
	var calls []string
	origDir, origRun := unitDir, runSystemctl
	defer func() { unitDir, runSystemctl = origDir, origRun }()

	unitDir = t.TempDir()
	runSystemctl = func(args ...string) error {
		calls = append(calls, strings.Join(args, " "))
		return nil
	}

	if err := Install("/etc/mmwctl.json", "/run/mmwctl.json"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	b, err := os.ReadFile(unitPath())
	if err != nil {
		t.Fatalf("unit not written: %v", err)
	}
	unit := string(b)
	if !strings.Contains(unit, "daemon --config /etc/mmwctl.json --state /run/mmwctl.json") {
		t.Fatalf("unit has wrong ExecStart:\n%s", unit)
	}
	if strings.Contains(unit, "/path/to/") {
		t.Fatalf("unit still has placeholders:\n%s", unit)
	}

	if err := Uninstall(); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(unitPath()); !os.IsNotExist(err) {
		t.Fatalf("unit not removed: %v", err)
	}

	want := []string{"daemon-reload", "enable --now mmwctl.service", "disable --now mmwctl.service", "daemon-reload"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("systemctl calls = %v, want %v", calls, want)
	}
}
