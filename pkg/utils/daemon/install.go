package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const unitName = "mmwctl.service"

var (
	unitDir = "/etc/systemd/system"

	// runSystemctl is replaced in tests.
	runSystemctl = func(args ...string) error {
		return exec.Command("systemctl", args...).Run()
	}
)

const unitTemplate = `[Unit]
Description=mmWave sensor bring-up daemon
After=local-fs.target

[Service]
Type=simple
ExecStart=/path/to/mmwctl daemon --config /path/to/config --state /path/to/state
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

func unitPath() string {
	return filepath.Join(unitDir, unitName)
}

// Unit renders the systemd unit for the given executable and file paths.
func Unit(exePath, configPath, statePath string) string {
	return strings.NewReplacer(
		"/path/to/mmwctl", exePath,
		"/path/to/config", configPath,
		"/path/to/state", statePath,
	).Replace(unitTemplate)
}

// Install writes the systemd unit for the current executable and starts it.
func Install(configPath, statePath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	err = os.MkdirAll(unitDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", unitDir, err)
	}

	// warn if the file already exists
	_, err = os.Stat(unitPath())
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath())
	}

	logrus.Infof("writing systemd unit to %s", unitPath())
	err = os.WriteFile(unitPath(), []byte(Unit(exePath, configPath, statePath)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath(), err)
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}

	logrus.Infof("starting mmwctl")
	if err := runSystemctl("enable", "--now", unitName); err != nil {
		return fmt.Errorf("failed to enable %s: %w", unitName, err)
	}

	return nil
}
