package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/config"
	"github.com/charlie0129/mmwctl/pkg/flash"
)

var (
	logLevel   = "info"
	configPath = "/etc/mmwctl.json"
	statePath  = "/var/run/mmwctl.state.json"
)

var (
	gBasic        = "Basic:"
	gFlash        = "Flash:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gFlash,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, calibration.ErrInvalidMagic):
		fmt.Fprintln(os.Stderr, "\nError: no valid factory calibration record in flash")
		fmt.Fprintln(os.Stderr, "  - Check that calibrationOffset in the config points at the calibration sector")
		fmt.Fprintln(os.Stderr, "  - Inspect the sector with 'mmwctl flash inspect'")
		fmt.Fprintln(os.Stderr, "  - Set requireFactoryCal to false to bring the sensor up without it")
	case errors.Is(err, calibration.ErrStorageRead), errors.Is(err, flash.ErrOutOfRange):
		fmt.Fprintln(os.Stderr, "\nError: could not read the calibration record")
		fmt.Fprintln(os.Stderr, "Is flashPath correct and large enough to hold the calibration sector?")
	case errors.Is(err, calibration.ErrCalibrationExecution):
		fmt.Fprintln(os.Stderr, "\nError: the front-end rejected the stored calibration")
		fmt.Fprintln(os.Stderr, "The record may come from another board. Re-run factory calibration on this unit.")
	case errors.Is(err, config.ErrInvalidConfig):
		fmt.Fprintln(os.Stderr, "\nError: the configuration has a value out of range")
		fmt.Fprintf(os.Stderr, "Check %s and the MMWCTL_ environment variables.\n", configPath)
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(os.Stderr, "\nError: file not found")
		fmt.Fprintln(os.Stderr, "Is the mmwctl daemon running? Does the flash image exist?")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mmwctl",
		Short: "mmwctl brings up an mmWave radar sensor with its factory calibration",
		Long: `mmwctl brings up an mmWave radar sensor with its factory calibration.

It restores the factory calibration record from flash, starts the sensor,
runs the periodic TX power calibration and streams range profiles over UART.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&statePath, "state", statePath, "daemon state file path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewRestoreCommand(),
		NewFlashCommand(),
		NewConfigCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
