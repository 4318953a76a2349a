package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/mmwctl/pkg/config"
)

// parseUintArg accepts decimal, 0x hex and 0b binary.
func parseUintArg(args []string, valueName string, bitSize int) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.ParseUint(args[0], 0, bitSize)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func loadConfig() (*config.File, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return conf, nil
}

// updateConfig loads the config, applies fn and saves it back.
func updateConfig(fn func(c *config.File) error) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if err := fn(conf); err != nil {
		return err
	}
	if err := conf.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	logrus.Infof("config saved to %s, send SIGHUP to the daemon or restart it to apply", configPath)
	return nil
}

func newEnableDisableCommand(
	use, short, long string,
	setFunc func(c *config.File, enabled bool),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
	}

	for _, enabled := range []bool{true, false} {
		enabled := enabled
		verb, title := "enable", "Enable"
		if !enabled {
			verb, title = "disable", "Disable"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   verb,
			Short: title + " " + short,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				err := updateConfig(func(c *config.File) error {
					setFunc(c, enabled)
					return nil
				})
				if err != nil {
					return fmt.Errorf("failed to %s %s: %v", verb, use, err)
				}
				logrus.Infof("successfully %sd %s", verb, use)
				return nil
			},
		})
	}

	return cmd
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
