package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlie0129/mmwctl/pkg/config"
	"github.com/charlie0129/mmwctl/pkg/daemon"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Show or change the configuration",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		newConfigShowCommand(),
		newConfigSetStringCommand("flash-path [path]", "Set the flash image path", func(c *config.File, v string) error {
			c.SetFlashPath(v)
			return nil
		}),
		newConfigSetStringCommand("clpc-schedule [cron]", "Set the periodic TX CLPC schedule, empty to disable", func(c *config.File, v string) error {
			if v != "" {
				if _, err := daemon.ParseSchedule(v); err != nil {
					return fmt.Errorf("invalid schedule: %v", err)
				}
			}
			c.SetClpcSchedule(v)
			return nil
		}),
		newConfigSetStringCommand("serial-port [port]", "Set the streaming UART, empty to disable streaming", func(c *config.File, v string) error {
			c.SetSerialPort(v)
			return nil
		}),
		&cobra.Command{
			Use:   "calibration-offset [offset]",
			Short: "Set the calibration record offset in flash",
			RunE: func(_ *cobra.Command, args []string) error {
				offset, err := parseUintArg(args, "offset", 32)
				if err != nil {
					return err
				}
				return updateConfig(func(c *config.File) error {
					c.SetCalibrationOffset(uint32(offset))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "tx-mask [mask]",
			Short: "Set the TX channel mask (0x1, 0x2 or 0x3)",
			RunE: func(_ *cobra.Command, args []string) error {
				mask, err := parseUintArg(args, "mask", 16)
				if err != nil {
					return err
				}
				return updateConfig(func(c *config.File) error {
					return c.SetTxChannelMask(uint16(mask))
				})
			},
		},
		newEnableDisableCommand(
			"require-factory-cal",
			"requiring factory calibration at bring-up",
			"When enabled, the daemon refuses to start the sensor if the factory calibration cannot be restored.",
			func(c *config.File, enabled bool) { c.SetRequireFactoryCal(enabled) },
		),
	)

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			cal := conf.Calibration()
			prof := conf.Profile()
			ch := conf.Channel()

			cmd.Println(bold("Factory calibration:"))
			cmd.Printf("  Flash image: %s\n", bold("%s", conf.FlashPath()))
			cmd.Printf("  Record offset: %s\n", bold("0x%x", cal.FlashOffset))
			cmd.Printf("  RX gain selector: %s\n", bold("%d", cal.RxGainSel))
			cmd.Printf("  TX back-off selector: %s\n", bold("%d", cal.TxBackOffSel))
			cmd.Printf("  Required at bring-up: %s\n", bool2Text(conf.RequireFactoryCal()))

			cmd.Println()
			cmd.Println(bold("Chirp profile:"))
			cmd.Printf("  Start frequency: %s\n", bold("%d", prof.ChirpRfFreqStart))
			cmd.Printf("  Slope: %s\n", bold("%.2f MHz/us", prof.SlopeMHzPerUs))
			cmd.Printf("  Bandwidth: %s\n", bold("%.1f MHz", prof.RFBandwidthMHz()))
			cmd.Printf("  ADC samples: %s\n", bold("%d", prof.NumOfAdcSamples))
			cmd.Printf("  TX antennas: %s\n", bold("%d (mask 0x%x)", ch.NumTxAntennas(), ch.TxChCtrlBitMask))
			cmd.Printf("  RX antennas: %s\n", bold("%d (mask 0x%x)", ch.NumRxAntennas(), ch.RxChCtrlBitMask))

			cmd.Println()
			cmd.Println(bold("Runtime:"))
			sched := conf.ClpcSchedule()
			if sched == "" {
				sched = "disabled"
			}
			cmd.Printf("  TX CLPC schedule: %s\n", bold("%s", sched))
			port := conf.SerialPort()
			if port == "" {
				port = "disabled"
			}
			cmd.Printf("  Streaming UART: %s\n", bold("%s @ %d baud", port, conf.BaudRate()))
			cmd.Printf("  Frame rate limit: %s\n", bold("%.1f/s", conf.FrameRateLimit()))
			cmd.Printf("  Range bins: %s\n", bold("%d", conf.RangeBins()))

			return nil
		},
	}
}

func newConfigSetStringCommand(use, short string, set func(c *config.File, v string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return updateConfig(func(c *config.File) error {
				return set(c, args[0])
			})
		},
	}
}
