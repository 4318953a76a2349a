package main

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/flash"
	"github.com/charlie0129/mmwctl/pkg/mmwave"
)

type restoreResult struct {
	Result  int32                    `json:"result"`
	Status  calibration.Status       `json:"status"`
	Applied *mmwave.FactoryCalConfig `json:"applied,omitempty"`
	Clpc    *mmwave.TxClpcCalCommand `json:"clpc,omitempty"`
}

// NewRestoreCommand runs a single factory calibration restore against the
// simulated front-end and reports what would be applied.
func NewRestoreCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "restore",
		Short:   "Restore factory calibration once and print the applied request",
		GroupID: gBasic,
		Long: `Restore factory calibration once and print the applied request.

The record is read from flashPath at calibrationOffset, validated and applied
to a simulated front-end. The runtime TX power calibration command derived
from it is printed as well. Nothing is written to flash.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			dev, err := flash.Open(conf.FlashPath(), true)
			if err != nil {
				return err
			}
			defer dev.Close()

			sim := mmwave.NewSimulator()
			if err := sim.Init(); err != nil {
				return err
			}
			defer func() {
				if err := sim.Deinit(); err != nil {
					logrus.WithError(err).Warn("failed to deinitialize front-end")
				}
			}()

			calCtx := calibration.NewContext(conf.Profile(), conf.Channel(), conf.Frame())
			r := calibration.NewRestorer(dev, sim, conf.Calibration())
			restoreErr := r.Restore(calCtx)

			res := restoreResult{
				Result: calibration.ResultCode(restoreErr),
				Status: r.Status(),
				Clpc:   calCtx.ClpcPtr(),
			}
			res.Applied, _ = sim.AppliedFactoryCal()
			if res.Applied != nil {
				// The payload is long and already identified by the fingerprint.
				res.Applied.FactoryCalData = nil
			}

			if asJSON {
				b, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return restoreErr
			}

			printRestoreResult(cmd, &res)
			return restoreErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func printRestoreResult(cmd *cobra.Command, res *restoreResult) {
	cmd.Println(bold("Factory calibration restore:"))
	cmd.Printf("  Result: %s (%d)\n", bool2Text(res.Result == calibration.ResultSuccess), res.Result)
	cmd.Printf("  Phase: %s\n", bold("%s", res.Status.Phase))
	if res.Status.Fingerprint != 0 {
		cmd.Printf("  Payload CRC-32: %s\n", bold("0x%08x", res.Status.Fingerprint))
	}
	if res.Status.Error != "" {
		cmd.Printf("  Error: %s\n", res.Status.Error)
	}

	if a := res.Applied; a != nil {
		cmd.Println()
		cmd.Println(bold("Applied request:"))
		cmd.Printf("  Run calibration again: %s\n", bool2Text(a.FactoryCalEnabled))
		cmd.Printf("  ATE calibration efused: %s\n", bool2Text(a.ATECalibEfused))
		cmd.Printf("  Calibration control mask: %s\n", bold("0x%02x", a.CalCtrlBitMask))
		cmd.Printf("  RX gain selector: %s\n", bold("%d", a.CalRxGainSel))
		cmd.Printf("  TX back-off selector: %s\n", bold("%v", a.CalTxBackOffSel))
		cmd.Printf("  RF frequency: %s\n", bold("%d", a.CalRfFreq))
		cmd.Printf("  RF slope: %s\n", bold("0x%02x", a.CalRfSlope))
		cmd.Printf("  TX power calibration enable mask: %s\n", bold("%v", a.TxPwrCalTxEnaMask))
	}

	if c := res.Clpc; c != nil {
		cmd.Println()
		cmd.Println(bold("Runtime TX CLPC command:"))
		cmd.Printf("  Mode: %s\n", bold("%d", c.CalMode))
		cmd.Printf("  TX back-off selector: %s\n", bold("%v", c.CalTxBackOffSel))
		cmd.Printf("  RF frequency: %s\n", bold("%d", c.CalRfFreq))
		cmd.Printf("  RF slope: %s\n", bold("0x%02x", c.CalRfSlope))
		cmd.Printf("  TX enable mask: %s\n", bold("%v", c.TxPwrCalTxEnaMask))
	}
}
