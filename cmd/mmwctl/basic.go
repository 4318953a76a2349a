package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/daemon"
	"github.com/charlie0129/mmwctl/pkg/events"
	"github.com/charlie0129/mmwctl/pkg/version"
)

// staleAfter marks daemon state as stale when it has not been refreshed for this long.
const staleAfter = 30 * time.Second

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of the mmwctl daemon",
		Long:    `Get sensor state, factory calibration status and streaming counters from the daemon state file.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := daemon.ReadState(statePath)
			if err != nil {
				return err
			}

			cmd.Println(bold("Daemon:"))
			cmd.Printf("  PID: %s\n", bold("%d", st.PID))
			cmd.Printf("  Version: %s\n", bold("%s", st.Version))
			updated := bold("%s", st.UpdatedAt.Format(time.DateTime))
			if time.Since(st.UpdatedAt) > staleAfter {
				updated += color.YellowString(" (stale, is the daemon still running?)")
			}
			cmd.Printf("  Updated: %s\n", updated)
			cmd.Printf("  Sensor started: %s\n", bool2Text(st.Started))

			cmd.Println()

			cmd.Println(bold("Factory calibration:"))
			phase := string(st.Restore.Phase)
			switch st.Restore.Phase {
			case calibration.PhaseProjected:
				phase = color.GreenString("restored")
			case calibration.PhaseFailed:
				phase = color.RedString("failed")
			}
			cmd.Printf("  State: %s\n", bold("%s", phase))
			if st.Restore.Fingerprint != 0 {
				cmd.Printf("  Payload CRC-32: %s\n", bold("0x%08x", st.Restore.Fingerprint))
			}
			if st.Restore.Error != "" {
				cmd.Printf("  Error: %s\n", st.Restore.Error)
			}

			cmd.Println()

			cmd.Println(bold("Runtime TX power calibration:"))
			if st.Clpc == nil {
				cmd.Printf("  Available: %s\n", bool2Text(false))
			} else {
				cmd.Printf("  Available: %s\n", bool2Text(true))
				cmd.Printf("  RF frequency: %s\n", bold("%d", st.Clpc.CalRfFreq))
				cmd.Printf("  TX enable mask: %s\n", bold("%v", st.Clpc.TxPwrCalTxEnaMask))
			}
			if st.ClpcSchedule != "" {
				cmd.Printf("  Schedule: %s\n", bold("%s", st.ClpcSchedule))
				cmd.Printf("  Next run: %s\n", bold("%s", st.NextClpc.Format(time.DateTime)))
			} else {
				cmd.Printf("  Scheduled: %s\n", bool2Text(false))
			}
			cmd.Printf("  Runs: %s\n", bold("%d", st.ClpcRuns))

			if st.Stream != nil {
				cmd.Println()
				cmd.Println(bold("UART streaming:"))
				cmd.Printf("  Frames: %s\n", bold("%d", st.Stream.Frames))
				errs := bold("%d", st.Stream.WriteErrors)
				if st.Stream.WriteErrors > 0 {
					errs = color.New(color.Bold, color.FgRed).Sprintf("%d", st.Stream.WriteErrors)
				}
				cmd.Printf("  Write errors: %s\n", errs)
			}

			if len(st.Events) > 0 {
				cmd.Println()
				cmd.Println(bold("Recent events:"))
				for _, ev := range st.Events {
					cmd.Printf("  %s\n", describeEvent(ev))
				}
			}

			return nil
		},
	}
}

func describeEvent(ev events.Event) string {
	switch ev.Name {
	case events.RestorePhase:
		p, err := events.DecodeAs[events.RestorePhaseEvent](ev)
		if err != nil {
			break
		}
		return fmt.Sprintf("%s restore %s -> %s", time.Unix(p.Ts, 0).Format(time.DateTime), p.From, p.To)
	case events.ClpcRun:
		p, err := events.DecodeAs[events.ClpcRunEvent](ev)
		if err != nil {
			break
		}
		if p.Error != "" {
			return fmt.Sprintf("%s TX CLPC %s: %s", time.Unix(p.Ts, 0).Format(time.DateTime), color.RedString("failed"), p.Error)
		}
		return fmt.Sprintf("%s TX CLPC %s", time.Unix(p.Ts, 0).Format(time.DateTime), color.GreenString("ok"))
	}
	return fmt.Sprintf("%s %s", ev.Name, string(ev.Data))
}
