package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/flash"
)

var flashOffset uint32

func NewFlashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "flash",
		Short:   "Inspect and provision the factory calibration sector",
		GroupID: gFlash,
	}

	cmd.PersistentFlags().Uint32Var(&flashOffset, "offset", 0, "calibration record offset (default: calibrationOffset from the config)")

	cmd.AddCommand(
		newFlashInspectCommand(),
		newFlashWriteRecordCommand(),
		newFlashEraseCommand(),
	)

	return cmd
}

// recordOffset returns --offset if given, the configured offset otherwise.
func recordOffset(cmd *cobra.Command, conf interface{ Calibration() calibration.Settings }) uint32 {
	if cmd.Flags().Changed("offset") {
		return flashOffset
	}
	return conf.Calibration().FlashOffset
}

func newFlashInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the calibration record header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			offset := recordOffset(cmd, conf)

			dev, err := flash.Open(conf.FlashPath(), true)
			if err != nil {
				return err
			}
			defer dev.Close()

			b, err := dev.Read(offset, calibration.RecordSize)
			if err != nil {
				return err
			}
			magic, err := calibration.ReadMagic(b)
			if err != nil {
				return err
			}

			cmd.Println(bold("Calibration record:"))
			cmd.Printf("  Flash image: %s\n", bold("%s", conf.FlashPath()))
			cmd.Printf("  Offset: %s\n", bold("0x%x", offset))
			cmd.Printf("  Size: %s\n", bold("%d bytes", calibration.RecordSize))
			cmd.Printf("  Magic: %s (expected 0x%08x)\n", bold("0x%08x", magic), calibration.Magic)

			switch {
			case bytes.Equal(b, bytes.Repeat([]byte{flash.ErasedByte}, len(b))):
				cmd.Printf("  Valid: %s (sector is erased)\n", bool2Text(false))
			case magic != calibration.Magic:
				cmd.Printf("  Valid: %s\n", bool2Text(false))
			default:
				rec, err := calibration.DecodeRecord(b)
				if err != nil {
					return err
				}
				cmd.Printf("  Valid: %s\n", bool2Text(true))
				cmd.Printf("  Payload CRC-32: %s\n", bold("0x%08x", rec.Fingerprint()))
			}

			return nil
		},
	}
}

func newFlashWriteRecordCommand() *cobra.Command {
	var (
		payloadPath string
		createSize  int64
	)

	cmd := &cobra.Command{
		Use:   "write-record",
		Short: "Write a calibration record built from a payload file",
		Long: fmt.Sprintf(`Write a calibration record built from a payload file.

The payload must be exactly %d bytes, as saved by the front-end after a factory
calibration run. With --create, a new erased flash image of the given size is
created first.`, calibration.PayloadSize),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			offset := recordOffset(cmd, conf)

			payload, err := os.ReadFile(payloadPath)
			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}
			rec, err := calibration.NewRecord(payload)
			if err != nil {
				return err
			}
			b, err := rec.MarshalBinary()
			if err != nil {
				return err
			}

			var dev *flash.File
			if createSize > 0 {
				dev, err = flash.Create(conf.FlashPath(), createSize)
			} else {
				dev, err = flash.Open(conf.FlashPath(), false)
			}
			if err != nil {
				return err
			}
			defer dev.Close()

			if err := dev.Write(offset, b); err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"flashPath":   conf.FlashPath(),
				"offset":      offset,
				"fingerprint": rec.Fingerprint(),
			}).Info("calibration record written")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&payloadPath, "payload", "", "calibration payload file")
	f.Int64Var(&createSize, "create", 0, "create a new erased flash image of this size in bytes")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func newFlashEraseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "erase",
		Short: "Erase the calibration record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			offset := recordOffset(cmd, conf)

			dev, err := flash.Open(conf.FlashPath(), false)
			if err != nil {
				return err
			}
			defer dev.Close()

			if err := dev.Write(offset, bytes.Repeat([]byte{flash.ErasedByte}, calibration.RecordSize)); err != nil {
				return err
			}

			logrus.WithField("offset", offset).Info("calibration record erased")
			return nil
		},
	}
}
