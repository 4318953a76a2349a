package stream

import (
	"time"

	"github.com/cenkalti/backoff"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// openBackOff is how long OpenPort keeps retrying a port that is not there
// yet, e.g. a USB UART still enumerating.
func openBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      5 * time.Second,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// OpenPort opens the streaming UART at 8N1.
func OpenPort(name string, baudRate int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	var port serial.Port
	op := func() error {
		p, err := serial.Open(name, mode)
		if err != nil {
			logrus.WithError(err).WithField("port", name).Debug("failed to open serial port, retrying")
			return err
		}
		port = p
		return nil
	}

	if err := backoff.Retry(op, openBackOff()); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open serial port %s", name)
	}

	logrus.WithFields(logrus.Fields{
		"port":     name,
		"baudRate": baudRate,
	}).Info("serial port opened")

	return port, nil
}
