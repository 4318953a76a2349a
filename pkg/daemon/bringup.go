package daemon

import (
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/mmwave"
)

// ErrNotStarted is returned by operations that need running frames.
var ErrNotStarted = errors.New("sensor is not started")

// Sensor drives the front-end lifecycle and owns the calibration context.
type Sensor struct {
	ctrl     mmwave.Control
	restorer *calibration.Restorer
	calCtx   *calibration.Context

	// RequireFactoryCal aborts bring-up when the factory calibration restore fails.
	RequireFactoryCal bool

	mu      sync.Mutex
	started bool
	opened  bool
	inited  bool
}

// NewSensor returns a sensor that restores factory calibration from storage
// during bring-up.
func NewSensor(ctrl mmwave.Control, storage calibration.Storage, settings calibration.Settings, calCtx *calibration.Context) *Sensor {
	return &Sensor{
		ctrl:              ctrl,
		restorer:          calibration.NewRestorer(storage, ctrl, settings),
		calCtx:            calCtx,
		RequireFactoryCal: true,
	}
}

// Context returns the calibration context.
func (s *Sensor) Context() *calibration.Context {
	return s.calCtx
}

// Restorer returns the factory calibration restorer.
func (s *Sensor) Restorer() *calibration.Restorer {
	return s.restorer
}

// Started reports whether BringUp completed and Shutdown has not run.
func (s *Sensor) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started
}

// logMMWaveError logs the decoded front-end error code, if err carries one.
func logMMWaveError(err error, msg string) {
	var mmwErr *mmwave.Error
	if errors.As(err, &mmwErr) {
		level, mmwaveCode, subsysCode := mmwErr.Decode()
		logrus.WithFields(logrus.Fields{
			"errCode":         mmwErr.Code,
			"errorLevel":      level,
			"mmWaveErrorCode": mmwaveCode,
			"subsysErrorCode": subsysCode,
		}).Error(msg)
		return
	}
	logrus.WithError(err).Error(msg)
}

// BringUp runs Init, restores the factory calibration, then Open, Config and
// Start. On failure the steps already done are undone.
func (s *Sensor) BringUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if err := s.ctrl.Init(); err != nil {
		logMMWaveError(err, "mmwave init failed")
		return pkgerrors.Wrap(err, "failed to initialize front-end")
	}
	s.inited = true

	err := s.restorer.Restore(s.calCtx)
	logrus.WithField("result", calibration.ResultCode(err)).Debug("factory calibration restore finished")
	if err != nil {
		if s.RequireFactoryCal {
			s.teardown()
			return pkgerrors.Wrap(err, "failed to restore factory calibration")
		}
		logrus.WithError(err).Warn("continuing without factory calibration")
	}

	if err := s.ctrl.Open(mmwave.DefaultOpenConfig(s.calCtx.ClpcPtr(), 0)); err != nil {
		logMMWaveError(err, "mmwave open failed")
		s.teardown()
		return pkgerrors.Wrap(err, "failed to open front-end")
	}
	s.opened = true

	ctrlCfg := &mmwave.CtrlConfig{
		Profile: s.calCtx.Profile,
		Channel: s.calCtx.Channel,
		Frame:   s.calCtx.Frame,
	}
	if err := s.ctrl.Config(ctrlCfg); err != nil {
		logMMWaveError(err, "mmwave config failed")
		s.teardown()
		return pkgerrors.Wrap(err, "failed to configure front-end")
	}

	if err := s.ctrl.Start(mmwave.DefaultCalibrationConfig(), mmwave.DefaultStartConfig()); err != nil {
		logMMWaveError(err, "mmwave start failed")
		s.teardown()
		return pkgerrors.Wrap(err, "failed to start sensor")
	}
	s.started = true

	logrus.WithFields(logrus.Fields{
		"numTxAntennas": s.calCtx.Channel.NumTxAntennas(),
		"numRxAntennas": s.calCtx.Channel.NumRxAntennas(),
		"numChirps":     s.calCtx.Frame.NumChirps(),
	}).Info("sensor started")

	return nil
}

// Shutdown stops frames and releases the front-end.
func (s *Sensor) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.started {
		if err := s.ctrl.Stop(); err != nil {
			logMMWaveError(err, "mmwave stop failed")
			firstErr = pkgerrors.Wrap(err, "failed to stop sensor")
		}
		s.started = false
	}

	if err := s.teardown(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// teardown closes and deinitializes whatever is open. Callers hold s.mu.
func (s *Sensor) teardown() error {
	var firstErr error

	if s.opened {
		if err := s.ctrl.Close(); err != nil {
			logMMWaveError(err, "mmwave close failed")
			firstErr = pkgerrors.Wrap(err, "failed to close front-end")
		}
		s.opened = false
	}
	if s.inited {
		if err := s.ctrl.Deinit(); err != nil {
			logMMWaveError(err, "mmwave deinit failed")
			if firstErr == nil {
				firstErr = pkgerrors.Wrap(err, "failed to deinitialize front-end")
			}
		}
		s.inited = false
	}

	return firstErr
}

// RunTxClpcCalibration sends the runtime TX power calibration command
// derived from the restored factory calibration.
func (s *Sensor) RunTxClpcCalibration() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	cmd, ok := s.calCtx.Clpc()
	if !ok {
		return pkgerrors.New("no factory calibration restored, runtime calibration command is not available")
	}

	if err := s.ctrl.RunTxClpcCalibration(&cmd); err != nil {
		logMMWaveError(err, "mmwave TX CLPC calibration failed")
		return pkgerrors.Wrap(err, "failed to run TX CLPC calibration")
	}

	logrus.WithFields(logrus.Fields{
		"calRfFreq":         cmd.CalRfFreq,
		"txPwrCalTxEnaMask": cmd.TxPwrCalTxEnaMask,
	}).Debug("TX CLPC calibration done")

	return nil
}
