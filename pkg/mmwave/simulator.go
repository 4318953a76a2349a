package mmwave

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type simState int

const (
	stateUninitialized simState = iota
	stateInitialized
	stateOpened
	stateConfigured
	stateStarted
)

// Simulator is an in-process front-end. It enforces the lifecycle order,
// validates calibration requests and records what was applied.
type Simulator struct {
	mu    sync.Mutex
	state simState

	failures map[string]*Error

	factoryCal    *FactoryCalConfig
	factoryCalRun int
	clpc          *TxClpcCalCommand
	clpcRuns      int
	ctrl          *CtrlConfig
}

var _ Control = &Simulator{}

// NewSimulator returns a simulated front-end in the uninitialized state.
func NewSimulator() *Simulator {
	return &Simulator{
		failures: map[string]*Error{},
	}
}

// FailNext makes the next call of op fail with the given codes.
func (s *Simulator) FailNext(op string, mmwaveCode, subsysCode int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[op] = NewError(op, mmwaveCode, subsysCode)
}

func (s *Simulator) injected(op string) error {
	if e, ok := s.failures[op]; ok {
		delete(s.failures, op)
		logrus.WithFields(logrus.Fields{
			"op":   op,
			"code": e.Code,
		}).Trace("simulator returning injected failure")
		return e
	}
	return nil
}

func (s *Simulator) transition(op string, from, to simState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.Tracef("simulator %s called", op)

	if err := s.injected(op); err != nil {
		return err
	}
	if s.state != from {
		return NewError(op, CodeInvalidState, 0)
	}
	s.state = to

	return nil
}

func (s *Simulator) Init() error {
	return s.transition(OpInit, stateUninitialized, stateInitialized)
}

func (s *Simulator) Open(cfg *OpenConfig) error {
	if cfg == nil {
		return NewError(OpOpen, CodeInvalidArg, 0)
	}
	return s.transition(OpOpen, stateInitialized, stateOpened)
}

func (s *Simulator) Config(cfg *CtrlConfig) error {
	if cfg == nil || cfg.Channel.NumTxAntennas() == 0 || cfg.Channel.NumRxAntennas() == 0 {
		return NewError(OpConfig, CodeInvalidArg, 0)
	}
	if err := s.transition(OpConfig, stateOpened, stateConfigured); err != nil {
		return err
	}

	s.mu.Lock()
	c := *cfg
	s.ctrl = &c
	s.mu.Unlock()

	return nil
}

func (s *Simulator) Start(calib *CalibrationConfig, start *StartConfig) error {
	if calib == nil || start == nil {
		return NewError(OpStart, CodeInvalidArg, 0)
	}
	return s.transition(OpStart, stateConfigured, stateStarted)
}

func (s *Simulator) Stop() error {
	return s.transition(OpStop, stateStarted, stateConfigured)
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.Tracef("simulator %s called", OpClose)

	if err := s.injected(OpClose); err != nil {
		return err
	}
	if s.state != stateOpened && s.state != stateConfigured {
		return NewError(OpClose, CodeInvalidState, 0)
	}
	s.state = stateInitialized

	return nil
}

func (s *Simulator) Deinit() error {
	return s.transition(OpDeinit, stateInitialized, stateUninitialized)
}

// FactoryCalibConfig accepts a restore request after Init and before Open.
func (s *Simulator) FactoryCalibConfig(cfg *FactoryCalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.Tracef("simulator %s called", OpFactoryCalib)

	if err := s.injected(OpFactoryCalib); err != nil {
		return err
	}
	if s.state != stateInitialized {
		return NewError(OpFactoryCalib, CodeInvalidState, 0)
	}
	if cfg == nil || cfg.CalCtrlBitMask&calCtrlReserved != 0 {
		return NewError(OpFactoryCalib, CodeInvalidArg, 0)
	}
	if !cfg.FactoryCalEnabled && len(cfg.FactoryCalData) != FactoryCalDataSize {
		return NewError(OpFactoryCalib, CodeInvalidArg, 0)
	}

	c := *cfg
	c.FactoryCalData = append([]byte(nil), cfg.FactoryCalData...)
	s.factoryCal = &c
	s.factoryCalRun++

	return nil
}

// RunTxClpcCalibration needs a started sensor.
func (s *Simulator) RunTxClpcCalibration(cmd *TxClpcCalCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.Tracef("simulator %s called", OpTxClpcCalib)

	if err := s.injected(OpTxClpcCalib); err != nil {
		return err
	}
	if s.state != stateStarted {
		return NewError(OpTxClpcCalib, CodeInvalidState, 0)
	}
	if cmd == nil || cmd.TxPwrCalTxEnaMask == [2]uint8{} {
		return NewError(OpTxClpcCalib, CodeInvalidArg, 0)
	}

	c := *cmd
	s.clpc = &c
	s.clpcRuns++

	return nil
}

// AppliedFactoryCal returns a copy of the last accepted factory calibration
// request and how many were accepted.
func (s *Simulator) AppliedFactoryCal() (*FactoryCalConfig, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.factoryCal == nil {
		return nil, s.factoryCalRun
	}
	c := *s.factoryCal
	c.FactoryCalData = append([]byte(nil), s.factoryCal.FactoryCalData...)

	return &c, s.factoryCalRun
}

// LastClpc returns the last accepted runtime calibration command and the run count.
func (s *Simulator) LastClpc() (*TxClpcCalCommand, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clpc == nil {
		return nil, s.clpcRuns
	}
	c := *s.clpc

	return &c, s.clpcRuns
}

// Started reports whether frames are running.
func (s *Simulator) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == stateStarted
}
