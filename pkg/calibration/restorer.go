package calibration

import (
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/mmwctl/pkg/mmwave"
)

// Storage reads raw bytes from non-volatile memory.
type Storage interface {
	Read(offset uint32, length int) ([]byte, error)
}

// FrontEnd applies a factory calibration request to the RF front-end.
type FrontEnd interface {
	FactoryCalibConfig(cfg *mmwave.FactoryCalConfig) error
}

// Status is a snapshot of the last restore.
type Status struct {
	Phase       Phase     `json:"phase"`
	Fingerprint uint32    `json:"fingerprint,omitempty"`
	Error       string    `json:"error,omitempty"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
}

// Restorer loads the factory calibration record from storage and applies it
// to the front-end. Only one restore runs at a time.
type Restorer struct {
	storage  Storage
	frontEnd FrontEnd
	settings Settings

	// OnPhase, when set, is called on every phase change with the lock held.
	// It must not call back into the Restorer.
	OnPhase func(from, to Phase)

	mu     sync.Mutex
	status Status
}

// NewRestorer returns an idle Restorer.
func NewRestorer(storage Storage, frontEnd FrontEnd, settings Settings) *Restorer {
	return &Restorer{
		storage:  storage,
		frontEnd: frontEnd,
		settings: settings,
		status:   Status{Phase: PhaseIdle},
	}
}

// Status returns the state of the last restore.
func (r *Restorer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// Phase returns the current restore phase.
func (r *Restorer) Phase() Phase {
	return r.Status().Phase
}

func (r *Restorer) setPhase(to Phase) {
	from := r.status.Phase
	r.status.Phase = to
	logrus.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
	}).Debug("factory calibration phase changed")
	if r.OnPhase != nil {
		r.OnPhase(from, to)
	}
}

func (r *Restorer) fail(err error) error {
	r.status.Error = err.Error()
	r.status.FinishedAt = time.Now()
	r.setPhase(PhaseFailed)
	return err
}

// Restore reads the calibration record, validates it and applies it. On
// success the runtime calibration command is stored in ctx. On failure ctx
// keeps whatever runtime calibration command it had before.
//
// The returned error wraps one of ErrStorageRead, ErrRecordSize,
// ErrInvalidMagic, ErrCalibrationExecution or ErrInvalidCalibrationArguments.
func (r *Restorer) Restore(ctx *Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = Status{Phase: PhaseIdle}

	r.setPhase(PhaseReading)
	b, err := r.storage.Read(r.settings.FlashOffset, RecordSize)
	if err != nil {
		logrus.WithError(err).WithField("offset", r.settings.FlashOffset).Error("could not read calibration data from flash")
		return r.fail(pkgerrors.Wrapf(ErrStorageRead, "read %d bytes at 0x%x: %v", RecordSize, r.settings.FlashOffset, err))
	}
	if len(b) != RecordSize {
		logrus.WithField("length", len(b)).Error("short read of calibration data from flash")
		return r.fail(pkgerrors.Wrapf(ErrStorageRead, "read %d bytes at 0x%x, want %d", len(b), r.settings.FlashOffset, RecordSize))
	}
	ctx.setCalibData(b)

	r.setPhase(PhaseValidating)
	rec, err := DecodeRecord(b)
	if err != nil {
		logrus.WithError(err).Error("calibration data header validation failed")
		return r.fail(err)
	}
	r.status.Fingerprint = rec.Fingerprint()
	logrus.WithFields(logrus.Fields{
		"fingerprint": r.status.Fingerprint,
		"offset":      r.settings.FlashOffset,
	}).Debug("calibration record is valid")

	r.setPhase(PhaseApplying)
	cfg := BuildFactoryCalConfig(ctx, r.settings, rec)
	// Restore the stored data instead of running the calibration again.
	cfg.FactoryCalEnabled = false

	logrus.WithFields(logrus.Fields{
		"calCtrlBitMask":    cfg.CalCtrlBitMask,
		"calRxGainSel":      cfg.CalRxGainSel,
		"calTxBackOffSel":   cfg.CalTxBackOffSel,
		"calRfFreq":         cfg.CalRfFreq,
		"calRfSlope":        cfg.CalRfSlope,
		"txPwrCalTxEnaMask": cfg.TxPwrCalTxEnaMask,
	}).Trace("applying factory calibration")

	if err := r.frontEnd.FactoryCalibConfig(cfg); err != nil {
		return r.fail(classifyApplyError(err))
	}

	ctx.setClpc(ProjectClpc(cfg))
	r.status.FinishedAt = time.Now()
	r.setPhase(PhaseProjected)

	logrus.WithField("fingerprint", r.status.Fingerprint).Info("factory calibration restored")

	return nil
}

// classifyApplyError maps a front-end error to ErrCalibrationExecution when
// the boot calibration itself failed and to ErrInvalidCalibrationArguments
// otherwise.
func classifyApplyError(err error) error {
	var mmwErr *mmwave.Error
	if !errors.As(err, &mmwErr) {
		logrus.WithError(err).Error("mmwave factory calibration config failed")
		return pkgerrors.Wrapf(ErrInvalidCalibrationArguments, "%v", err)
	}

	level, mmwaveCode, subsysCode := mmwErr.Decode()
	logrus.WithFields(logrus.Fields{
		"errCode":         mmwErr.Code,
		"errorLevel":      level,
		"mmWaveErrorCode": mmwaveCode,
		"subsysErrorCode": subsysCode,
	}).Error("mmwave factory calibration config failed")

	if mmwaveCode == mmwave.CodeRFSBootCal {
		return pkgerrors.Wrapf(ErrCalibrationExecution, "%v", err)
	}
	return pkgerrors.Wrapf(ErrInvalidCalibrationArguments, "%v", err)
}
