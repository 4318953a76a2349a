package calibration

import "errors"

var (
	// ErrStorageRead is returned when the calibration record could not be read.
	ErrStorageRead = errors.New("could not read calibration data from flash")
	// ErrRecordSize is returned when a record buffer has the wrong length.
	ErrRecordSize = errors.New("calibration record has wrong size")
	// ErrInvalidMagic is returned when the record magic does not match. The
	// record was either never written or is corrupted.
	ErrInvalidMagic = errors.New("calibration data header validation failed")
	// ErrCalibrationExecution is returned when the front-end reports that the
	// calibration sequence itself failed.
	ErrCalibrationExecution = errors.New("factory calibration failure")
	// ErrInvalidCalibrationArguments is returned for any other front-end error.
	ErrInvalidCalibrationArguments = errors.New("invalid factory calibration arguments")
)

// Result codes reported to the bring-up sequencer.
const (
	ResultSuccess int32 = 0
	ResultFailure int32 = -1
)

// ResultCode maps a Restore result to the bring-up result code.
func ResultCode(err error) int32 {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
