package mmwave

import "fmt"

// ErrorLevel is the severity of a decoded front-end error.
type ErrorLevel int

const (
	ErrorLevelSuccess ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelError
)

func (l ErrorLevel) String() string {
	switch l {
	case ErrorLevelSuccess:
		return "success"
	case ErrorLevelWarning:
		return "warning"
	case ErrorLevelError:
		return "error"
	}
	return fmt.Sprintf("ErrorLevel(%d)", int(l))
}

const errnoBase int16 = -3100

// mmWave control module error codes.
const (
	CodeInvalidArg   = errnoBase - 1
	CodeNoMem        = errnoBase - 2
	CodeInvalidState = errnoBase - 3
	CodeNotSupported = errnoBase - 4
	CodeLink         = errnoBase - 5
	CodeTimeout      = errnoBase - 6
	// CodeWarning marks a non fatal condition, the subsystem code carries the detail.
	CodeWarning = errnoBase - 7
	// CodeRFSBootCal means the RF subsystem boot calibration itself failed.
	CodeRFSBootCal = errnoBase - 8
)

// Error is returned by Control operations. Code packs the mmWave error code in
// the low 16 bits and the subsystem (radar link firmware) code in the high 16 bits.
type Error struct {
	Op   string
	Code int32
}

func (e *Error) Error() string {
	level, mmwaveCode, subsysCode := DecodeError(e.Code)
	return fmt.Sprintf("mmwave %s failed [errorLevel %s] [mmWaveErrorCode %d] [subsysErrorCode %d]",
		e.Op, level, mmwaveCode, subsysCode)
}

// Decode splits the error code, see DecodeError.
func (e *Error) Decode() (ErrorLevel, int16, int16) {
	return DecodeError(e.Code)
}

// NewError builds an Error for op from its two component codes.
func NewError(op string, mmwaveCode, subsysCode int16) *Error {
	return &Error{Op: op, Code: EncodeError(mmwaveCode, subsysCode)}
}

// EncodeError packs an mmWave code and a subsystem code into one error code.
func EncodeError(mmwaveCode, subsysCode int16) int32 {
	return int32(uint32(uint16(subsysCode))<<16 | uint32(uint16(mmwaveCode)))
}

// DecodeError splits an error code into its level, mmWave code and subsystem code.
func DecodeError(code int32) (level ErrorLevel, mmwaveCode int16, subsysCode int16) {
	mmwaveCode = int16(uint32(code) & 0xFFFF)
	subsysCode = int16(uint32(code) >> 16)

	switch {
	case mmwaveCode == 0 && subsysCode == 0:
		level = ErrorLevelSuccess
	case mmwaveCode == CodeWarning:
		level = ErrorLevelWarning
	default:
		level = ErrorLevelError
	}

	return
}
