// Package calibration restores the factory calibration of the radar front-end
// at bring-up. It contains:
//
//   - Record: the calibration record stored in flash, with its codec
//   - Context: the sensor state the restore reads and the runtime calibration
//     command it produces
//   - Restorer: the Reading -> Validating -> Applying -> Projected sequence
//
// The runtime TX power calibration (CLPC) command is derived from the request
// that was actually applied so both calibration paths use the same RF
// frequency, slope and back-off values.
package calibration
