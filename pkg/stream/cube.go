package stream

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// ErrInvalidShape is returned for a cube shape or position that cannot hold samples.
var ErrInvalidShape = errors.New("invalid radar cube shape")

// Sample is one complex range FFT output.
type Sample struct {
	Imag int16
	Real int16
}

// Cube is a radar cube laid out as X[chirp][antenna][rangeBin].
type Cube struct {
	NumChirps    int
	NumAntennas  int
	NumRangeBins int
	Data         []Sample
}

func checkShape(numChirps, numAntennas, numRangeBins int) error {
	if numChirps <= 0 || numAntennas <= 0 || numRangeBins <= 0 {
		return pkgerrors.Wrapf(ErrInvalidShape, "%d chirps, %d antennas, %d range bins",
			numChirps, numAntennas, numRangeBins)
	}
	return nil
}

// NewCube allocates a zeroed cube. The shape must be positive, see
// NewReplaySource and NewToneSource for checked construction.
func NewCube(numChirps, numAntennas, numRangeBins int) *Cube {
	return &Cube{
		NumChirps:    numChirps,
		NumAntennas:  numAntennas,
		NumRangeBins: numRangeBins,
		Data:         make([]Sample, numChirps*numAntennas*numRangeBins),
	}
}

// Len is the number of samples in the cube.
func (c *Cube) Len() int {
	return c.NumChirps * c.NumAntennas * c.NumRangeBins
}

// Offset returns the index of X[chirp][antenna][bin] in Data.
func (c *Cube) Offset(chirp, antenna, bin int) int {
	return (chirp*c.NumAntennas+antenna)*c.NumRangeBins + bin
}

// Row returns the range bins of one chirp and antenna.
func (c *Cube) Row(chirp, antenna int) ([]Sample, error) {
	if chirp < 0 || chirp >= c.NumChirps || antenna < 0 || antenna >= c.NumAntennas {
		return nil, pkgerrors.Errorf("row (%d, %d) outside cube %dx%dx%d",
			chirp, antenna, c.NumChirps, c.NumAntennas, c.NumRangeBins)
	}
	start := c.Offset(chirp, antenna, 0)
	return c.Data[start : start+c.NumRangeBins], nil
}
