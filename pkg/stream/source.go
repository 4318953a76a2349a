package stream

import (
	"encoding/binary"
	"io"
	"math"

	pkgerrors "github.com/pkg/errors"
)

// Source produces radar cubes. Next returns io.EOF when there are no more.
type Source interface {
	Next() (*Cube, error)
}

// ReplaySource reads cubes from a capture: consecutive cubes of samples in
// wire order with no framing.
type ReplaySource struct {
	r            io.Reader
	numChirps    int
	numAntennas  int
	numRangeBins int
	buf          []byte
}

var _ Source = &ReplaySource{}

// NewReplaySource reads cubes of the given shape from r.
func NewReplaySource(r io.Reader, numChirps, numAntennas, numRangeBins int) (*ReplaySource, error) {
	if err := checkShape(numChirps, numAntennas, numRangeBins); err != nil {
		return nil, err
	}

	return &ReplaySource{
		r:            r,
		numChirps:    numChirps,
		numAntennas:  numAntennas,
		numRangeBins: numRangeBins,
		buf:          make([]byte, numChirps*numAntennas*numRangeBins*SampleSize),
	}, nil
}

func (s *ReplaySource) Next() (*Cube, error) {
	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, pkgerrors.Wrap(err, "truncated capture")
	}

	c := NewCube(s.numChirps, s.numAntennas, s.numRangeBins)
	for i := range c.Data {
		b := s.buf[i*SampleSize:]
		c.Data[i] = Sample{
			Imag: int16(binary.LittleEndian.Uint16(b[0:2])),
			Real: int16(binary.LittleEndian.Uint16(b[2:4])),
		}
	}

	return c, nil
}

// ToneSource synthesizes cubes with a single reflector at a fixed range bin.
// It never runs out.
type ToneSource struct {
	cube *Cube
}

var _ Source = &ToneSource{}

// NewToneSource returns a source whose cubes peak at bin with the given amplitude.
func NewToneSource(numChirps, numAntennas, numRangeBins, bin int, amplitude int16) (*ToneSource, error) {
	if err := checkShape(numChirps, numAntennas, numRangeBins); err != nil {
		return nil, err
	}
	if bin < 0 || bin >= numRangeBins {
		return nil, pkgerrors.Wrapf(ErrInvalidShape, "tone bin %d outside %d range bins", bin, numRangeBins)
	}

	c := NewCube(numChirps, numAntennas, numRangeBins)
	for chirp := 0; chirp < numChirps; chirp++ {
		for ant := 0; ant < numAntennas; ant++ {
			phase := 2 * math.Pi * float64(ant) / float64(numAntennas)
			c.Data[c.Offset(chirp, ant, bin)] = Sample{
				Imag: int16(float64(amplitude) * math.Sin(phase)),
				Real: int16(float64(amplitude) * math.Cos(phase)),
			}
		}
	}
	return &ToneSource{cube: c}, nil
}

func (s *ToneSource) Next() (*Cube, error) {
	return s.cube, nil
}
