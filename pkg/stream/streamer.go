package stream

import (
	"context"
	"encoding/binary"
	"io"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	// Header starts every streamed frame.
	Header = [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
	// Footer ends every streamed frame.
	Footer = [4]byte{0xDD, 0xCC, 0xBB, 0xAA}
)

// SampleSize is the wire size of one Sample.
const SampleSize = 4

// Options selects what a Streamer sends.
type Options struct {
	// RangeBins is how many samples each frame carries.
	RangeBins int
	// Chirp and Antenna select the cube row to send.
	Chirp   int
	Antenna int
	// FrameRate caps frames per second. Zero means unlimited.
	FrameRate float64
}

// Stats counts what a Streamer has sent.
type Stats struct {
	Frames      uint64 `json:"frames"`
	WriteErrors uint64 `json:"writeErrors"`
}

// Streamer writes one range profile per frame to a byte sink, normally the
// UART.
type Streamer struct {
	w       io.Writer
	opts    Options
	limiter *rate.Limiter

	mu    sync.Mutex
	stats Stats
}

// NewStreamer returns a Streamer writing to w.
func NewStreamer(w io.Writer, opts Options) *Streamer {
	limit := rate.Inf
	if opts.FrameRate > 0 {
		limit = rate.Limit(opts.FrameRate)
	}

	return &Streamer{
		w:       w,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Stats returns a snapshot of the counters.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// EncodeSample writes a sample in wire order: imaginary then real, little endian.
func EncodeSample(b []byte, smp Sample) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(smp.Imag))
	binary.LittleEndian.PutUint16(b[2:4], uint16(smp.Real))
}

// SendFrame waits for the frame rate limiter, then writes header, samples and
// footer. A failed write is logged and counted and the rest of the frame is
// still sent. Only a cancelled context or a bad cube is returned as error.
func (s *Streamer) SendFrame(ctx context.Context, cube *Cube) error {
	row, err := cube.Row(s.opts.Chirp, s.opts.Antenna)
	if err != nil {
		return err
	}
	if s.opts.RangeBins > len(row) {
		return pkgerrors.Errorf("cube has %d range bins, need %d", len(row), s.opts.RangeBins)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.write(Header[:], "header")

	var buf [SampleSize]byte
	for i := 0; i < s.opts.RangeBins; i++ {
		EncodeSample(buf[:], row[i])
		s.write(buf[:], "sample")
	}

	s.write(Footer[:], "footer")
	s.stats.Frames++

	return nil
}

func (s *Streamer) write(b []byte, what string) {
	if _, err := s.w.Write(b); err != nil {
		s.stats.WriteErrors++
		logrus.WithError(err).WithField("part", what).Warn("UART write failed")
	}
}

// Run sends frames from src until it is exhausted or ctx is cancelled.
func (s *Streamer) Run(ctx context.Context, src Source) error {
	for {
		cube, err := src.Next()
		if err != nil {
			if pkgerrors.Is(err, io.EOF) {
				return nil
			}
			return pkgerrors.Wrap(err, "failed to read next frame")
		}

		if err := s.SendFrame(ctx, cube); err != nil {
			return err
		}
	}
}
