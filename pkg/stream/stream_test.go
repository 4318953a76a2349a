package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func testCube() *Cube {
	c := NewCube(2, 3, 4)
	for i := range c.Data {
		c.Data[i] = Sample{Imag: int16(-i), Real: int16(i * 10)}
	}
	return c
}

func TestCubeOffset(t *testing.T) {
	c := NewCube(2, 3, 4)
	tests := []struct {
		chirp, antenna, bin int
		want                int
	}{
		{0, 0, 0, 0},
		{0, 0, 3, 3},
		{0, 1, 0, 4},
		{0, 2, 1, 9},
		{1, 0, 0, 12},
		{1, 2, 3, 23},
	}
	for _, tt := range tests {
		if got := c.Offset(tt.chirp, tt.antenna, tt.bin); got != tt.want {
			t.Errorf("Offset(%d, %d, %d) = %d, want %d", tt.chirp, tt.antenna, tt.bin, got, tt.want)
		}
	}
	if c.Len() != 24 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestCubeRowOutOfRange(t *testing.T) {
	c := NewCube(1, 1, 4)
	if _, err := c.Row(1, 0); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := c.Row(0, -1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSendFrame(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamer(&buf, Options{RangeBins: 2})

	if err := s.SendFrame(context.Background(), testCube()); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	want := []byte{
		0xAA, 0xBB, 0xCC, 0xDD,
		0x00, 0x00, 0x00, 0x00, // imag 0, real 0
		0xFF, 0xFF, 0x0A, 0x00, // imag -1, real 10
		0xDD, 0xCC, 0xBB, 0xAA,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("frame = % x, want % x", buf.Bytes(), want)
	}
	if st := s.Stats(); st.Frames != 1 || st.WriteErrors != 0 {
		t.Fatalf("Stats = %+v", st)
	}
}

func TestSendFrameSelectsRow(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamer(&buf, Options{RangeBins: 1, Chirp: 1, Antenna: 2})

	if err := s.SendFrame(context.Background(), testCube()); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	// offset 20: imag -20, real 200
	got := buf.Bytes()[4:8]
	if !bytes.Equal(got, []byte{0xEC, 0xFF, 0xC8, 0x00}) {
		t.Fatalf("sample = % x", got)
	}
}

type flakyWriter struct {
	calls  int
	failAt map[int]bool
	buf    bytes.Buffer
}

func (w *flakyWriter) Write(b []byte) (int, error) {
	w.calls++
	if w.failAt[w.calls] {
		return 0, errors.New("uart busy")
	}
	return w.buf.Write(b)
}

func TestSendFrameContinuesAfterWriteError(t *testing.T) {
	// header, 3 samples, footer; fail the second sample
	w := &flakyWriter{failAt: map[int]bool{3: true}}
	s := NewStreamer(w, Options{RangeBins: 3})

	if err := s.SendFrame(context.Background(), testCube()); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	if w.calls != 5 {
		t.Fatalf("writes = %d, want 5", w.calls)
	}
	if !bytes.HasSuffix(w.buf.Bytes(), Footer[:]) {
		t.Fatalf("footer missing")
	}
	if st := s.Stats(); st.Frames != 1 || st.WriteErrors != 1 {
		t.Fatalf("Stats = %+v", st)
	}
}

func TestSendFrameTooFewBins(t *testing.T) {
	s := NewStreamer(io.Discard, Options{RangeBins: 5})
	if err := s.SendFrame(context.Background(), testCube()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSendFrameCancelled(t *testing.T) {
	s := NewStreamer(io.Discard, Options{RangeBins: 1, FrameRate: 0.001})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.SendFrame(ctx, testCube()); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestReplaySource(t *testing.T) {
	var capture bytes.Buffer
	var b [SampleSize]byte
	for _, smp := range testCube().Data {
		EncodeSample(b[:], smp)
		capture.Write(b[:])
	}

	src, err := NewReplaySource(&capture, 2, 3, 4)
	if err != nil {
		t.Fatalf("NewReplaySource: %v", err)
	}
	c, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	want := testCube()
	for i := range want.Data {
		if c.Data[i] != want.Data[i] {
			t.Fatalf("sample %d = %+v, want %+v", i, c.Data[i], want.Data[i])
		}
	}
	if _, err := src.Next(); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestReplaySourceTruncated(t *testing.T) {
	src, err := NewReplaySource(bytes.NewReader(make([]byte, 10)), 1, 1, 4)
	if err != nil {
		t.Fatalf("NewReplaySource: %v", err)
	}
	if _, err := src.Next(); err == nil || err == io.EOF {
		t.Fatalf("err = %v, want truncation error", err)
	}
}

func TestRunReplay(t *testing.T) {
	var capture bytes.Buffer
	capture.Write(make([]byte, 2*1*2*SampleSize))

	src, err := NewReplaySource(&capture, 1, 1, 2)
	if err != nil {
		t.Fatalf("NewReplaySource: %v", err)
	}

	var out bytes.Buffer
	s := NewStreamer(&out, Options{RangeBins: 2})
	if err := s.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Stats().Frames != 2 {
		t.Fatalf("Frames = %d", s.Stats().Frames)
	}
	if out.Len() != 2*(8+2*SampleSize) {
		t.Fatalf("wrote %d bytes", out.Len())
	}
}

func TestToneSource(t *testing.T) {
	src, err := NewToneSource(1, 2, 8, 5, 1000)
	if err != nil {
		t.Fatalf("NewToneSource: %v", err)
	}
	c, _ := src.Next()
	if got := c.Data[c.Offset(0, 0, 5)]; got.Real != 1000 || got.Imag != 0 {
		t.Fatalf("peak = %+v", got)
	}
	if got := c.Data[c.Offset(0, 0, 4)]; got != (Sample{}) {
		t.Fatalf("bin 4 = %+v, want zero", got)
	}
}

func TestSourcesRejectInvalidShape(t *testing.T) {
	tests := []struct {
		name                                 string
		numChirps, numAntennas, numRangeBins int
		bin                                  int
	}{
		{name: "no range bins", numChirps: 128, numAntennas: 6, numRangeBins: 0, bin: 0},
		{name: "negative range bins", numChirps: 128, numAntennas: 6, numRangeBins: -8, bin: 0},
		{name: "no antennas", numChirps: 128, numAntennas: 0, numRangeBins: 16, bin: 0},
		{name: "no chirps", numChirps: 0, numAntennas: 6, numRangeBins: 16, bin: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewToneSource(tt.numChirps, tt.numAntennas, tt.numRangeBins, tt.bin, 1000); !errors.Is(err, ErrInvalidShape) {
				t.Errorf("NewToneSource error = %v, want ErrInvalidShape", err)
			}
			if _, err := NewReplaySource(bytes.NewReader(nil), tt.numChirps, tt.numAntennas, tt.numRangeBins); !errors.Is(err, ErrInvalidShape) {
				t.Errorf("NewReplaySource error = %v, want ErrInvalidShape", err)
			}
		})
	}

	for _, bin := range []int{-1, 16} {
		if _, err := NewToneSource(1, 1, 16, bin, 1000); !errors.Is(err, ErrInvalidShape) {
			t.Errorf("NewToneSource(bin %d) error = %v, want ErrInvalidShape", bin, err)
		}
	}
}
