package flash

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileCreateReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	d, err := Create(path, 4096)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer d.Close()

	if d.Size() != 4096 {
		t.Fatalf("expected size 4096, got %d", d.Size())
	}

	b, err := d.Read(0x100, 8)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(b, bytes.Repeat([]byte{ErasedByte}, 8)) {
		t.Fatalf("expected erased bytes, got %x", b)
	}

	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := d.Write(0xffc, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ro, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()

	got, err := ro.Read(0xffc, 4)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %x, got %x", want, got)
	}
}

func TestFileOutOfRange(t *testing.T) {
	d, err := Create(filepath.Join(t.TempDir(), "flash.img"), 1024)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer d.Close()

	if _, err := d.Read(1020, 8); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := d.Write(1024, []byte{0x1}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestFileClosed(t *testing.T) {
	d, err := Create(filepath.Join(t.TempDir(), "flash.img"), 16)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_ = d.Close()

	if _, err := d.Read(0, 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.img"), true); err == nil {
		t.Fatalf("expected error opening a missing image")
	}
}

func TestMock(t *testing.T) {
	m := NewMock(64, map[uint32][]byte{
		8: {0x1, 0x2, 0x3},
	})

	b, err := m.Read(7, 5)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(b, []byte{0xff, 0x1, 0x2, 0x3, 0xff}) {
		t.Fatalf("unexpected content %x", b)
	}

	b[1] = 0x55
	again, _ := m.Read(8, 1)
	if again[0] != 0x1 {
		t.Fatalf("Read must return a copy")
	}

	m.ReadErr = errors.New("bus error")
	if _, err := m.Read(0, 1); err == nil {
		t.Fatalf("expected injected error")
	}
	if m.Reads != 3 {
		t.Fatalf("expected 3 reads, got %d", m.Reads)
	}
}
