// Package flash exposes persistent storage as a flat, offset addressed byte device.
package flash

import (
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErasedByte is the value of an erased flash cell.
const ErasedByte = 0xFF

var (
	// ErrOutOfRange is returned when an access does not fit in the device.
	ErrOutOfRange = errors.New("access out of device range")
	// ErrClosed is returned when the device has been closed.
	ErrClosed = errors.New("device closed")
)

// Device is a flat read/write byte device.
type Device interface {
	Read(offset uint32, length int) ([]byte, error)
	Write(offset uint32, data []byte) error
	Size() int64
	Close() error
}

func checkRange(offset uint32, length int, size int64) error {
	if length < 0 || int64(offset)+int64(length) > size {
		return pkgerrors.Wrapf(ErrOutOfRange, "offset 0x%x length %d size %d", offset, length, size)
	}
	return nil
}

// File is a Device backed by a flash image file.
type File struct {
	f    *os.File
	path string
	size int64
}

var _ Device = &File{}

// Open opens an existing flash image.
func Open(path string, readOnly bool) (*File, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open flash image %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, pkgerrors.Wrapf(err, "failed to stat flash image %s", path)
	}

	logrus.WithFields(logrus.Fields{
		"path":     path,
		"size":     st.Size(),
		"readOnly": readOnly,
	}).Debug("flash image opened")

	return &File{f: f, path: path, size: st.Size()}, nil
}

// Create creates a new erased flash image of the given size, truncating any existing file.
func Create(path string, size int64) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid flash size %d", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create flash image %s", path)
	}

	erased := make([]byte, 64*1024)
	for i := range erased {
		erased[i] = ErasedByte
	}
	for written := int64(0); written < size; {
		n := int64(len(erased))
		if size-written < n {
			n = size - written
		}
		if _, err := f.Write(erased[:n]); err != nil {
			_ = f.Close()
			return nil, pkgerrors.Wrapf(err, "failed to erase flash image %s", path)
		}
		written += n
	}

	return &File{f: f, path: path, size: size}, nil
}

// Read reads exactly length bytes at offset.
func (d *File) Read(offset uint32, length int) ([]byte, error) {
	logrus.Tracef("flash Read(0x%x, %d) called", offset, length)

	if d.f == nil {
		return nil, ErrClosed
	}
	if err := checkRange(offset, length, d.size); err != nil {
		return nil, err
	}

	b := make([]byte, length)
	if _, err := d.f.ReadAt(b, int64(offset)); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read %d bytes at 0x%x from %s", length, offset, d.path)
	}

	return b, nil
}

// Write writes data at offset. Flash images are written as-is, no erase cycle is modeled.
func (d *File) Write(offset uint32, data []byte) error {
	logrus.Tracef("flash Write(0x%x, %d bytes) called", offset, len(data))

	if d.f == nil {
		return ErrClosed
	}
	if err := checkRange(offset, len(data), d.size); err != nil {
		return err
	}

	if _, err := d.f.WriteAt(data, int64(offset)); err != nil {
		return pkgerrors.Wrapf(err, "failed to write %d bytes at 0x%x to %s", len(data), offset, d.path)
	}
	if err := d.f.Sync(); err != nil {
		return pkgerrors.Wrapf(err, "failed to sync %s", d.path)
	}

	return nil
}

// Size returns the image size in bytes.
func (d *File) Size() int64 {
	return d.size
}

// Close closes the image.
func (d *File) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
