package calibration

import (
	"encoding/binary"

	pkgerrors "github.com/pkg/errors"
	"github.com/snksoft/crc"

	"github.com/charlie0129/mmwctl/pkg/mmwave"
)

const (
	// Magic marks a valid calibration record.
	Magic uint32 = 0x7CB28DF9

	// headerSize keeps the payload 8-byte aligned: magic, then 4 reserved bytes.
	headerSize = 8

	PayloadSize = mmwave.FactoryCalDataSize
	RecordSize  = headerSize + PayloadSize
)

// byteOrder is the target's native order.
var byteOrder = binary.LittleEndian

var crcTable = crc.NewTable(crc.CRC32)

// Record is the factory calibration record as stored in flash:
//
//	| magic (u32) | reserved (4 bytes) | payload (PayloadSize bytes) |
type Record struct {
	Magic   uint32
	Payload [PayloadSize]byte
}

// NewRecord wraps a front-end calibration data block in a valid record.
func NewRecord(payload []byte) (*Record, error) {
	if len(payload) != PayloadSize {
		return nil, pkgerrors.Wrapf(ErrRecordSize, "payload is %d bytes, want %d", len(payload), PayloadSize)
	}

	r := &Record{Magic: Magic}
	copy(r.Payload[:], payload)

	return r, nil
}

// DecodeRecord deserializes and validates a record. b must be exactly
// RecordSize bytes. The payload is copied verbatim.
func DecodeRecord(b []byte) (*Record, error) {
	if len(b) != RecordSize {
		return nil, pkgerrors.Wrapf(ErrRecordSize, "got %d bytes, want %d", len(b), RecordSize)
	}

	magic, _ := ReadMagic(b)
	r := &Record{Magic: magic}
	if r.Magic != Magic {
		return nil, pkgerrors.Wrapf(ErrInvalidMagic, "magic 0x%08x, want 0x%08x", r.Magic, Magic)
	}
	copy(r.Payload[:], b[headerSize:])

	return r, nil
}

// ReadMagic returns the magic tag at the start of a record buffer.
func ReadMagic(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, pkgerrors.Wrapf(ErrRecordSize, "got %d bytes, need at least 4", len(b))
	}
	return byteOrder.Uint32(b[0:4]), nil
}

// MarshalBinary encodes the record in its flash layout.
func (r *Record) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordSize)
	byteOrder.PutUint32(b[0:4], r.Magic)
	copy(b[headerSize:], r.Payload[:])

	return b, nil
}

// Fingerprint is a CRC-32 of the payload, used to tell calibration blobs apart
// in logs. It is not a validity check.
func (r *Record) Fingerprint() uint32 {
	return uint32(crcTable.CalculateCRC(r.Payload[:]))
}
