package flash

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Mock is an in-memory Device.
type Mock struct {
	mu   sync.Mutex
	data []byte

	// ReadErr, when set, is returned by every Read.
	ReadErr error
	// Reads counts Read calls.
	Reads int
}

var _ Device = &Mock{}

// NewMock returns an erased in-memory device of the given size with prefill
// values written at their offsets.
func NewMock(size int, prefill map[uint32][]byte) *Mock {
	m := &Mock{data: make([]byte, size)}
	for i := range m.data {
		m.data[i] = ErasedByte
	}

	for offset, value := range prefill {
		if err := m.Write(offset, value); err != nil {
			panic(err)
		}
	}

	return m
}

func (m *Mock) Read(offset uint32, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logrus.Tracef("mock flash Read(0x%x, %d) called", offset, length)

	m.Reads++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if err := checkRange(offset, length, int64(len(m.data))); err != nil {
		return nil, err
	}

	b := make([]byte, length)
	copy(b, m.data[offset:])

	return b, nil
}

func (m *Mock) Write(offset uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkRange(offset, len(data), int64(len(m.data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)

	return nil
}

func (m *Mock) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.data))
}

func (m *Mock) Close() error {
	return nil
}
