package calibration

import (
	"sync"

	"github.com/charlie0129/mmwctl/pkg/mmwave"
	"github.com/charlie0129/mmwctl/pkg/sensor"
)

// Context is the sensor state shared by the bring-up steps. Profile and
// Channel are inputs to the restore and must not change while it runs.
// CalibData and Clpc are written by the restore and may be read concurrently
// afterwards.
type Context struct {
	Profile sensor.Profile
	Channel sensor.Channel
	Frame   sensor.Frame

	mu        sync.RWMutex
	calibData []byte
	clpc      mmwave.TxClpcCalCommand
	clpcValid bool
}

// NewContext returns a context for the given chirp configuration.
func NewContext(profile sensor.Profile, channel sensor.Channel, frame sensor.Frame) *Context {
	return &Context{
		Profile: profile,
		Channel: channel,
		Frame:   frame,
	}
}

// CalibData returns a copy of the calibration record bytes last read from flash.
func (c *Context) CalibData() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.calibData == nil {
		return nil
	}
	return append([]byte(nil), c.calibData...)
}

// Clpc returns the runtime calibration command and whether a factory
// calibration has been applied to derive it from.
func (c *Context) Clpc() (mmwave.TxClpcCalCommand, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.clpc, c.clpcValid
}

// ClpcPtr returns a pointer to a copy of the runtime calibration command, or
// nil when no factory calibration was applied.
func (c *Context) ClpcPtr() *mmwave.TxClpcCalCommand {
	cmd, ok := c.Clpc()
	if !ok {
		return nil
	}
	return &cmd
}

func (c *Context) setCalibData(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calibData = append(c.calibData[:0], b...)
}

func (c *Context) setClpc(cmd mmwave.TxClpcCalCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clpc = cmd
	c.clpcValid = true
}
