package daemon

import (
	"encoding/json"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/events"
	"github.com/charlie0129/mmwctl/pkg/mmwave"
	"github.com/charlie0129/mmwctl/pkg/stream"
)

// State is what the daemon publishes for `mmwctl status`.
type State struct {
	PID       int       `json:"pid"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`

	Started bool               `json:"started"`
	Restore calibration.Status `json:"restore"`

	Clpc         *mmwave.TxClpcCalCommand `json:"clpc,omitempty"`
	ClpcSchedule string                   `json:"clpcSchedule,omitempty"`
	NextClpc     time.Time                `json:"nextClpc,omitempty"`
	ClpcRuns     int                      `json:"clpcRuns"`

	Stream *stream.Stats `json:"stream,omitempty"`

	// Events are the most recent daemon events, oldest first.
	Events []events.Event `json:"events,omitempty"`
}

// WriteState writes st to path, replacing it atomically.
func WriteState(path string, st *State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal state")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write state file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return pkgerrors.Wrapf(err, "failed to replace state file %s", path)
	}

	return nil
}

// ReadState reads a state file written by WriteState.
func ReadState(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read state file %s", path)
	}

	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal state file %s", path)
	}

	return &st, nil
}
