package events

import "encoding/json"

// Event name constants
const (
	RestorePhase = "restore.phase"
	ClpcRun      = "clpc.run"
)

// Event is a generic event published by the daemon.
type Event struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// RestorePhaseEvent is the typed payload for restore.phase.
type RestorePhaseEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
	Ts   int64  `json:"ts"`
}

// ClpcRunEvent is the typed payload for clpc.run.
type ClpcRunEvent struct {
	Error string `json:"error,omitempty"`
	Ts    int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
