package calibration

// Phase defines phases of the factory calibration restore.
type Phase string

const (
	PhaseIdle       Phase = "Idle"
	PhaseReading    Phase = "Reading"
	PhaseValidating Phase = "Validating"
	PhaseApplying   Phase = "Applying"
	PhaseProjected  Phase = "Projected"
	PhaseFailed     Phase = "Failed"
)

// Default factory calibration selectors.
const (
	DefaultFlashOffset  uint32 = 0x1FF000
	DefaultRxGainSel    uint8  = 40
	DefaultTxBackOffSel uint8  = 0
)

// Settings holds the factory calibration selectors fixed at build or install time.
type Settings struct {
	// FlashOffset is where the calibration record lives.
	FlashOffset  uint32 `json:"flashOffset"`
	RxGainSel    uint8  `json:"rxGainSel"`
	TxBackOffSel uint8  `json:"txBackOffSel"`
}

// DefaultSettings returns the default selectors.
func DefaultSettings() Settings {
	return Settings{
		FlashOffset:  DefaultFlashOffset,
		RxGainSel:    DefaultRxGainSel,
		TxBackOffSel: DefaultTxBackOffSel,
	}
}
