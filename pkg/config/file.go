package config

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/sensor"
	"github.com/charlie0129/mmwctl/pkg/utils/ptr"
)

// EnvPrefix prefixes environment variables that override file values, e.g.
// MMWCTL_FLASHPATH overrides flashPath.
const EnvPrefix = "MMWCTL_"

var (
	defaultFileConfig = &RawFileConfig{
		FlashPath:         ptr.To("/var/lib/mmwctl/flash.bin"),
		CalibrationOffset: ptr.To(calibration.DefaultFlashOffset),
		RxGainSel:         ptr.To(calibration.DefaultRxGainSel),
		TxBackOffSel:      ptr.To(calibration.DefaultTxBackOffSel),
		RequireFactoryCal: ptr.To(true),
		RfFreqStart:       ptr.To(sensor.DefaultChirpRfFreqStart),
		SlopeMHzPerUs:     ptr.To(sensor.DefaultChirpSlopeMHzPerUs),
		RampEndTime:       ptr.To(sensor.DefaultChirpRampEndTime),
		IdleTime:          ptr.To(sensor.DefaultChirpIdleTime),
		NumAdcSamples:     ptr.To(sensor.DefaultNumAdcSamples),
		TxChannelMask:     ptr.To(sensor.DefaultTxChannelMask),
		RxChannelMask:     ptr.To(sensor.DefaultRxChannelMask),
		ClpcSchedule:      ptr.To("@every 10m"),
		// Streaming is off until a port is configured.
		SerialPort:     ptr.To(""),
		CapturePath:    ptr.To(""),
		BaudRate:       ptr.To(921600),
		FrameRateLimit: ptr.To(10.0),
		RangeBins:      ptr.To(int(sensor.DefaultNumAdcSamples)),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	FlashPath         *string `json:"flashPath,omitempty"`
	CalibrationOffset *uint32 `json:"calibrationOffset,omitempty"`
	RxGainSel         *uint8  `json:"rxGainSel,omitempty"`
	TxBackOffSel      *uint8  `json:"txBackOffSel,omitempty"`
	RequireFactoryCal *bool   `json:"requireFactoryCal,omitempty"`

	RfFreqStart   *uint32  `json:"rfFreqStart,omitempty"`
	SlopeMHzPerUs *float64 `json:"slopeMHzPerUs,omitempty"`
	RampEndTime   *uint16  `json:"rampEndTime,omitempty"`
	IdleTime      *uint16  `json:"idleTime,omitempty"`
	NumAdcSamples *uint16  `json:"numAdcSamples,omitempty"`
	TxChannelMask *uint16  `json:"txChannelMask,omitempty"`
	RxChannelMask *uint16  `json:"rxChannelMask,omitempty"`

	// ClpcSchedule is a cron expression. Empty disables periodic CLPC.
	ClpcSchedule *string `json:"clpcSchedule,omitempty"`

	SerialPort *string `json:"serialPort,omitempty"`
	// CapturePath is a radar cube capture to stream. Empty streams a synthetic target.
	CapturePath    *string  `json:"capturePath,omitempty"`
	BaudRate       *int     `json:"baudRate,omitempty"`
	FrameRateLimit *float64 `json:"frameRateLimit,omitempty"`
	RangeBins      *int     `json:"rangeBins,omitempty"`
}

// envKeys maps upper-cased config keys to their JSON names.
var envKeys = func() map[string]string {
	keys := map[string]string{}
	b, _ := json.Marshal(defaultFileConfig)
	m := map[string]any{}
	_ = json.Unmarshal(b, &m)
	for k := range m {
		keys[strings.ToUpper(k)] = k
	}
	return keys
}()

func valueOr[T any](v, def *T) T {
	if v != nil {
		return *v
	}
	return *def
}

func (f *File) FlashPath() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.FlashPath, defaultFileConfig.FlashPath)
}

func (f *File) Calibration() calibration.Settings {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return calibration.Settings{
		FlashOffset:  valueOr(f.c.CalibrationOffset, defaultFileConfig.CalibrationOffset),
		RxGainSel:    valueOr(f.c.RxGainSel, defaultFileConfig.RxGainSel),
		TxBackOffSel: valueOr(f.c.TxBackOffSel, defaultFileConfig.TxBackOffSel),
	}
}

func (f *File) RequireFactoryCal() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.RequireFactoryCal, defaultFileConfig.RequireFactoryCal)
}

// Profile returns the chirp profile with derived values recomputed from the
// configured slope and timings.
func (f *File) Profile() sensor.Profile {
	if f.c == nil {
		panic("config is nil")
	}

	ch := f.Channel()

	f.mu.RLock()
	defer f.mu.RUnlock()

	p := sensor.DefaultProfile(ch.TxChCtrlBitMask)
	p.ChirpRfFreqStart = valueOr(f.c.RfFreqStart, defaultFileConfig.RfFreqStart)
	p.ChirpRampEndTime = valueOr(f.c.RampEndTime, defaultFileConfig.RampEndTime)
	p.ChirpIdleTime = valueOr(f.c.IdleTime, defaultFileConfig.IdleTime)
	p.NumOfAdcSamples = valueOr(f.c.NumAdcSamples, defaultFileConfig.NumAdcSamples)
	p.SetSlope(valueOr(f.c.SlopeMHzPerUs, defaultFileConfig.SlopeMHzPerUs))

	return p
}

func (f *File) Channel() sensor.Channel {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return sensor.Channel{
		TxChCtrlBitMask: valueOr(f.c.TxChannelMask, defaultFileConfig.TxChannelMask),
		RxChCtrlBitMask: valueOr(f.c.RxChannelMask, defaultFileConfig.RxChannelMask),
	}
}

func (f *File) Frame() sensor.Frame {
	return sensor.DefaultFrame()
}

func (f *File) ClpcSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.ClpcSchedule, defaultFileConfig.ClpcSchedule)
}

func (f *File) SerialPort() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.SerialPort, defaultFileConfig.SerialPort)
}

func (f *File) CapturePath() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.CapturePath, defaultFileConfig.CapturePath)
}

func (f *File) BaudRate() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.BaudRate, defaultFileConfig.BaudRate)
}

func (f *File) FrameRateLimit() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.FrameRateLimit, defaultFileConfig.FrameRateLimit)
}

func (f *File) RangeBins() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.RangeBins, defaultFileConfig.RangeBins)
}

func (f *File) SetFlashPath(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.FlashPath = &s
}

func (f *File) SetCalibrationOffset(offset uint32) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.CalibrationOffset = &offset
}

func (f *File) SetRequireFactoryCal(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.RequireFactoryCal = &b
}

// SetTxChannelMask sets the TX channel mask. It must enable at least one of
// the available TX antennas and nothing else.
func (f *File) SetTxChannelMask(mask uint16) error {
	if f.c == nil {
		panic("config is nil")
	}

	if err := validateTxChannelMask(mask); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.TxChannelMask = &mask

	return nil
}

func (f *File) SetClpcSchedule(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ClpcSchedule = &s
}

func (f *File) SetSerialPort(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SerialPort = &s
}

// Load reads the JSON file, then applies MMWCTL_ environment overrides. A
// missing or empty file leaves every value at its default.
func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.filepath)
	if err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	k := koanf.New(".")

	if strings.TrimSpace(string(b)) != "" {
		if err := k.Load(rawbytes.Provider(b), kjson.Parser()); err != nil {
			return pkgerrors.Wrapf(err, "failed to parse config from file %s", f.filepath)
		}
	}

	err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		// Unknown variables are skipped.
		return envKeys[strings.TrimPrefix(s, EnvPrefix)]
	}), nil)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to load config from environment")
	}

	conf := RawFileConfig{}
	err = k.UnmarshalWithConf("", &conf, koanf.UnmarshalConf{Tag: "json"})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if err := validate(&conf); err != nil {
		return pkgerrors.Wrapf(err, "failed to validate config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func validateTxChannelMask(mask uint16) error {
	if mask == 0 || mask >= 1<<sensor.NumTxAntennas {
		return pkgerrors.Wrapf(ErrInvalidConfig, "txChannelMask 0x%x must be between 0x1 and 0x%x",
			mask, 1<<sensor.NumTxAntennas-1)
	}
	return nil
}

// validate checks the values that would otherwise break bring-up or streaming.
func validate(c *RawFileConfig) error {
	if err := validateTxChannelMask(valueOr(c.TxChannelMask, defaultFileConfig.TxChannelMask)); err != nil {
		return err
	}

	numAdcSamples := int(valueOr(c.NumAdcSamples, defaultFileConfig.NumAdcSamples))
	if rangeBins := valueOr(c.RangeBins, defaultFileConfig.RangeBins); rangeBins <= 0 || rangeBins > numAdcSamples {
		return pkgerrors.Wrapf(ErrInvalidConfig, "rangeBins %d must be between 1 and numAdcSamples (%d)",
			rangeBins, numAdcSamples)
	}

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	cal := f.Calibration()
	ch := f.Channel()

	return logrus.Fields{
		"flashPath":         f.FlashPath(),
		"calibrationOffset": cal.FlashOffset,
		"rxGainSel":         cal.RxGainSel,
		"txBackOffSel":      cal.TxBackOffSel,
		"requireFactoryCal": f.RequireFactoryCal(),
		"txChannelMask":     ch.TxChCtrlBitMask,
		"rxChannelMask":     ch.RxChCtrlBitMask,
		"clpcSchedule":      f.ClpcSchedule(),
		"serialPort":        f.SerialPort(),
		"capturePath":       f.CapturePath(),
		"baudRate":          f.BaudRate(),
		"frameRateLimit":    f.FrameRateLimit(),
		"rangeBins":         f.RangeBins(),
	}
}
