package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/mmwctl/pkg/calibration"
	"github.com/charlie0129/mmwctl/pkg/config"
	"github.com/charlie0129/mmwctl/pkg/events"
	"github.com/charlie0129/mmwctl/pkg/flash"
	"github.com/charlie0129/mmwctl/pkg/mmwave"
	"github.com/charlie0129/mmwctl/pkg/stream"
	"github.com/charlie0129/mmwctl/pkg/version"
)

const (
	stateInterval = 5 * time.Second
	// recentEvents is how many events the state file keeps.
	recentEvents = 16
)

// toneBin is where the synthetic target shows up when no capture is configured.
const toneBin = 16

type daemon struct {
	conf      config.Config
	statePath string

	sensor    *Sensor
	scheduler *Scheduler
	hub       *events.EventHub

	mu       sync.Mutex
	streamer *stream.Streamer
	events   []events.Event
}

// Run brings the sensor up and keeps it running until SIGINT or SIGTERM.
// SIGHUP reloads the config and reschedules the runtime calibration.
func Run(configPath, statePath string) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	dev, err := flash.Open(conf.FlashPath(), true)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logrus.Errorf("failed to close flash: %v", err)
		}
	}()

	calCtx := calibration.NewContext(conf.Profile(), conf.Channel(), conf.Frame())
	sensor := NewSensor(mmwave.NewSimulator(), dev, conf.Calibration(), calCtx)
	sensor.RequireFactoryCal = conf.RequireFactoryCal()

	d := &daemon{
		conf:      conf,
		statePath: statePath,
		sensor:    sensor,
		hub:       events.NewEventHub(),
	}

	sub := d.hub.Subscribe()
	defer d.hub.Close()
	go d.collectEvents(sub)

	sensor.Restorer().OnPhase = func(from, to calibration.Phase) {
		d.hub.Publish(events.RestorePhase, events.RestorePhaseEvent{
			From: string(from),
			To:   string(to),
			Ts:   time.Now().Unix(),
		})
	}

	if err := sensor.BringUp(); err != nil {
		d.writeState()
		return err
	}

	d.scheduler = NewScheduler(d.runClpc, d.clpcPreCheck, func(data any) {
		logrus.Errorf("runtime calibration: %v", data)
	})
	d.reschedule()
	d.scheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if port := conf.SerialPort(); port != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.runStream(ctx, port); err != nil {
				logrus.Errorf("streaming stopped: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(stateInterval)
		defer ticker.Stop()
		for {
			d.writeState()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			d.reschedule()
			logrus.Infof("config reloaded")
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	d.scheduler.Stop()
	cancel()
	wg.Wait()

	logrus.Info("stopping sensor")
	if err := sensor.Shutdown(); err != nil {
		logrus.Errorf("failed to shut down sensor: %v", err)
	}
	d.writeState()

	logrus.Info("exiting")
	return nil
}

// reschedule applies the configured CLPC schedule. An empty schedule or a
// missing factory calibration leaves the scheduler idle.
func (d *daemon) reschedule() {
	expr := d.conf.ClpcSchedule()
	if expr == "" {
		logrus.Info("runtime calibration schedule is empty, periodic TX CLPC disabled")
		d.scheduler.Unschedule()
		return
	}
	if _, ok := d.sensor.Context().Clpc(); !ok {
		logrus.Warn("factory calibration not restored, periodic TX CLPC disabled")
		d.scheduler.Unschedule()
		return
	}
	if err := d.scheduler.Schedule(expr); err != nil {
		logrus.WithError(err).WithField("schedule", expr).Error("invalid runtime calibration schedule")
		return
	}
	logrus.WithField("schedule", expr).Info("periodic TX CLPC scheduled")
}

func (d *daemon) runClpc() error {
	err := d.sensor.RunTxClpcCalibration()

	ev := events.ClpcRunEvent{Ts: time.Now().Unix()}
	if err != nil {
		ev.Error = err.Error()
	}
	d.hub.Publish(events.ClpcRun, ev)

	return err
}

// collectEvents keeps the most recent events for the state file until ch is closed.
func (d *daemon) collectEvents(ch chan events.Event) {
	for ev := range ch {
		logrus.WithFields(logrus.Fields{
			"event": ev.Name,
			"data":  string(ev.Data),
		}).Trace("daemon event")

		d.mu.Lock()
		d.events = append(d.events, ev)
		if len(d.events) > recentEvents {
			d.events = d.events[len(d.events)-recentEvents:]
		}
		d.mu.Unlock()
	}
}

func (d *daemon) clpcPreCheck() error {
	if !d.sensor.Started() {
		return ErrNotStarted
	}
	return nil
}

func (d *daemon) runStream(ctx context.Context, portName string) error {
	src, closeSrc, err := d.frameSource()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create frame source")
	}
	defer closeSrc()

	port, err := stream.OpenPort(portName, d.conf.BaudRate())
	if err != nil {
		return err
	}
	defer port.Close()

	s := stream.NewStreamer(port, stream.Options{
		RangeBins: d.conf.RangeBins(),
		FrameRate: d.conf.FrameRateLimit(),
	})
	d.mu.Lock()
	d.streamer = s
	d.mu.Unlock()

	err = s.Run(ctx, src)
	if pkgerrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// frameSource returns the configured capture replay, or a synthetic target
// when no capture is set. The shape follows the chirp and channel config.
func (d *daemon) frameSource() (stream.Source, func(), error) {
	calCtx := d.sensor.Context()
	numChirps := calCtx.Frame.NumChirps()
	numAntennas := calCtx.Channel.NumTxAntennas() * calCtx.Channel.NumRxAntennas()
	rangeBins := d.conf.RangeBins()

	p := d.conf.CapturePath()
	if p == "" {
		bin := toneBin
		if bin >= rangeBins {
			bin = rangeBins / 2
		}
		src, err := stream.NewToneSource(numChirps, numAntennas, rangeBins, bin, 1000)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, nil, pkgerrors.Wrapf(err, "failed to open capture %s", p)
	}
	src, err := stream.NewReplaySource(f, numChirps, numAntennas, rangeBins)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return src, func() { _ = f.Close() }, nil
}

func (d *daemon) state() *State {
	st := &State{
		PID:       os.Getpid(),
		Version:   version.Version,
		UpdatedAt: time.Now(),
		Started:   d.sensor.Started(),
		Restore:   d.sensor.Restorer().Status(),
		Clpc:      d.sensor.Context().ClpcPtr(),
	}

	if d.scheduler != nil {
		st.NextClpc, _, st.ClpcRuns = d.scheduler.Status()
		if !st.NextClpc.IsZero() {
			st.ClpcSchedule = d.conf.ClpcSchedule()
		}
	}

	d.mu.Lock()
	if d.streamer != nil {
		stats := d.streamer.Stats()
		st.Stream = &stats
	}
	st.Events = append([]events.Event(nil), d.events...)
	d.mu.Unlock()

	return st
}

func (d *daemon) writeState() {
	if d.statePath == "" {
		return
	}
	if err := WriteState(d.statePath, d.state()); err != nil {
		logrus.WithError(err).Error("failed to write daemon state")
	}
}
