// Package scheduler runs the controller's cyclic executive. One goroutine
// interleaves periodic work with non-blocking request handling; nothing in
// the loop waits on the network.
package scheduler

import (
	"context"
	"time"

	"sensor_node/internal/api"
	"sensor_node/internal/delay"
	"sensor_node/internal/linesock"
	"sensor_node/internal/logger"
	"sensor_node/internal/models"
	"sensor_node/internal/protocol"
)

const (
	DefaultWarmup    = 5000 * time.Millisecond
	DefaultInterval  = 1000 * time.Millisecond
	DefaultIdlePause = time.Millisecond
	DefaultPort      = 8080
)

type Timers interface {
	Arm(id int, d time.Duration)
	HasExpired(id int) bool
}

type Watchdog interface {
	Reset()
}

type Indicator interface {
	Update()
}

type Sensor interface {
	StartAcquisition()
	ReadLastValue() int
}

type Evaluator interface {
	Evaluate(reading int, t models.Thresholds)
}

type LogStore interface {
	Append(code models.EventCode)
	FlushPendingWrites(ctx context.Context) error
}

type ConfigStore interface {
	Thresholds() models.Thresholds
	FlushPendingWrites(ctx context.Context) error
}

type Dispatcher interface {
	Dispatch(call protocol.ApiCall, reading int, w api.Writer)
}

type AlarmSender interface {
	Send(code models.EventCode, reading int)
}

// Session is the state carried between iterations.
type Session struct {
	Request protocol.Request
	Reading int
}

// Config holds the loop timing and the protocol port.
type Config struct {
	Port      int
	Warmup    time.Duration
	Interval  time.Duration
	IdlePause time.Duration
}

// Deps are the collaborators the loop drives.
type Deps struct {
	Timers     Timers
	Socket     linesock.Socket
	Watchdog   Watchdog
	Indicator  Indicator
	Sensor     Sensor
	Evaluator  Evaluator
	Logs       LogStore
	Config     ConfigStore
	Dispatcher Dispatcher
	Alarms     AlarmSender
	Log        *logger.Logger
}

type Scheduler struct {
	cfg     Config
	deps    Deps
	parser  *protocol.Parser
	session Session
	log     *logger.Logger
}

func New(cfg Config, deps Deps) *Scheduler {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Warmup <= 0 {
		cfg.Warmup = DefaultWarmup
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.IdlePause < 0 {
		cfg.IdlePause = 0
	}
	log := logger.OrNop(deps.Log)
	return &Scheduler{
		cfg:    cfg,
		deps:   deps,
		parser: protocol.NewParser(log),
		log:    log,
	}
}

// Session exposes the loop state for inspection.
func (s *Scheduler) Session() Session { return s.session }

// Boot records the startup events, notifies the master controller and
// starts the first sensor conversion. The first sample is taken after the
// warm-up delay.
func (s *Scheduler) Boot(ctx context.Context) {
	// the host clock is already synchronized, so both markers are logged back to back
	s.deps.Logs.Append(models.EventTimeSet)
	s.deps.Logs.Append(models.EventNewTime)

	s.deps.Logs.Append(models.EventStartup)
	s.deps.Alarms.Send(models.EventStartup, s.session.Reading)

	s.deps.Sensor.StartAcquisition()
	s.deps.Timers.Arm(delay.SampleTimer, s.cfg.Warmup)
	s.log.Infow("boot_complete", "port", s.cfg.Port, "warmup", s.cfg.Warmup)
}

// Step performs one iteration of the loop.
func (s *Scheduler) Step(ctx context.Context) {
	s.deps.Watchdog.Reset()
	s.deps.Indicator.Update()

	sock := s.deps.Socket
	if s.deps.Timers.HasExpired(delay.SampleTimer) {
		s.sample(sock.State())
	}

	if sock.State() == linesock.Closed {
		s.session.Request.Reset()
		if err := sock.OpenListening(s.cfg.Port); err != nil {
			s.log.Errorw("listen_failed", "port", s.cfg.Port, "err", err)
		}
	}

	if sock.HasCompleteLine() {
		s.serve(sock)
		return
	}

	if err := s.deps.Logs.FlushPendingWrites(ctx); err != nil {
		s.log.Errorw("log_flush_failed", "err", err)
	}
	if err := s.deps.Config.FlushPendingWrites(ctx); err != nil {
		s.log.Errorw("config_flush_failed", "err", err)
	}
}

// Run boots the controller and repeats Step until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.Boot(ctx)

	if s.cfg.IdlePause == 0 {
		for ctx.Err() == nil {
			s.Step(ctx)
		}
		return
	}

	tick := time.NewTicker(s.cfg.IdlePause)
	defer tick.Stop()
	for {
		s.Step(ctx)
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func (s *Scheduler) sample(state linesock.State) {
	s.session.Reading = s.deps.Sensor.ReadLastValue()
	s.log.Debugw("sample_taken", "temperature", s.session.Reading, "socket", state.String())

	s.deps.Evaluator.Evaluate(s.session.Reading, s.deps.Config.Thresholds())

	s.deps.Timers.Arm(delay.SampleTimer, s.cfg.Interval)
	s.deps.Sensor.StartAcquisition()
}

// serve consumes every buffered line, answers the decoded call and tears
// the connection down. Teardown happens even when no method was matched.
func (s *Scheduler) serve(sock linesock.Socket) {
	req := &s.session.Request
	for sock.HasCompleteLine() {
		s.parser.Pump(sock, req)
	}

	s.log.Debugw("request_parsed", "call", req.Call.String(), "state", req.State.String())
	s.deps.Dispatcher.Dispatch(req.Call, s.session.Reading, sock)
	req.Call = protocol.CallNone
	sock.Close()
}
