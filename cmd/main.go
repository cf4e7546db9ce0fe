package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sensor_node/internal/alarm"
	"sensor_node/internal/api"
	"sensor_node/internal/config"
	"sensor_node/internal/delay"
	"sensor_node/internal/led"
	"sensor_node/internal/linesock"
	"sensor_node/internal/logger"
	"sensor_node/internal/repository"
	"sensor_node/internal/repository/db"
	"sensor_node/internal/scheduler"
	"sensor_node/internal/service"
	"sensor_node/internal/watchdog"
)

const loadTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(config.NewFlagSet("sensor_node"), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// init logger
	log := logger.Get(cfg.LogLevel)

	// open DB
	sqlDB, err := openDB(cfg.DBPath, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	logs := service.NewLogStore(repos.LogRepo, cfg.LogCapacity, nil, log)
	configs := service.NewConfigStore(repos.ConfigRepo, cfg.Thresholds, log)
	if err := loadStores(ctx, logs, configs); err != nil {
		log.Fatalw("failed to load persisted state", "err", err)
	}

	alarms := startAlarms(ctx, cfg, log)
	timers := delay.New(nil)
	wd := startWatchdog(cfg.WatchdogTimeout, log)

	sched := scheduler.New(scheduler.Config{
		Port:      cfg.Port,
		Warmup:    cfg.Warmup,
		Interval:  cfg.Interval,
		IdlePause: cfg.IdlePause,
	}, scheduler.Deps{
		Timers:     timers,
		Socket:     newSocket(cfg, log),
		Watchdog:   wd,
		Indicator:  led.New(timers, ledOutput(cfg.LEDPath, log), cfg.LEDPattern),
		Sensor:     newSensor(cfg, log),
		Evaluator:  service.NewHysteresisEvaluator(cfg.Deadband, logs, alarms, log),
		Logs:       logs,
		Config:     configs,
		Dispatcher: api.NewDispatcher(cfg.VPD, configs, logs, log),
		Alarms:     alarms,
		Log:        log,
	})

	log.Infow("sensor node starting", "serial", cfg.VPD.SerialNumber, "port", cfg.Port, "sensor", cfg.SensorKind)
	sched.Run(ctx)
	wd.Stop()

	// write back whatever the idle slots did not get to
	flushCtx, flushCancel := context.WithTimeout(context.Background(), loadTimeout)
	defer flushCancel()
	for logs.Pending() > 0 {
		if err := logs.FlushPendingWrites(flushCtx); err != nil {
			log.Errorw("final log flush failed", "err", err)
			break
		}
	}
	if err := configs.FlushPendingWrites(flushCtx); err != nil {
		log.Errorw("final config flush failed", "err", err)
	}
	log.Infow("sensor node stopped")
}

// openDB initializes the SQLite database using configuration.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "sensor_node.db")
		path = "sensor_node.db"
	}
	return db.InitDB(path)
}

func loadStores(ctx context.Context, logs *service.LogStore, configs *service.ConfigStore) error {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := logs.Load(ctx); err != nil {
		return fmt.Errorf("event log: %w", err)
	}
	if err := configs.Load(ctx); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	return nil
}

// startAlarms returns the websocket uplink when a master controller is
// configured, otherwise alarms only reach the log.
func startAlarms(ctx context.Context, cfg *config.Config, log *logger.Logger) scheduler.AlarmSender {
	if cfg.AlarmURL == "" {
		return alarm.NewLogSink(log)
	}
	tokens, err := service.NewTokenService(cfg.SigningKey, cfg.TokenTTL)
	if err != nil {
		log.Fatalw("alarm uplink needs alarm.signing_key", "err", err)
	}
	up := alarm.NewUplink(cfg.AlarmURL, cfg.VPD.SerialNumber, cfg.AlarmQueue, tokens, log)
	go up.Run(ctx)
	return up
}

func startWatchdog(timeout time.Duration, log *logger.Logger) *watchdog.Watchdog {
	return watchdog.New(timeout, func() {
		log.Fatalw("watchdog expired; scheduler loop stalled", "timeout", timeout)
	})
}

func ledOutput(path string, log *logger.Logger) led.Output {
	if path == "" {
		return led.NewLogOutput(log)
	}
	out, err := led.NewFileOutput(path, log)
	if err != nil {
		log.Errorw("led output unavailable; logging instead", "err", err)
		return led.NewLogOutput(log)
	}
	return out
}

func newSensor(cfg *config.Config, log *logger.Logger) scheduler.Sensor {
	switch cfg.SensorKind {
	case service.SensorThermal:
		return service.NewThermalSensor(cfg.SensorPath, log)
	case service.SensorSimulated:
	default:
		log.Errorw("unknown sensor kind; using simulated", "kind", cfg.SensorKind)
	}
	return service.NewSimulatedSensor(cfg.SensorAmbient, time.Now().UnixNano())
}

func newSocket(cfg *config.Config, log *logger.Logger) linesock.Socket {
	if cfg.Loopback {
		return &loopbackSocket{Buffer: linesock.NewBuffer(), out: os.Stdout, every: cfg.Interval}
	}
	return linesock.NewTCP("", log)
}

const loopbackRequest = "GET / HTTP/1.1\r\nHost: loopback\r\n\r\n"

// loopbackSocket plays a client that sends one GET per interval and prints
// each response, so the node can be exercised without a network.
type loopbackSocket struct {
	*linesock.Buffer
	out   io.Writer
	every time.Duration
	next  time.Time
}

func (l *loopbackSocket) HasCompleteLine() bool {
	if l.Buffer.State() == linesock.Listening && !time.Now().Before(l.next) {
		l.Feed(loopbackRequest)
		l.next = time.Now().Add(l.every)
	}
	return l.Buffer.HasCompleteLine()
}

func (l *loopbackSocket) Close() {
	if s := l.TakeOutput(); s != "" {
		_, _ = io.WriteString(l.out, s)
	}
	l.Buffer.Close()
}
