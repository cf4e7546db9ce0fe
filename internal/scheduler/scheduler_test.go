package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sensor_node/internal/api"
	"sensor_node/internal/delay"
	"sensor_node/internal/linesock"
	"sensor_node/internal/models"
	"sensor_node/internal/protocol"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// trace records collaborator calls in order.
type trace struct{ calls []string }

func (r *trace) add(s string) { r.calls = append(r.calls, s) }
func (r *trace) reset()       { r.calls = nil }

func (r *trace) count(s string) int {
	n := 0
	for _, c := range r.calls {
		if c == s {
			n++
		}
	}
	return n
}

type watchdogStub struct {
	tr     *trace
	onTick func()
}

func (w *watchdogStub) Reset() {
	w.tr.add("watchdog")
	if w.onTick != nil {
		w.onTick()
	}
}

type indicatorStub struct{ tr *trace }

func (i indicatorStub) Update() { i.tr.add("led") }

type sensorStub struct {
	tr    *trace
	value int
}

func (s *sensorStub) StartAcquisition() { s.tr.add("acquire") }
func (s *sensorStub) ReadLastValue() int {
	s.tr.add("read")
	return s.value
}

type evaluatorStub struct {
	readings   []int
	thresholds []models.Thresholds
}

func (e *evaluatorStub) Evaluate(reading int, t models.Thresholds) {
	e.readings = append(e.readings, reading)
	e.thresholds = append(e.thresholds, t)
}

type logStoreStub struct {
	tr      *trace
	records []models.LogRecord
	err     error
}

func (l *logStoreStub) Append(code models.EventCode) {
	l.records = append(l.records, models.LogRecord{Timestamp: time.Unix(int64(len(l.records)), 0).UTC(), Event: code})
}

func (l *logStoreStub) FlushPendingWrites(context.Context) error {
	l.tr.add("flush_log")
	return l.err
}

func (l *logStoreStub) Count() int                { return len(l.records) }
func (l *logStoreStub) At(i int) models.LogRecord { return l.records[i] }

type configStoreStub struct {
	tr  *trace
	t   models.Thresholds
	err error
}

func (c *configStoreStub) Thresholds() models.Thresholds { return c.t }
func (c *configStoreStub) FlushPendingWrites(context.Context) error {
	c.tr.add("flush_config")
	return c.err
}

type dispatcherStub struct {
	calls    []protocol.ApiCall
	readings []int
}

func (d *dispatcherStub) Dispatch(call protocol.ApiCall, reading int, w api.Writer) {
	d.calls = append(d.calls, call)
	d.readings = append(d.readings, reading)
	if call == protocol.CallGet {
		w.WriteText("ok")
	}
}

type alarmStub struct {
	codes    []models.EventCode
	readings []int
}

func (a *alarmStub) Send(code models.EventCode, reading int) {
	a.codes = append(a.codes, code)
	a.readings = append(a.readings, reading)
}

type fixture struct {
	clock  *clock
	tr     *trace
	sock   *linesock.Buffer
	wd     *watchdogStub
	sensor *sensorStub
	eval   *evaluatorStub
	logs   *logStoreStub
	config *configStoreStub
	disp   *dispatcherStub
	alarms *alarmStub
	s      *Scheduler
}

var testThresholds = models.Thresholds{HiAlarm: 35, HiWarn: 30, LoAlarm: 10, LoWarn: 15}

func newFixture(t *testing.T, dispatcher Dispatcher) *fixture {
	t.Helper()
	f := &fixture{
		clock:  &clock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)},
		tr:     &trace{},
		sock:   linesock.NewBuffer(),
		eval:   &evaluatorStub{},
		disp:   &dispatcherStub{},
		alarms: &alarmStub{},
	}
	f.wd = &watchdogStub{tr: f.tr}
	f.sensor = &sensorStub{tr: f.tr, value: 22}
	f.logs = &logStoreStub{tr: f.tr}
	f.config = &configStoreStub{tr: f.tr, t: testThresholds}
	if dispatcher == nil {
		dispatcher = f.disp
	}
	f.s = New(Config{Port: 8080}, Deps{
		Timers:     delay.New(f.clock.now),
		Socket:     f.sock,
		Watchdog:   f.wd,
		Indicator:  indicatorStub{tr: f.tr},
		Sensor:     f.sensor,
		Evaluator:  f.eval,
		Logs:       f.logs,
		Config:     f.config,
		Dispatcher: dispatcher,
		Alarms:     f.alarms,
	})
	return f
}

func TestBoot_RecordsStartupAndArmsWarmup(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.s.Boot(ctx)

	want := []models.EventCode{models.EventTimeSet, models.EventNewTime, models.EventStartup}
	if len(f.logs.records) != len(want) {
		t.Fatalf("boot logged %d events, want %d", len(f.logs.records), len(want))
	}
	for i, code := range want {
		if f.logs.records[i].Event != code {
			t.Fatalf("event %d = %v, want %v", i, f.logs.records[i].Event, code)
		}
	}
	if len(f.alarms.codes) != 1 || f.alarms.codes[0] != models.EventStartup {
		t.Fatalf("startup alarm not sent: %v", f.alarms.codes)
	}
	if f.tr.count("acquire") != 1 {
		t.Fatalf("boot did not start acquisition")
	}

	f.clock.advance(DefaultWarmup - time.Millisecond)
	f.s.Step(ctx)
	if f.tr.count("read") != 0 {
		t.Fatalf("sampled before warm-up elapsed")
	}
	f.clock.advance(time.Millisecond)
	f.s.Step(ctx)
	if f.tr.count("read") != 1 {
		t.Fatalf("no sample at end of warm-up")
	}
}

func TestStep_WatchdogResetFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.s.Boot(ctx)
	f.clock.advance(DefaultWarmup)

	for i := 0; i < 5; i++ {
		f.tr.reset()
		if i == 2 {
			f.sock.Feed("GET / HTTP/1.1\r\n\r\n")
		}
		f.s.Step(ctx)
		if len(f.tr.calls) < 2 || f.tr.calls[0] != "watchdog" || f.tr.calls[1] != "led" {
			t.Fatalf("step %d order = %v", i, f.tr.calls)
		}
	}
}

func TestStep_SamplingInterval(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.s.Boot(ctx)
	f.clock.advance(DefaultWarmup)
	f.s.Step(ctx)

	if got := f.s.Session().Reading; got != 22 {
		t.Fatalf("reading = %d, want 22", got)
	}
	if len(f.eval.readings) != 1 || f.eval.thresholds[0] != testThresholds {
		t.Fatalf("evaluator calls = %v %v", f.eval.readings, f.eval.thresholds)
	}

	// sample, then re-arm, then start the next conversion
	f.tr.reset()
	f.sensor.value = 31
	f.clock.advance(999 * time.Millisecond)
	f.s.Step(ctx)
	if f.tr.count("read") != 0 {
		t.Fatalf("sampled at 999ms")
	}
	f.clock.advance(time.Millisecond)
	f.s.Step(ctx)
	if f.tr.count("read") != 1 || f.tr.count("acquire") != 1 {
		t.Fatalf("sample at 1000ms: %v", f.tr.calls)
	}
	if f.eval.readings[1] != 31 {
		t.Fatalf("second evaluation got %d", f.eval.readings[1])
	}
}

func TestStep_OpensListeningWhenClosed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.s.Step(ctx)
	if f.sock.State() != linesock.Listening || f.sock.Port() != 8080 {
		t.Fatalf("socket state %v port %d", f.sock.State(), f.sock.Port())
	}
	f.s.Step(ctx)
	if f.sock.Opens() != 1 {
		t.Fatalf("reopened a listening socket: opens = %d", f.sock.Opens())
	}
}

func TestStep_GetVPDEndToEnd(t *testing.T) {
	logs := &logStoreStub{tr: &trace{}}
	d := api.NewDispatcher(models.VPD{Model: "SER486", SerialNumber: "SN-0001"}, &configStoreStub{tr: &trace{}, t: testThresholds}, logs, nil)
	f := newFixture(t, d)
	ctx := context.Background()

	f.s.Step(ctx)
	f.sock.Feed("GET /vpd HTTP/1.1\r\nHost: node\r\nAccept: */*\r\n\r\n")
	f.s.Step(ctx)

	out := f.sock.TakeOutput()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") || !strings.HasSuffix(out, "}\r\n") {
		t.Fatalf("unexpected response %q", out)
	}
	if !strings.Contains(out, `"serial_number":"SN-0001"`) {
		t.Fatalf("response lacks vpd: %q", out)
	}
	if f.sock.Closes() != 1 || f.sock.State() != linesock.Closed {
		t.Fatalf("closes = %d state = %v", f.sock.Closes(), f.sock.State())
	}
	if req := f.s.Session().Request; req.Call != protocol.CallNone || req.State != protocol.StateEmpty {
		t.Fatalf("request not reset: %+v", req)
	}

	f.s.Step(ctx)
	if f.sock.Opens() != 2 || f.sock.State() != linesock.Listening {
		t.Fatalf("socket not reopened: opens = %d state = %v", f.sock.Opens(), f.sock.State())
	}
}

func TestStep_DispatchesDecodedCall(t *testing.T) {
	cases := []struct {
		name    string
		request string
		want    protocol.ApiCall
		output  string
	}{
		{"get", "GET / HTTP/1.1\r\n\r\n", protocol.CallGet, "ok"},
		{"put", "PUT /config HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}\r\n", protocol.CallPut, ""},
		{"delete", "DELETE /log HTTP/1.1\r\n\r\n", protocol.CallDelete, ""},
		{"unknown method", "PATCH / HTTP/1.1\r\n\r\n", protocol.CallNone, ""},
		{"garbage", "hello\r\n", protocol.CallNone, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			f.s.Step(ctx)
			f.sock.Feed(tc.request)
			f.s.Step(ctx)

			if len(f.disp.calls) != 1 || f.disp.calls[0] != tc.want {
				t.Fatalf("dispatched %v, want [%v]", f.disp.calls, tc.want)
			}
			if got := f.sock.Output(); got != tc.output {
				t.Fatalf("output = %q, want %q", got, tc.output)
			}
			if f.sock.Closes() != 1 {
				t.Fatalf("closes = %d, want 1", f.sock.Closes())
			}
		})
	}
}

func TestStep_PartialLineWaits(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.s.Step(ctx)

	f.sock.Feed("GET /vpd HT")
	f.s.Step(ctx)
	if len(f.disp.calls) != 0 || f.sock.Closes() != 0 {
		t.Fatalf("acted on an incomplete line")
	}

	f.sock.Feed("TP/1.1\r\n\r\n")
	f.s.Step(ctx)
	if len(f.disp.calls) != 1 || f.disp.calls[0] != protocol.CallGet {
		t.Fatalf("dispatched %v", f.disp.calls)
	}
}

func TestStep_FlushOnlyWhenIdle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.s.Step(ctx)
	if f.tr.count("flush_log") != 1 || f.tr.count("flush_config") != 1 {
		t.Fatalf("idle step did not flush: %v", f.tr.calls)
	}

	f.tr.reset()
	f.sock.Feed("GET / HTTP/1.1\r\n\r\n")
	f.s.Step(ctx)
	if f.tr.count("flush_log") != 0 || f.tr.count("flush_config") != 0 {
		t.Fatalf("flushed while serving: %v", f.tr.calls)
	}
}

func TestStep_FlushErrorsDoNotStopLoop(t *testing.T) {
	f := newFixture(t, nil)
	f.logs.err = errors.New("disk full")
	f.config.err = errors.New("disk full")
	ctx := context.Background()

	f.s.Step(ctx)
	f.s.Step(ctx)
	if f.tr.count("flush_log") != 2 || f.tr.count("flush_config") != 2 {
		t.Fatalf("flush calls: %v", f.tr.calls)
	}
}

func TestStep_ParserResetAfterConnectionLoss(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.s.Step(ctx)

	// headers never terminated: the parser is left mid-request when the
	// connection is torn down
	f.sock.Feed("GET / HTTP/1.1\r\nHost: node\r\n")
	f.s.Step(ctx)
	if got := f.s.Session().Request.State; got != protocol.StateInHeaders {
		t.Fatalf("state after partial headers = %v", got)
	}

	f.s.Step(ctx)
	if req := f.s.Session().Request; req.State != protocol.StateEmpty || req.Call != protocol.CallNone {
		t.Fatalf("request not reset on reopen: %+v", req)
	}

	f.sock.Feed("PUT / HTTP/1.1\r\n")
	f.sock.Hangup()
	f.s.Step(ctx)
	if f.sock.State() != linesock.Listening || f.sock.Opens() != 3 {
		t.Fatalf("hangup not recovered: state %v opens %d", f.sock.State(), f.sock.Opens())
	}
	if len(f.disp.calls) != 1 {
		t.Fatalf("dropped request was dispatched: %v", f.disp.calls)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	steps := 0
	f.wd.onTick = func() {
		steps++
		if steps == 3 {
			cancel()
		}
	}

	done := make(chan struct{})
	go func() {
		f.s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if steps != 3 {
		t.Fatalf("steps = %d, want 3", steps)
	}
	if len(f.logs.records) != 3 {
		t.Fatalf("Run did not boot: %d records", len(f.logs.records))
	}
}
