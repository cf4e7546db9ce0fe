// Package api turns a decoded request into a response on the socket.
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"sensor_node/internal/logger"
	"sensor_node/internal/models"
	"sensor_node/internal/protocol"
)

// Response framing for GET.
const (
	statusLine  = "HTTP/1.1 200 OK\r\n"
	contentType = "Content-Type: application/vnd.api+json\r\n"
	connClose   = "Connection: close\r\n"
	crlf        = "\r\n"

	// statusLabel is reported in the "state" field.
	statusLabel = "NORMAL"
)

// Writer is the outbound side of the socket.
type Writer interface {
	WriteText(s string)
	WriteRaw(b byte)
}

// LogReader gives ordered read access to the event history.
type LogReader interface {
	Count() int
	At(i int) models.LogRecord
}

type ThresholdSource interface {
	Thresholds() models.Thresholds
}

// Dispatcher serves one decoded request per call. It never blocks.
type Dispatcher struct {
	vpd    models.VPD
	config ThresholdSource
	logs   LogReader
	log    *logger.Logger
}

func NewDispatcher(vpd models.VPD, config ThresholdSource, logs LogReader, log *logger.Logger) *Dispatcher {
	return &Dispatcher{vpd: vpd, config: config, logs: logs, log: logger.OrNop(log)}
}

// Dispatch writes the response for call. reading is the last sampled
// temperature. Calls other than GET write nothing.
func (d *Dispatcher) Dispatch(call protocol.ApiCall, reading int, w Writer) {
	switch call {
	case protocol.CallNone:
	case protocol.CallGet:
		d.get(reading, w)
	case protocol.CallPut:
		d.log.Infow("put_request", "status", "not_implemented")
	case protocol.CallDelete:
		d.log.Infow("delete_request", "status", "not_implemented")
	default:
		d.log.Debugw("dispatch_unknown_call", "call", int(call))
	}
}

type vpdBody struct {
	Model           string `json:"model"`
	Manufacturer    string `json:"manufacturer"`
	SerialNumber    string `json:"serial_number"`
	ManufactureDate string `json:"manufacture_date"`
	MACAddress      string `json:"mac_address"`
	CountryCode     string `json:"country_code"`
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Event     int    `json:"event"`
}

// statusBody field order is the wire key order.
type statusBody struct {
	VPD         vpdBody    `json:"vpd"`
	TCritHi     int        `json:"tcrit_hi"`
	TWarnHi     int        `json:"twarn_hi"`
	TCritLo     int        `json:"tcrit_lo"`
	TWarnLo     int        `json:"twarn_lo"`
	Temperature int        `json:"temperature"`
	State       string     `json:"state"`
	Log         []logEntry `json:"log"`
}

func (d *Dispatcher) get(reading int, w Writer) {
	body, err := d.statusJSON(reading)
	if err != nil {
		d.log.Errorw("get_encode_failed", "err", err)
		return
	}
	w.WriteText(statusLine)
	w.WriteText(contentType)
	w.WriteText(connClose)
	w.WriteText(crlf)
	w.WriteText(string(body))
	w.WriteRaw('\r')
	w.WriteRaw('\n')
}

func (d *Dispatcher) statusJSON(reading int) ([]byte, error) {
	t := d.config.Thresholds()
	n := d.logs.Count()
	entries := make([]logEntry, 0, n)
	for i := 0; i < n; i++ {
		rec := d.logs.At(i)
		entries = append(entries, logEntry{
			Timestamp: formatDate(rec.Timestamp),
			Event:     int(rec.Event),
		})
	}

	body := statusBody{
		VPD: vpdBody{
			Model:           d.vpd.Model,
			Manufacturer:    d.vpd.Manufacturer,
			SerialNumber:    d.vpd.SerialNumber,
			ManufactureDate: formatDate(d.vpd.ManufactureDate),
			MACAddress:      d.vpd.MACAddress.String(),
			CountryCode:     d.vpd.CountryOfOrigin,
		},
		TCritHi:     t.HiAlarm,
		TWarnHi:     t.HiWarn,
		TCritLo:     t.LoAlarm,
		TWarnLo:     t.LoWarn,
		Temperature: reading,
		State:       statusLabel,
		Log:         entries,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
