package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sensor_node/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load(NewFlagSet("test"), []string{"--config", t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != 8080 || c.Warmup != 5*time.Second || c.Interval != time.Second {
		t.Fatalf("unexpected timing defaults: %+v", c)
	}
	if c.IdlePause != time.Millisecond || c.LogCapacity != 16 {
		t.Fatalf("idle pause %v capacity %d", c.IdlePause, c.LogCapacity)
	}
	want := models.Thresholds{HiAlarm: 35, HiWarn: 30, LoAlarm: 10, LoWarn: 15}
	if c.Thresholds != want {
		t.Fatalf("thresholds = %+v", c.Thresholds)
	}
	if c.VPD.MACAddress.String() != "02:00:00:00:00:01" {
		t.Fatalf("mac = %s", c.VPD.MACAddress)
	}
	if c.Loopback {
		t.Fatalf("loopback on by default")
	}
}

func TestLoad_FileAndFlags(t *testing.T) {
	dir := writeConfig(t, `
port: 9000
log_level: debug
sampling:
  warmup: 2s
  interval: 500ms
thresholds:
  hi_alarm: 90
  hi_warn: 80
  lo_warn: 5
  lo_alarm: 0
vpd:
  serial_number: SN-4242
  manufacture_date: "2021-03-04"
  mac_address: "aa:bb:cc:dd:ee:ff"
alarm:
  url: ws://master:9090/ws
  signing_key: secret
`)
	c, err := Load(NewFlagSet("test"), []string{"--config", dir, "--port", "9100", "--loopback"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != 9100 {
		t.Fatalf("flag did not override file: port = %d", c.Port)
	}
	if c.LogLevel != "debug" || c.Warmup != 2*time.Second || c.Interval != 500*time.Millisecond {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.Thresholds.HiAlarm != 90 || c.Thresholds.LoAlarm != 0 {
		t.Fatalf("thresholds = %+v", c.Thresholds)
	}
	if c.VPD.SerialNumber != "SN-4242" || !c.VPD.ManufactureDate.Equal(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("vpd = %+v", c.VPD)
	}
	if c.VPD.Model != "SER486" {
		t.Fatalf("unset vpd key lost its default: %q", c.VPD.Model)
	}
	if c.AlarmURL != "ws://master:9090/ws" || c.SigningKey != "secret" || !c.Loopback {
		t.Fatalf("alarm/loopback = %q %q %v", c.AlarmURL, c.SigningKey, c.Loopback)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad mac", "vpd:\n  mac_address: nope\n", "vpd.mac_address"},
		{"bad date", "vpd:\n  manufacture_date: yesterday\n", "vpd.manufacture_date"},
		{"thresholds out of order", "thresholds:\n  hi_warn: 40\n", "thresholds"},
		{"port out of range", "port: 70000\n", "port"},
		{"malformed yaml", "port: [\n", "read config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(NewFlagSet("test"), []string{"--config", writeConfig(t, tc.body)})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	if _, err := Load(NewFlagSet("test"), []string{"--bogus"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}
