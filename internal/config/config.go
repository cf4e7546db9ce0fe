// Package config loads node settings from configs/config.yml, with
// command-line flags taking precedence over the file.
package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sensor_node/internal/models"
)

const dateLayout = "2006-01-02"

// Config is the resolved settings for both binaries.
type Config struct {
	Port     int
	LogLevel string
	DBPath   string
	Loopback bool

	Warmup          time.Duration
	Interval        time.Duration
	IdlePause       time.Duration
	WatchdogTimeout time.Duration

	LEDPattern string
	LEDPath    string

	Thresholds models.Thresholds
	Deadband   int

	SensorKind    string
	SensorPath    string
	SensorAmbient float64

	VPD         models.VPD
	LogCapacity int

	AlarmURL   string
	SigningKey string
	AlarmQueue int
	TokenTTL   time.Duration

	MasterPort string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "sensor_node.db")

	v.SetDefault("sampling.warmup", 5*time.Second)
	v.SetDefault("sampling.interval", time.Second)
	v.SetDefault("scheduler.idle_pause", time.Millisecond)
	v.SetDefault("watchdog.timeout", 2*time.Second)

	v.SetDefault("led.pattern", "--- -.-   ")
	v.SetDefault("led.path", "")

	v.SetDefault("thresholds.hi_alarm", 35)
	v.SetDefault("thresholds.hi_warn", 30)
	v.SetDefault("thresholds.lo_warn", 15)
	v.SetDefault("thresholds.lo_alarm", 10)
	v.SetDefault("thresholds.deadband", 1)

	v.SetDefault("sensor.kind", "simulated")
	v.SetDefault("sensor.path", "/sys/class/thermal/thermal_zone0/temp")
	v.SetDefault("sensor.ambient", 25.0)

	v.SetDefault("vpd.model", "SER486")
	v.SetDefault("vpd.manufacturer", "ASU")
	v.SetDefault("vpd.serial_number", "SN-0001")
	v.SetDefault("vpd.manufacture_date", "2019-12-06")
	v.SetDefault("vpd.mac_address", "02:00:00:00:00:01")
	v.SetDefault("vpd.country_of_origin", "USA")

	v.SetDefault("log.capacity", 16)

	v.SetDefault("alarm.url", "")
	v.SetDefault("alarm.signing_key", "")
	v.SetDefault("alarm.queue", 32)
	v.SetDefault("alarm.token_ttl", 24*time.Hour)

	v.SetDefault("master.port", "9090")
}

// NewFlagSet declares the command-line overrides. Flag names map to config
// keys through flagKeys.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "configs", "directory containing config.yml")
	fs.Int("port", 8080, "protocol TCP port")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("db-path", "sensor_node.db", "sqlite database file")
	fs.String("sensor", "simulated", "sensor kind: simulated or thermal")
	fs.String("alarm-url", "", "master controller websocket url")
	fs.String("master-port", "9090", "master controller listen port")
	fs.Bool("loopback", false, "serve an in-memory socket instead of TCP")
	return fs
}

var flagKeys = map[string]string{
	"port":        "port",
	"log-level":   "log_level",
	"db-path":     "db.path",
	"sensor":      "sensor.kind",
	"alarm-url":   "alarm.url",
	"master-port": "master.port",
	"loopback":    "loopback",
}

// Load parses args into fs, reads config.yml from the directory named by
// --config and returns the merged settings. A missing file is not an error.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	for flag, key := range flagKeys {
		if f := fs.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	dir, _ := fs.GetString("config")
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	vpd, err := vpdFromViper(v)
	if err != nil {
		return nil, err
	}

	c := &Config{
		Port:     v.GetInt("port"),
		LogLevel: v.GetString("log_level"),
		DBPath:   v.GetString("db.path"),
		Loopback: v.GetBool("loopback"),

		Warmup:          v.GetDuration("sampling.warmup"),
		Interval:        v.GetDuration("sampling.interval"),
		IdlePause:       v.GetDuration("scheduler.idle_pause"),
		WatchdogTimeout: v.GetDuration("watchdog.timeout"),

		LEDPattern: v.GetString("led.pattern"),
		LEDPath:    v.GetString("led.path"),

		Thresholds: models.Thresholds{
			HiAlarm: v.GetInt("thresholds.hi_alarm"),
			HiWarn:  v.GetInt("thresholds.hi_warn"),
			LoAlarm: v.GetInt("thresholds.lo_alarm"),
			LoWarn:  v.GetInt("thresholds.lo_warn"),
		},
		Deadband: v.GetInt("thresholds.deadband"),

		SensorKind:    v.GetString("sensor.kind"),
		SensorPath:    v.GetString("sensor.path"),
		SensorAmbient: v.GetFloat64("sensor.ambient"),

		VPD:         vpd,
		LogCapacity: v.GetInt("log.capacity"),

		AlarmURL:   v.GetString("alarm.url"),
		SigningKey: v.GetString("alarm.signing_key"),
		AlarmQueue: v.GetInt("alarm.queue"),
		TokenTTL:   v.GetDuration("alarm.token_ttl"),

		MasterPort: v.GetString("master.port"),
	}

	if c.Port <= 0 || c.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range", c.Port)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	return c, nil
}

func vpdFromViper(v *viper.Viper) (models.VPD, error) {
	mac, err := net.ParseMAC(v.GetString("vpd.mac_address"))
	if err != nil {
		return models.VPD{}, fmt.Errorf("vpd.mac_address: %w", err)
	}
	date, err := time.Parse(dateLayout, v.GetString("vpd.manufacture_date"))
	if err != nil {
		return models.VPD{}, fmt.Errorf("vpd.manufacture_date: %w", err)
	}
	return models.VPD{
		Model:           v.GetString("vpd.model"),
		Manufacturer:    v.GetString("vpd.manufacturer"),
		SerialNumber:    v.GetString("vpd.serial_number"),
		ManufactureDate: date,
		MACAddress:      mac,
		CountryOfOrigin: v.GetString("vpd.country_of_origin"),
	}, nil
}
