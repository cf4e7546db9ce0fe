package service

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"sensor_node/internal/logger"
)

// Sensor kinds accepted by the sensor.kind config key.
const (
	SensorSimulated = "simulated"
	SensorThermal   = "thermal"
)

// ----------- Simulation constants -----------
const (
	DefaultAmbientC = 25.0
	pullPerSample   = 0.05 // fraction of the gap to ambient closed per sample
	noiseC          = 0.4  // max random step per sample
)

// SimulatedSensor produces a noisy reading that drifts toward ambient.
// A conversion is started by StartAcquisition and completed by the next
// ReadLastValue.
type SimulatedSensor struct {
	ambient float64
	current float64
	last    int
	pending bool
	rng     *rand.Rand
}

func NewSimulatedSensor(ambient float64, seed int64) *SimulatedSensor {
	return &SimulatedSensor{
		ambient: ambient,
		current: ambient,
		last:    int(math.Round(ambient)),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedSensor) StartAcquisition() {
	s.pending = true
}

func (s *SimulatedSensor) ReadLastValue() int {
	if s.pending {
		s.pending = false
		s.current += (s.ambient-s.current)*pullPerSample + (s.rng.Float64()*2-1)*noiseC
		s.last = int(math.Round(s.current))
	}
	return s.last
}

// Set forces the simulated temperature, e.g. to exercise alarm paths.
func (s *SimulatedSensor) Set(tempC float64) {
	s.current = tempC
	s.last = int(math.Round(tempC))
}

// ThermalSensor reads a Linux thermal zone file holding millidegrees Celsius.
type ThermalSensor struct {
	path string
	log  *logger.Logger
	last int
}

func NewThermalSensor(path string, log *logger.Logger) *ThermalSensor {
	return &ThermalSensor{path: path, log: logger.OrNop(log)}
}

// StartAcquisition samples the file. On failure the previous value is kept.
func (s *ThermalSensor) StartAcquisition() {
	v, err := readMilliCelsius(s.path)
	if err != nil {
		s.log.Errorw("sensor_read_failed", "path", s.path, "err", err)
		return
	}
	s.last = v
}

func (s *ThermalSensor) ReadLastValue() int { return s.last }

func readMilliCelsius(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", path, err)
	}
	return int(math.Round(float64(milli) / 1000)), nil
}
