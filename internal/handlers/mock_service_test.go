package handlers

import (
	"sync"

	"sensor_node/internal/models"
)

// ---- Service Mocks ----

type mockTokens struct {
	serial   string
	parseErr error

	lastToken string
}

func (m *mockTokens) Parse(accessToken string) (string, error) {
	m.lastToken = accessToken
	return m.serial, m.parseErr
}

type mockAlarms struct {
	mu         sync.Mutex
	frames     []models.AlarmFrame
	lastSerial string
	recorded   chan models.AlarmFrame
}

func newMockAlarms() *mockAlarms {
	return &mockAlarms{recorded: make(chan models.AlarmFrame, 16)}
}

func (m *mockAlarms) Record(f models.AlarmFrame) {
	m.mu.Lock()
	m.frames = append(m.frames, f)
	m.mu.Unlock()
	select {
	case m.recorded <- f:
	default:
	}
}

func (m *mockAlarms) List(serial string) []models.AlarmFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSerial = serial
	return append([]models.AlarmFrame(nil), m.frames...)
}
