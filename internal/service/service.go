package service

import "sensor_node/internal/models"

// Alarms is the master controller's view of received alarm frames.
type Alarms interface {
	Record(f models.AlarmFrame)
	List(serial string) []models.AlarmFrame
}

// Tokens verifies device bearer tokens and returns the device serial.
type Tokens interface {
	Parse(accessToken string) (string, error)
}

// Service aggregates what the master controller's HTTP layer depends on.
type Service struct {
	Alarms
	Tokens
}

func NewService(inbox *AlarmInbox, tokens *TokenService) *Service {
	return &Service{
		Alarms: inbox,
		Tokens: tokens,
	}
}
