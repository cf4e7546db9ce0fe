package models

import "time"

// AlarmFrame is one alarm notification sent from a node to the master
// controller.
type AlarmFrame struct {
	ID        string    `cbor:"id" json:"id"`
	Serial    string    `cbor:"serial" json:"serial"`
	Event     EventCode `cbor:"event" json:"event"`
	Reading   int       `cbor:"reading" json:"reading"`
	Timestamp time.Time `cbor:"ts" json:"timestamp"`
}
