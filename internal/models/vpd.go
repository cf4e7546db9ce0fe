package models

import (
	"net"
	"time"
)

// VPD is the device's vital product data. It is fixed for the lifetime of
// the process.
type VPD struct {
	Model           string
	Manufacturer    string
	SerialNumber    string
	ManufactureDate time.Time
	MACAddress      net.HardwareAddr
	CountryOfOrigin string
}
