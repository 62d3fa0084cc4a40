package datalogger

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USB vendor IDs of boards that commonly run MicroPython
var micropythonVIDs = map[string]string{
	"2E8A": "Raspberry Pi",
	"F055": "MicroPython",
	"303A": "Espressif",
	"239A": "Adafruit",
}

// PortInfo describes a serial port found on the host
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Vendor       string `json:"vendor,omitempty"` // Set when the VID is a known MicroPython board vendor
}

// Likely reports whether the port probably hosts a MicroPython board
func (p PortInfo) Likely() bool {
	return p.Vendor != ""
}

// ListPorts enumerates serial ports. USB details come from the detailed
// enumerator; when that is unavailable only port names are returned.
func ListPorts() ([]PortInfo, error) {
	detailed, err := enumerator.GetDetailedPortsList()
	if err == nil {
		ports := make([]PortInfo, 0, len(detailed))
		for _, p := range detailed {
			ports = append(ports, portInfoFromDetails(p))
		}
		return ports, nil
	}

	names, plainErr := serial.GetPortsList()
	if plainErr != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", plainErr)
	}

	ports := make([]PortInfo, 0, len(names))
	for _, name := range names {
		ports = append(ports, PortInfo{Name: name})
	}
	return ports, nil
}

func portInfoFromDetails(p *enumerator.PortDetails) PortInfo {
	info := PortInfo{
		Name:         p.Name,
		IsUSB:        p.IsUSB,
		VID:          strings.ToUpper(p.VID),
		PID:          strings.ToUpper(p.PID),
		SerialNumber: p.SerialNumber,
	}
	if info.IsUSB {
		info.Vendor = micropythonVIDs[info.VID]
	}
	return info
}
