package monitor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
)

// SerialPortNone runs without a device, which is useful for trying out the UI
const SerialPortNone = "None"

var ErrNoUSBSerial = errors.New("no USB serial ports found")

// GetSerialPorts lists serial ports that look like a USB connected board
func GetSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	result := filterUSB(ports)
	if len(result) == 0 {
		return nil, ErrNoUSBSerial
	}
	return result, nil
}

func filterUSB(ports []string) []string {
	var result []string
	for _, p := range ports {
		lower := strings.ToLower(p)
		if strings.Contains(lower, "usb") || strings.Contains(lower, "acm") {
			result = append(result, p)
		}
	}
	return result
}

// OpenSerial opens the port in Config. It returns nil without an error for SerialPortNone
func OpenSerial(cfg Config) (io.ReadWriteCloser, error) {
	if cfg.SerialPort == SerialPortNone {
		return nil, nil
	}

	baud, err := cfg.Baud()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(cfg.SerialPort, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", cfg.SerialPort, err)
	}

	return port, nil
}
