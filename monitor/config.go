package monitor

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/calvinmclean/autoshift/twchart"
)

const (
	DefaultBaudRate = "115200"
	DefaultProbes   = "1=Expected Cadence,2=Measured Cadence,3=Speed"
)

// Config has the settings for connecting to the firmware and recording the ride
type Config struct {
	SerialPort string
	BaudRate   string

	// TWChartAddr is optional. Rides are only uploaded when it is set
	TWChartAddr string
	SessionName string
	ProbesInput string

	// DBPath is optional. Rides are only stored locally when it is set
	DBPath string
}

// ConfigFromEnv reads AUTOSHIFT_* environment variables. When AUTOSHIFT_SERIAL_PORT is not set, the first USB
// serial port is used
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		SerialPort:  os.Getenv("AUTOSHIFT_SERIAL_PORT"),
		BaudRate:    getenv("AUTOSHIFT_BAUD_RATE", DefaultBaudRate),
		TWChartAddr: os.Getenv("AUTOSHIFT_TWCHART_ADDR"),
		SessionName: os.Getenv("AUTOSHIFT_SESSION"),
		ProbesInput: getenv("AUTOSHIFT_PROBES", DefaultProbes),
		DBPath:      os.Getenv("AUTOSHIFT_DB"),
	}

	if cfg.SerialPort == "" {
		ports, err := GetSerialPorts()
		if err != nil {
			return Config{}, err
		}
		cfg.SerialPort = ports[0]
	}

	return cfg, cfg.Validate()
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func (c Config) Validate() error {
	if c.SerialPort == "" {
		return errors.New("missing serial port")
	}
	if _, err := c.Baud(); err != nil {
		return err
	}
	if c.TWChartAddr != "" && c.SessionName == "" {
		return errors.New("session name is required to upload to TWChart")
	}
	if _, err := c.Probes(); err != nil {
		return err
	}
	return nil
}

// Baud parses BaudRate
func (c Config) Baud() (int, error) {
	baud, err := strconv.Atoi(c.BaudRate)
	if err != nil || baud <= 0 {
		return 0, fmt.Errorf("invalid baud rate: %q", c.BaudRate)
	}
	return baud, nil
}

// Probes parses ProbesInput, using the default probes when it is empty
func (c Config) Probes() (twchart.Probes, error) {
	if c.ProbesInput == "" {
		return twchart.DefaultProbes(), nil
	}
	return twchart.ParseProbes(c.ProbesInput)
}
