//go:build tinygo

package device

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/servo"
)

// SensorConfig has the reed switch inputs. Both pull up and read low while the magnet passes
type SensorConfig struct {
	WheelPin machine.Pin
	CrankPin machine.Pin

	// WheelDebounce ignores switch bounce on the wheel sensor
	WheelDebounce time.Duration
	// CrankDebounce ignores crank pulses closer together than this
	CrankDebounce time.Duration
	// TickTimeout runs a tick even when the wheel has not turned, so a stopped bike still shifts down
	TickTimeout time.Duration
}

// RelayConfig has one output per shift direction. Relays are active low
type RelayConfig struct {
	FrontUp   machine.Pin
	FrontDown machine.Pin
	RearUp    machine.Pin
	RearDown  machine.Pin
}

// ServoConfig has device-level values for a servo pushing a shift lever instead of a relay. The zero value
// means the relay is used
type ServoConfig struct {
	Pin machine.Pin
	PWM servo.PWM

	ReleaseAngle int
	PressAngle   int
}
