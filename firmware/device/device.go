//go:build tinygo

package device

import (
	"context"
	"errors"
	"machine"
	"strconv"
	"time"

	"github.com/calvinmclean/autoshift/actuator"
	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/telemetry"
)

// Device runs the control cycle on the board. It reads the Sensors, drives the shift lines, and prints a
// telemetry line after every tick
type Device struct {
	sensors    *Sensors
	pulser     *actuator.Pulser
	controller *controller.Controller

	startTime time.Time

	// Verbose prints tick details and pulse timing before each telemetry line
	Verbose bool
}

// New configures the pins and starts in the lowest gear. A non-zero ServoConfig replaces the FrontUp relay
func New(cfg controller.Config, sensorCfg SensorConfig, relayCfg RelayConfig, servoCfg ServoConfig, pulseCfg actuator.PulseConfig) (*Device, error) {
	for _, pin := range []machine.Pin{relayCfg.FrontUp, relayCfg.FrontDown, relayCfg.RearUp, relayCfg.RearDown} {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	lines := actuator.Lines{
		FrontUp:   relayCfg.FrontUp,
		FrontDown: relayCfg.FrontDown,
		RearUp:    relayCfg.RearUp,
		RearDown:  relayCfg.RearDown,
	}

	if servoCfg != (ServoConfig{}) {
		l, err := newServoLine(servoCfg)
		if err != nil {
			return nil, err
		}
		lines.FrontUp = l
	}

	pulser, err := actuator.NewPulser(lines, pulseCfg)
	if err != nil {
		return nil, errors.New("error creating pulser: " + err.Error())
	}

	c, err := controller.New(cfg, pulser)
	if err != nil {
		return nil, errors.New("error creating controller: " + err.Error())
	}

	return &Device{
		sensors:    newSensors(sensorCfg),
		pulser:     pulser,
		controller: c,
		startTime:  time.Now(),
	}, nil
}

// Run ticks forever
func (d *Device) Run() {
	println(d.ts(), "starting autoshift in", d.controller.Position().String(),
		"circumference="+strconv.Itoa(d.controller.Circumference())+"mm")

	err := d.controller.Run(context.Background(), d.sensors, controller.SinkFunc(d.record))
	if err != nil {
		println(d.ts(), "error:", err.Error())
	}
}

func (d *Device) record(_ context.Context, in controller.Input, out controller.Output, tickErr error) error {
	if d.Verbose {
		println(d.ts(), "tick", out.Tick, "interval", in.WheelIntervalMs, "verdict", out.Verdict.String())
		for _, req := range out.Requests {
			println(d.ts(), "pulse", req.String(), "took", d.pulser.Duration(req).String())
		}
	}

	println(telemetry.Format(telemetry.FromOutput(out, tickErr)))
	return nil
}

// RequestReset implements commands.Controller.
func (d *Device) RequestReset() {
	d.sensors.reset.Store(true)
	println(d.ts(), "reset requested")
}

// ts returns the uptime timestamp for logging
func (d *Device) ts() string {
	return "[" + time.Since(d.startTime).String() + "]"
}

func (d *Device) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

func (d *Device) WriteByte(b byte) error {
	return machine.Serial.WriteByte(b)
}
