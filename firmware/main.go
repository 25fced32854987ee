//go:build tinygo

package main

import (
	"machine"
	"time"

	"github.com/calvinmclean/autoshift/actuator"
	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/firmware/commands"
	"github.com/calvinmclean/autoshift/firmware/device"
)

// printed before each telemetry line when set
const verbose = false

func main() {
	// the target band and wheel are fixed for a build
	cfg := controller.DefaultConfig()
	cfg.TargetCadence = 80
	cfg.TolerancePercent = 10
	cfg.CircumferenceMm = cadence.DefaultCircumferenceMm

	sensorCfg := device.SensorConfig{
		WheelPin:      machine.GP2,
		CrankPin:      machine.GP3,
		WheelDebounce: 50 * time.Millisecond,
		CrankDebounce: cadence.CrankDebounce,
		TickTimeout:   2 * time.Second,
	}

	relayCfg := device.RelayConfig{
		FrontUp:   machine.GP16,
		FrontDown: machine.GP17,
		RearUp:    machine.GP18,
		RearDown:  machine.GP19,
	}

	// leave empty to use the FrontUp relay
	servoCfg := device.ServoConfig{}

	d, err := device.New(cfg, sensorCfg, relayCfg, servoCfg, actuator.DefaultPulseConfig())
	if err != nil {
		panic(err)
	}

	d.Verbose = verbose

	go commands.Run(d)

	d.Run()
}
