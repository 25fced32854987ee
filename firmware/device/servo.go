//go:build tinygo

package device

import (
	"errors"

	"tinygo.org/x/drivers/servo"

	"github.com/calvinmclean/autoshift/actuator"
)

// servoLine pushes a shift lever. Pulling the line low moves the servo to the press angle
type servoLine struct {
	servo servo.Servo
	cfg   ServoConfig
}

var _ actuator.Line = &servoLine{}

func newServoLine(cfg ServoConfig) (*servoLine, error) {
	s, err := servo.New(cfg.PWM, cfg.Pin)
	if err != nil {
		return nil, errors.New("error creating servo: " + err.Error())
	}

	l := &servoLine{servo: s, cfg: cfg}
	err = s.SetAngle(cfg.ReleaseAngle)
	if err != nil {
		return nil, errors.New("error setting servo angle: " + err.Error())
	}
	return l, nil
}

func (l *servoLine) Set(high bool) {
	angle := l.cfg.PressAngle
	if high {
		angle = l.cfg.ReleaseAngle
	}

	err := l.servo.SetAngle(angle)
	if err != nil {
		println("error setting servo angle:", err.Error())
	}
}
