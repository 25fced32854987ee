package controller

import (
	"errors"
	"fmt"

	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/drift"
	"github.com/calvinmclean/autoshift/gears"
)

const (
	defaultTargetCadence    = 80
	defaultTolerancePercent = 10
)

// Config has the values used when an Input leaves them unset
type Config struct {
	Table gears.Table

	// TargetCadence is the crank rpm the rider wants to keep
	TargetCadence float64
	// TolerancePercent is the size of the band around TargetCadence where no shift happens
	TolerancePercent float64
	// CircumferenceMm is the wheel used until an Input selects another
	CircumferenceMm int

	Drift drift.Config
}

// DefaultConfig is 80 rpm +/- 10% on a 28" wheel
func DefaultConfig() Config {
	return Config{
		Table:            gears.DefaultTable(),
		TargetCadence:    defaultTargetCadence,
		TolerancePercent: defaultTolerancePercent,
		CircumferenceMm:  cadence.DefaultCircumferenceMm,
		Drift:            drift.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	err := c.Table.Validate()
	if err != nil {
		return err
	}

	if c.TargetCadence <= 0 {
		return errors.New("target cadence must be positive")
	}
	if c.TolerancePercent < 0 || c.TolerancePercent >= 100 {
		return fmt.Errorf("tolerance must be between 0 and 100 percent: %v", c.TolerancePercent)
	}
	if !cadence.IsSupportedCircumference(c.CircumferenceMm) {
		return fmt.Errorf("%w: %dmm", cadence.ErrUnsupportedWheelSize, c.CircumferenceMm)
	}

	err = c.Drift.Validate()
	if err != nil {
		return fmt.Errorf("invalid drift config: %w", err)
	}

	return nil
}
