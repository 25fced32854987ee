//go:build tinygo

package device

import (
	"context"
	"machine"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/controller"
)

// Sensors times the wheel and crank reed switches from pin interrupts. It implements controller.Source
type Sensors struct {
	cfg SensorConfig

	// nanoseconds since boot, written from interrupts
	lastWheel     atomic.Int64
	wheelInterval atomic.Int64
	wheelPulses   atomic.Uint32
	lastCrank     atomic.Int64
	crankInterval atomic.Int64

	reset atomic.Bool

	seenPulses uint32
	lastTick   time.Time
}

var _ controller.Source = &Sensors{}

func newSensors(cfg SensorConfig) *Sensors {
	s := &Sensors{cfg: cfg, lastTick: time.Now()}

	cfg.WheelPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	cfg.WheelPin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		now := time.Now().UnixNano()
		if interval := s.pulse(&s.lastWheel, now, cfg.WheelDebounce); interval > 0 {
			s.wheelInterval.Store(interval)
			s.wheelPulses.Add(1)
		}
	})

	cfg.CrankPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	cfg.CrankPin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		now := time.Now().UnixNano()
		if interval := s.pulse(&s.lastCrank, now, cfg.CrankDebounce); interval > 0 {
			s.crankInterval.Store(interval)
		}
	})

	return s
}

// pulse records a pulse and returns the interval since the previous one. It returns 0 for the first pulse
// and -1 for a bounce
func (s *Sensors) pulse(last *atomic.Int64, now int64, debounce time.Duration) int64 {
	prev := last.Load()
	if prev != 0 && now-prev < int64(debounce) {
		return -1
	}
	last.Store(now)
	if prev == 0 {
		return 0
	}
	return now - prev
}

// Next waits for the next wheel pulse or TickTimeout. A timeout reports the time since the last pulse, which
// keeps growing while the bike is stopped
func (s *Sensors) Next(ctx context.Context) (controller.Input, error) {
	for {
		if err := ctx.Err(); err != nil {
			return controller.Input{}, err
		}

		pulses := s.wheelPulses.Load()
		if pulses != s.seenPulses {
			s.seenPulses = pulses
			return s.input(s.wheelInterval.Load()), nil
		}

		if time.Since(s.lastTick) >= s.cfg.TickTimeout {
			var interval int64
			if last := s.lastWheel.Load(); last != 0 {
				interval = time.Now().UnixNano() - last
			}
			return s.input(interval), nil
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func (s *Sensors) input(wheelIntervalNs int64) controller.Input {
	s.lastTick = time.Now()

	in := controller.Input{
		WheelIntervalMs: wheelIntervalNs / int64(time.Millisecond),
		Reset:           s.reset.Swap(false),
	}

	// a crank that stopped turning is not a measurement
	if last := s.lastCrank.Load(); last != 0 && time.Now().UnixNano()-last < 2*int64(s.cfg.TickTimeout) {
		in.MeasuredCadence = cadence.CrankCadence(s.crankInterval.Load() / int64(time.Millisecond))
	}

	return in
}
