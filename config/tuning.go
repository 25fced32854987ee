// Package config loads tuning values for the controller from JSON. Every field is optional and falls back to
// the values in tuning.defaults.json.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calvinmclean/autoshift/actuator"
	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/drift"
	"github.com/calvinmclean/autoshift/gears"
)

//go:embed tuning.defaults.json
var defaultsJSON []byte

const maxFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig is the JSON tuning file
type TuningConfig struct {
	// Shifting band
	TargetCadence    *float64 `json:"target_cadence,omitempty"`
	TolerancePercent *float64 `json:"tolerance_percent,omitempty"`
	WheelSizeInch    *int     `json:"wheel_size_inch,omitempty"`

	// Drift correction
	DriftGate         *float64 `json:"drift_gate,omitempty"`
	DriftMatch        *float64 `json:"drift_match,omitempty"`
	DriftConsensus    *int     `json:"drift_consensus,omitempty"`
	DriftCrossPartner *bool    `json:"drift_cross_partner,omitempty"`

	// Actuation and sensing, duration strings like "200ms"
	PulsePress    *string `json:"pulse_press,omitempty"`
	PulseRelease  *string `json:"pulse_release,omitempty"`
	CrankDebounce *string `json:"crank_debounce,omitempty"`
}

// EmptyTuningConfig has every field unset so the Get* methods return defaults
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns the embedded defaults with every field set
func DefaultTuningConfig() *TuningConfig {
	cfg := EmptyTuningConfig()
	err := json.Unmarshal(defaultsJSON, cfg)
	if err != nil {
		panic("invalid embedded tuning defaults: " + err.Error())
	}
	return cfg
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have a .json extension and be under 1MB.
// Fields omitted from the file use the defaults
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that are set
func (c *TuningConfig) Validate() error {
	if c.TargetCadence != nil && *c.TargetCadence <= 0 {
		return fmt.Errorf("target_cadence must be positive, got %f", *c.TargetCadence)
	}
	if c.TolerancePercent != nil && (*c.TolerancePercent < 0 || *c.TolerancePercent >= 100) {
		return fmt.Errorf("tolerance_percent must be between 0 and 100, got %f", *c.TolerancePercent)
	}
	if c.WheelSizeInch != nil {
		if _, err := cadence.WheelSize(*c.WheelSizeInch).Circumference(); err != nil {
			return fmt.Errorf("invalid wheel_size_inch %d: %w", *c.WheelSizeInch, err)
		}
	}

	for name, v := range map[string]*string{
		"pulse_press":    c.PulsePress,
		"pulse_release":  c.PulseRelease,
		"crank_debounce": c.CrankDebounce,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	return c.DriftConfig().Validate()
}

// GetTargetCadence returns the target_cadence value or the default.
func (c *TuningConfig) GetTargetCadence() float64 {
	if c.TargetCadence == nil {
		return 80 // default
	}
	return *c.TargetCadence
}

// GetTolerancePercent returns the tolerance_percent value or the default.
func (c *TuningConfig) GetTolerancePercent() float64 {
	if c.TolerancePercent == nil {
		return 10 // default
	}
	return *c.TolerancePercent
}

// GetWheelSizeInch returns the wheel_size_inch value or the default.
func (c *TuningConfig) GetWheelSizeInch() int {
	if c.WheelSizeInch == nil {
		return int(cadence.WheelSize28)
	}
	return *c.WheelSizeInch
}

func (c *TuningConfig) GetDriftGate() float64 {
	if c.DriftGate == nil {
		return 0.04
	}
	return *c.DriftGate
}

func (c *TuningConfig) GetDriftMatch() float64 {
	if c.DriftMatch == nil {
		return 0.02
	}
	return *c.DriftMatch
}

func (c *TuningConfig) GetDriftConsensus() int {
	if c.DriftConsensus == nil {
		return 3
	}
	return *c.DriftConsensus
}

func (c *TuningConfig) GetDriftCrossPartner() bool {
	if c.DriftCrossPartner == nil {
		return false
	}
	return *c.DriftCrossPartner
}

// GetPulsePress parses pulse_press, falling back to the default on a missing or invalid value.
func (c *TuningConfig) GetPulsePress() time.Duration {
	return parseDuration(c.PulsePress, actuator.DefaultPulseConfig().PressDelay)
}

// GetPulseRelease parses pulse_release, falling back to the default on a missing or invalid value.
func (c *TuningConfig) GetPulseRelease() time.Duration {
	return parseDuration(c.PulseRelease, actuator.DefaultPulseConfig().ReleaseDelay)
}

// GetCrankDebounce parses crank_debounce, falling back to the default on a missing or invalid value.
func (c *TuningConfig) GetCrankDebounce() time.Duration {
	return parseDuration(c.CrankDebounce, cadence.CrankDebounce)
}

func parseDuration(v *string, fallback time.Duration) time.Duration {
	if v == nil || *v == "" {
		return fallback
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fallback
	}
	return d
}

// DriftConfig converts the drift_* values
func (c *TuningConfig) DriftConfig() drift.Config {
	return drift.Config{
		Gate:         c.GetDriftGate(),
		Match:        c.GetDriftMatch(),
		Consensus:    c.GetDriftConsensus(),
		CrossPartner: c.GetDriftCrossPartner(),
	}
}

// ControllerConfig converts to a controller.Config using the default gear table
func (c *TuningConfig) ControllerConfig() (controller.Config, error) {
	circumference, err := cadence.WheelSize(c.GetWheelSizeInch()).Circumference()
	if err != nil {
		return controller.Config{}, err
	}

	return controller.Config{
		Table:            gears.DefaultTable(),
		TargetCadence:    c.GetTargetCadence(),
		TolerancePercent: c.GetTolerancePercent(),
		CircumferenceMm:  circumference,
		Drift:            c.DriftConfig(),
	}, nil
}

// PulseConfig converts the pulse_* values
func (c *TuningConfig) PulseConfig() actuator.PulseConfig {
	return actuator.PulseConfig{
		PressDelay:   c.GetPulsePress(),
		ReleaseDelay: c.GetPulseRelease(),
	}
}
