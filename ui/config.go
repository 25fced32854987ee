package ui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/autoshift/monitor"
)

// ConfigWindow asks for the monitor.Config before a ride. Values are remembered in the app Preferences
type ConfigWindow struct {
	app      fyne.App
	OnSubmit func()
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

// configField is one text setting in the form and in the Preferences
type configField struct {
	label    string
	key      string
	fallback string
	optional bool
	value    func(*monitor.Config) *string
}

// the serial port is a select and is handled separately
var configFields = []configField{
	{"Baud Rate", "baudRate", monitor.DefaultBaudRate, false, func(c *monitor.Config) *string { return &c.BaudRate }},
	{"Session Name", "sessionName", "", true, func(c *monitor.Config) *string { return &c.SessionName }},
	{"TWChart Address", "twchartAddr", "", true, func(c *monitor.Config) *string { return &c.TWChartAddr }},
	{"Probes", "probesInput", monitor.DefaultProbes, false, func(c *monitor.Config) *string { return &c.ProbesInput }},
	{"Ride Log Path", "dbPath", "", true, func(c *monitor.Config) *string { return &c.DBPath }},
}

const serialPortKey = "serialPort"

func (cw *ConfigWindow) loadConfigFromPreferences(cfg *monitor.Config) {
	prefs := cw.app.Preferences()
	cfg.SerialPort = prefs.StringWithFallback(serialPortKey, "")
	for _, f := range configFields {
		*f.value(cfg) = prefs.StringWithFallback(f.key, f.fallback)
	}
}

func (cw *ConfigWindow) saveConfigToPreferences(cfg *monitor.Config) {
	prefs := cw.app.Preferences()
	prefs.SetString(serialPortKey, cfg.SerialPort)
	for _, f := range configFields {
		prefs.SetString(f.key, *f.value(cfg))
	}
}

func (cw *ConfigWindow) Show(cfg *monitor.Config) {
	window := cw.app.NewWindow("Auto Shift - Configuration")
	window.Resize(fyne.NewSize(400, 300))
	window.SetCloseIntercept(func() {
		// closing is the same as Cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	cw.loadConfigFromPreferences(cfg)

	serialPorts, err := monitor.GetSerialPorts()
	if err != nil && !errors.Is(err, monitor.ErrNoUSBSerial) {
		showError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}
	serialPorts = append(serialPorts, monitor.SerialPortNone)
	if cfg.SerialPort == "" {
		cfg.SerialPort = serialPorts[0]
	}

	submitButton := widget.NewButton("Start Ride", func() {
		cw.saveConfigToPreferences(cfg)
		// open the next window first so the app keeps running
		cw.OnSubmit()
		window.Close()
	})

	validateForm := func(string) {
		if cfg.Validate() == nil {
			submitButton.Enable()
		} else {
			submitButton.Disable()
		}
	}

	serialSelect := widget.NewSelect(serialPorts, nil)
	serialSelect.Bind(binding.BindString(&cfg.SerialPort))
	serialSelect.OnChanged = validateForm

	rows := container.NewGridWithColumns(2, widget.NewLabel("Serial Port:"), serialSelect)
	for _, f := range configFields {
		entry := widget.NewEntry()
		if f.optional {
			entry.SetPlaceHolder("optional")
		}
		entry.Bind(binding.BindString(f.value(cfg)))
		entry.OnChanged = validateForm

		rows.Add(widget.NewLabel(f.label + ":"))
		rows.Add(entry)
	}

	validateForm("")

	window.SetContent(container.NewVBox(
		widget.NewCard("Configuration", "", rows),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	))
}

func showError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
