// Package ui shows a ride dashboard. It reads the same serial output as the CLI by acting as an io.Writer and
// sends commands to the monitor through the io.Writer passed to Run.
package ui

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/monitor"
	"github.com/calvinmclean/autoshift/telemetry"
)

const maxLogLines = 200

var shiftColor = color.RGBA{R: 0, G: 100, B: 0, A: 255}

// view is what the dashboard displays after a telemetry line
type view struct {
	Gear     string
	Speed    string
	Expected string
	Measured string

	// Shifted is set when the gear changed in this tick, so the shift timer restarts
	Shifted bool
	Reset   bool
	Events  []string
}

func newView(r telemetry.Record) view {
	v := view{
		Gear:     r.Position.String(),
		Speed:    fmt.Sprintf("%.1f km/h", r.SpeedKmh),
		Expected: fmt.Sprintf("%.0f rpm", r.ExpectedCadence),
		Measured: "-",
		Reset:    r.HasEvent(controller.EventReset),
		Shifted: r.HasEvent(controller.EventShiftUp) ||
			r.HasEvent(controller.EventShiftDown) ||
			r.HasEvent(controller.EventCorrection),
	}
	if r.MeasuredCadence > 0 {
		v.Measured = fmt.Sprintf("%.0f rpm", r.MeasuredCadence)
	}
	for _, e := range r.Events {
		v.Events = append(v.Events, e.String())
	}
	return v
}

// RideUI displays the ride. Write it the device output
type RideUI struct {
	mtx     sync.Mutex
	partial bytes.Buffer

	gear     *canvas.Text
	speed    *widget.Label
	expected *widget.Label
	measured *widget.Label
	logs     *widget.Label
	logLines []string

	rideTimer  *timer
	shiftTimer *timer
	started    chan struct{}
	startOnce  sync.Once
}

var _ io.Writer = &RideUI{}

func NewRideUI() *RideUI {
	gear := canvas.NewText("-/-", nil)
	gear.TextSize = 64
	gear.TextStyle.Bold = true
	gear.Alignment = fyne.TextAlignCenter

	return &RideUI{
		gear:       gear,
		speed:      widget.NewLabel("-"),
		expected:   widget.NewLabel("-"),
		measured:   widget.NewLabel("-"),
		logs:       widget.NewLabel(""),
		rideTimer:  newTimer(false),
		shiftTimer: newTimer(true),
		started:    make(chan struct{}),
	}
}

// Write splits p into lines. Telemetry updates the dashboard and everything is added to the log
func (ui *RideUI) Write(p []byte) (int, error) {
	ui.mtx.Lock()
	defer ui.mtx.Unlock()

	ui.partial.Write(p)
	for {
		line, err := ui.partial.ReadString('\n')
		if err != nil {
			// keep the incomplete line for the next Write
			ui.partial.Reset()
			ui.partial.WriteString(line)
			break
		}
		ui.handleLine(strings.TrimSpace(line))
	}

	return len(p), nil
}

func (ui *RideUI) handleLine(line string) {
	if line == "" {
		return
	}

	if !telemetry.IsTelemetry(line) {
		ui.appendLog(line)
		return
	}

	r, err := telemetry.Parse(line)
	if err != nil {
		ui.appendLog(err.Error())
		return
	}

	ui.startOnce.Do(func() {
		now := time.Now()
		ui.rideTimer.Set(now)
		ui.shiftTimer.Set(now)
		close(ui.started)
	})

	v := newView(r)
	if v.Shifted || v.Reset {
		ui.shiftTimer.Set(time.Now())
	}
	for _, e := range v.Events {
		ui.appendLog(e)
	}

	logText := strings.Join(ui.logLines, "\n")
	fyne.Do(func() {
		ui.gear.Text = v.Gear
		ui.gear.Color = gearColor(v.Shifted)
		ui.gear.Refresh()
		ui.speed.SetText(v.Speed)
		ui.expected.SetText(v.Expected)
		ui.measured.SetText(v.Measured)
		ui.logs.SetText(logText)
	})
}

func gearColor(shifted bool) color.Color {
	if shifted {
		return shiftColor
	}
	return nil
}

func (ui *RideUI) appendLog(line string) {
	ui.logLines = append(ui.logLines, line)
	if len(ui.logLines) > maxLogLines {
		ui.logLines = ui.logLines[len(ui.logLines)-maxLogLines:]
	}
}

// Starter connects to the device with the submitted Config. It returns where rider commands are written
type Starter func(cfg monitor.Config) (io.Writer, error)

// Run asks for the Config and then shows the dashboard until it is closed or ctx is done
func (ui *RideUI) Run(ctx context.Context, cfg *monitor.Config, start Starter) {
	application := app.NewWithID("com.calvinmclean.autoshift")

	configWindow := NewConfigWindow(application)
	configWindow.OnSubmit = func() {
		w, err := start(*cfg)
		if err != nil {
			window := application.NewWindow("Auto Shift")
			window.Show()
			showError(application, window, err)
			return
		}
		ui.showDashboard(application, w)
	}
	configWindow.Show(cfg)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			application.Quit()
		})
	}()

	application.Run()
	ui.rideTimer.Stop()
	ui.shiftTimer.Stop()
}

func (ui *RideUI) showDashboard(application fyne.App, w io.Writer) {
	window := application.NewWindow("Auto Shift")
	window.SetCloseIntercept(func() {
		window.Close()
		application.Quit()
	})

	commands := &commandWriter{writer: w, shiftTimer: ui.shiftTimer}

	ui.rideTimer.Go(ui.started)
	ui.shiftTimer.Go(ui.started)

	resetButton := widget.NewButton("Reset to lowest gear", commands.Reset)

	logScroll := container.NewVScroll(ui.logs)
	logScroll.SetMinSize(fyne.NewSize(300, 100))

	content := container.NewVBox(
		container.NewHBox(
			container.NewPadded(ui.rideTimer.text),
			layout.NewSpacer(),
			container.NewPadded(ui.shiftTimer.text),
		),
		ui.gear,
		container.NewGridWithColumns(2,
			widget.NewLabel("Speed"), ui.speed,
			widget.NewLabel("Expected Cadence"), ui.expected,
			widget.NewLabel("Measured Cadence"), ui.measured,
		),
		resetButton,
		widget.NewAccordion(widget.NewAccordionItem("Logs", logScroll)),
	)

	window.SetContent(content)
	window.Resize(fyne.NewSize(320, 420))
	window.Show()
}
