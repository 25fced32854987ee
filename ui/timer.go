package ui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// timer shows the time since it was last Set. The ride timer counts from the first telemetry and the shift
// timer restarts on every shift
type timer struct {
	showMillis bool
	startTime  time.Time
	mtx        sync.Mutex
	text       *canvas.Text
	stop       chan struct{}
}

func newTimer(showMillis bool) *timer {
	return &timer{
		showMillis: showMillis,
		text:       canvas.NewText(formatElapsed(0, showMillis), nil),
		stop:       make(chan struct{}),
	}
}

func (t *timer) Set(start time.Time) {
	t.mtx.Lock()
	t.startTime = start
	t.mtx.Unlock()
}

func (t *timer) Stop() {
	close(t.stop)
}

func (t *timer) elapsed(now time.Time) time.Duration {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return now.Sub(t.startTime)
}

func formatElapsed(elapsed time.Duration, showMillis bool) string {
	if elapsed < 0 {
		elapsed = 0
	}

	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	if showMillis {
		millis := int(elapsed.Milliseconds()) % 1000
		return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// Go refreshes the text once waitForStart is closed
func (t *timer) Go(waitForStart chan struct{}) {
	d := time.Second
	if t.showMillis {
		d = 100 * time.Millisecond
	}

	go func() {
		select {
		case <-waitForStart:
		case <-t.stop:
			return
		}

		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case now := <-ticker.C:
				text := formatElapsed(t.elapsed(now), t.showMillis)
				fyne.Do(func() {
					t.text.Text = text
					t.text.Refresh()
				})
			}
		}
	}()
}
