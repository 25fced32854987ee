package main_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/gears"
	"github.com/calvinmclean/autoshift/telemetry"
)

// openPort connects to a board running the firmware. Set AUTOSHIFT_SERIAL_PORT to run these tests
func openPort(t *testing.T) serial.Port {
	t.Helper()

	name := os.Getenv("AUTOSHIFT_SERIAL_PORT")
	if name == "" {
		t.Skip("AUTOSHIFT_SERIAL_PORT is not set")
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: 115200})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	require.NoError(t, port.SetReadTimeout(100*time.Millisecond))
	return port
}

// readUntil reads lines until match returns true or the timeout passes
func readUntil(t *testing.T, port serial.Port, timeout time.Duration, match func(string) bool) (string, bool) {
	t.Helper()

	var pending string
	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		n, err := port.Read(buf)
		require.NoError(t, err)
		pending += string(buf[:n])

		for {
			line, rest, found := strings.Cut(pending, "\n")
			if !found {
				break
			}
			pending = rest

			line = strings.TrimSpace(line)
			if match(line) {
				return line, true
			}
		}
	}
	return "", false
}

func TestReset(t *testing.T) {
	port := openPort(t)

	_, err := port.Write([]byte("R\n"))
	require.NoError(t, err)

	// a tick runs at least every 2s
	line, ok := readUntil(t, port, 5*time.Second, func(line string) bool {
		if !telemetry.IsTelemetry(line) {
			return false
		}
		r, err := telemetry.Parse(line)
		return err == nil && r.HasEvent(controller.EventReset)
	})
	require.True(t, ok, "expected a telemetry line with a reset event")

	r, err := telemetry.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, gears.Position{Front: 1, Rear: 1}, r.Position)
}

func TestTelemetry(t *testing.T) {
	port := openPort(t)

	line, ok := readUntil(t, port, 5*time.Second, telemetry.IsTelemetry)
	require.True(t, ok)

	_, err := telemetry.Parse(line)
	assert.NoError(t, err)
}
