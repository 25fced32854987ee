package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/calvinmclean/autoshift"
)

// commandWriter sends rider commands to the monitor, which forwards them to the firmware
type commandWriter struct {
	writer     io.Writer
	shiftTimer *timer
}

func (c *commandWriter) Reset() {
	c.shiftTimer.Set(time.Now())
	fmt.Fprintf(c.writer, "%c\n", autoshift.ResetCommand)
}
