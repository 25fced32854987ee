package commands

import (
	"errors"
	"time"

	"github.com/calvinmclean/autoshift"
)

type Command struct {
	Flag        byte
	Run         func(Controller) error
	Description string
}

// Controller is the firmware side of the serial console
type Controller interface {
	// RequestReset makes the next tick shift to the lowest gear
	RequestReset()

	// I/O
	ReadByte() (byte, error)
}

var ResetCommand = &Command{
	Flag: autoshift.ResetCommand,
	Run: func(c Controller) error {
		c.RequestReset()
		return nil
	},
	Description: "Shift to the lowest gear on the next tick.",
}

// Reset is the only command. Target cadence, tolerance and wheel size are set in the build
var commands = []*Command{
	ResetCommand,
}

func commandMap() map[byte]*Command {
	cmdMap := map[byte]*Command{}
	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}
	return cmdMap
}

// Run reads and runs commands forever. It sleeps while there is no input so the control loop keeps running
func Run(c Controller) {
	cmdMap := commandMap()
	for {
		err := RunOnce(c, cmdMap)
		if errors.Is(err, errNoInput) {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err != nil {
			println("error:", err.Error())
		}
	}
}

var errNoInput = errors.New("no input")

// RunOnce reads a single byte and runs the command it selects. Any other byte, like the newline after a
// command, is ignored
func RunOnce(c Controller, cmdMap map[byte]*Command) error {
	if cmdMap == nil {
		cmdMap = commandMap()
	}

	cmdIn, err := c.ReadByte()
	if err != nil {
		return errNoInput
	}

	cmd, ok := cmdMap[cmdIn]
	if !ok {
		return nil
	}

	return cmd.Run(c)
}
