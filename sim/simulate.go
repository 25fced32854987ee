package sim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/calvinmclean/autoshift/controller"
)

// Options for Simulate
type Options struct {
	CrankDebounce time.Duration
	// Sinks also receive every tick, after the output vector is written
	Sinks []controller.Sink
}

// Simulate runs every input vector from in through a new Controller that starts in the lowest gear. Output
// vectors are written to out if it is not nil. The returned Steps can be used with Summarize and RenderChart
func Simulate(ctx context.Context, cfg controller.Config, in io.Reader, out io.Writer, opts Options) ([]Step, error) {
	c, err := controller.New(cfg, nil)
	if err != nil {
		return nil, err
	}

	collector := &Collector{}
	sinks := []controller.Sink{collector}

	var writer *Writer
	if out != nil {
		writer = NewWriter(out)
		sinks = append(sinks, writer)
	}
	sinks = append(sinks, opts.Sinks...)

	err = c.Run(ctx, NewReader(in, opts.CrankDebounce), controller.Sinks(sinks...))
	if err != nil {
		return collector.Steps, fmt.Errorf("error running simulation: %w", err)
	}

	if writer != nil {
		err = writer.Flush()
		if err != nil {
			return collector.Steps, fmt.Errorf("error writing output: %w", err)
		}
	}

	return collector.Steps, nil
}
