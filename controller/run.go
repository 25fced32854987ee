package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Source produces one Input per tick. It returns io.EOF when there are no more ticks. Next may block until the
// next tick is due
type Source interface {
	Next(ctx context.Context) (Input, error)
}

// Sink receives the result of every tick. tickErr is the error from Tick, if any. Returning an error stops Run
type Sink interface {
	Record(ctx context.Context, in Input, out Output, tickErr error) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(ctx context.Context, in Input, out Output, tickErr error) error

// Record implements Sink.
func (f SinkFunc) Record(ctx context.Context, in Input, out Output, tickErr error) error {
	return f(ctx, in, out, tickErr)
}

// Sinks records to each Sink in order and stops at the first error
func Sinks(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, in Input, out Output, tickErr error) error {
		for _, s := range sinks {
			err := s.Record(ctx, in, out, tickErr)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Run ticks until the Source is exhausted or the context is cancelled. Tick errors go to the Sink and do not
// stop the loop. It returns nil when the Source returns io.EOF
func (c *Controller) Run(ctx context.Context, src Source, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		in, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading input: %w", err)
		}

		out, tickErr := c.Tick(in)

		if sink == nil {
			continue
		}
		err = sink.Record(ctx, in, out, tickErr)
		if err != nil {
			return fmt.Errorf("error recording tick %d: %w", out.Tick, err)
		}
	}
}
