package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/autoshift/config"
	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/monitor"
	"github.com/calvinmclean/autoshift/ridelog"
	"github.com/calvinmclean/autoshift/sim"
	"github.com/calvinmclean/autoshift/twchart"
	"github.com/calvinmclean/autoshift/ui"
)

var (
	flagInput   string
	flagOutput  string
	flagTuning  string
	flagChart   string
	flagDB      string
	flagTWChart string
	flagSession string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autoshift",
		Short: "Automatic bicycle shifting tools",
		Long:  "Simulate the shift controller from recorded wheel timing, or monitor a ride from the firmware over USB serial.",
	}
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log every tick")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run input vectors through the controller",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVarP(&flagInput, "input", "i", "-", "CSV input vectors, '-' for stdin")
	simulateCmd.Flags().StringVarP(&flagOutput, "output", "o", "-", "CSV output vectors, '-' for stdout")
	simulateCmd.Flags().StringVar(&flagTuning, "tuning", "", "JSON tuning config")
	simulateCmd.Flags().StringVar(&flagChart, "chart", "", "Write an HTML cadence chart to this file")
	simulateCmd.Flags().StringVar(&flagDB, "db", "", "Store the run in this SQLite ride log")
	simulateCmd.Flags().StringVar(&flagTWChart, "twchart", "", "Upload the run to this TWChart address")
	simulateCmd.Flags().StringVar(&flagSession, "session", "Simulation", "Session name for the ride log and TWChart")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Record a ride from the firmware over USB serial",
		Long:  "Configured with AUTOSHIFT_* environment variables. Set ENABLE_UI=true for the dashboard.",
		RunE:  runMonitor,
	}

	rootCmd.AddCommand(simulateCmd, monitorCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	logger := newLogger()

	tuning := config.EmptyTuningConfig()
	if flagTuning != "" {
		var err error
		tuning, err = config.LoadTuningConfig(flagTuning)
		if err != nil {
			return err
		}
	}

	cfg, err := tuning.ControllerConfig()
	if err != nil {
		return fmt.Errorf("invalid tuning config: %w", err)
	}

	in, err := openInput(flagInput)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openOutput(flagOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	sinks := []controller.Sink{monitor.LogSink(logger)}

	// simulated ticks are spaced by their wheel interval
	start := time.Now()
	clock := start
	sinks = append(sinks, controller.SinkFunc(func(_ context.Context, input controller.Input, _ controller.Output, _ error) error {
		clock = clock.Add(time.Duration(input.WheelIntervalMs) * time.Millisecond)
		return nil
	}))
	now := func() time.Time { return clock }

	if flagDB != "" {
		db, err := ridelog.Open(flagDB)
		if err != nil {
			return fmt.Errorf("error opening ride log: %w", err)
		}
		defer db.Close()

		session, err := db.StartSession(ctx, flagSession, "sim", start)
		if err != nil {
			return err
		}
		defer func() {
			err := db.EndSession(context.Background(), session.ID, now())
			if err != nil {
				logger.Error("error ending ride log session", "error", err)
			}
		}()
		logger.Info("recording to ride log", "session", session.ID)

		sinks = append(sinks, ridelog.NewSessionSink(db, session.ID))
	}

	if flagTWChart != "" {
		client := twchart.NewClient(flagTWChart)
		_, err := client.CreateSession(ctx, flagSession, twchart.DefaultProbes(), start)
		if err != nil {
			return fmt.Errorf("error creating TWChart session: %w", err)
		}
		err = client.SetStartTime(ctx, start)
		if err != nil {
			return err
		}
		defer func() {
			err := client.Done(context.Background(), now())
			if err != nil {
				logger.Error("error finishing TWChart session", "error", err)
			}
		}()
		logger.Info("uploading to TWChart", "session", client.SessionID())

		sinks = append(sinks, monitor.UploadSink(client, now))
	}

	steps, err := sim.Simulate(ctx, cfg, in, out, sim.Options{
		CrankDebounce: tuning.GetCrankDebounce(),
		Sinks:         sinks,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, sim.Summarize(steps, cfg).String())

	if flagChart != "" {
		f, err := os.Create(flagChart)
		if err != nil {
			return fmt.Errorf("error creating chart file: %w", err)
		}
		defer f.Close()

		err = sim.RenderChart(f, flagSession, steps, cfg)
		if err != nil {
			return err
		}
		logger.Info("wrote chart", "path", flagChart)
	}

	return nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening input: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating output: %w", err)
	}
	return f, nil
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	if os.Getenv("ENABLE_UI") == "true" {
		return runUI(cmd.Context())
	}
	return runCLI(cmd.Context())
}

func runUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := newLogger()
	rideUI := ui.NewRideUI()

	var m *monitor.Monitor
	defer func() {
		if m == nil {
			return
		}
		if err := m.Close(); err != nil {
			logger.Error("error closing monitor", "error", err)
		}
	}()

	// the config window fills this in from saved preferences
	var cfg monitor.Config
	rideUI.Run(ctx, &cfg, func(cfg monitor.Config) (io.Writer, error) {
		port, err := monitor.OpenSerial(cfg)
		if err != nil {
			return nil, err
		}

		m, err = monitor.New(ctx, cfg, port, logger)
		if err != nil {
			return nil, err
		}

		r, w := io.Pipe()

		// read from Stdin also
		go func() {
			_, _ = io.Copy(w, os.Stdin)
		}()

		go func() {
			err := m.Run(ctx, r, io.MultiWriter(os.Stdout, rideUI))
			if err != nil {
				logger.Error("monitor stopped", "error", err)
			}
			cancel()
		}()

		return w, nil
	})

	return nil
}

func runCLI(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	m, err := monitor.NewFromEnv(ctx, newLogger())
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Run(ctx, os.Stdin, os.Stdout)
}
