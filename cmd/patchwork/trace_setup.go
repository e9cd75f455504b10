package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/valoeghese/patchwork-patcher/internal/config"
	"github.com/valoeghese/patchwork-patcher/internal/trace"
)

// setupTracing builds the tracer from the config, with explicitly set flags
// taking precedence, and attaches it to the command context. status feeds
// the heartbeat detail. The returned cleanup dumps the ring buffer when the
// build failed in ring mode.
func setupTracing(cmd *cobra.Command, cfg config.Trace, status func() string) (func(failed bool), error) {
	flags := cmd.Root().PersistentFlags()

	if flags.Changed("trace") {
		out, err := flags.GetString("trace")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace flag: %w", err)
		}
		cfg.Output = out
		if !flags.Changed("trace-level") && cfg.Level == "off" {
			cfg.Level = "phase"
		}
	}
	if flags.Changed("trace-level") {
		level, err := flags.GetString("trace-level")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
		}
		cfg.Level = level
	}
	if flags.Changed("trace-mode") {
		mode, err := flags.GetString("trace-mode")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
		}
		cfg.Mode = mode
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(bool) {}, nil
	}
	mode, err := trace.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: cfg.Output,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval, status)
	return func(failed bool) {
		heartbeat.Stop()
		if failed && mode == trace.ModeRing {
			if err := dumpRing(cmd, tracer, cfg.Output); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

func dumpRing(cmd *cobra.Command, tracer trace.Tracer, path string) error {
	ring := trace.RingOf(tracer)
	if ring == nil {
		return nil
	}
	var w io.Writer = cmd.ErrOrStderr()
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "trace: dumping last %d events\n", ring.Len())
	return ring.Dump(w, trace.FormatForPath(path), "")
}
