//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package main is the ctxagent command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-ctxagent-go/internal/config"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/trace"
)

var (
	configPath string
	verbose    bool
	threadID   string

	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ctxagent",
	Short: "Plan, act and evaluate over a local code base",
	Long: `ctxagent answers questions about a code base with a planner, a tool-using
runner and an evaluator that can send the work back for another plan.

Every run is a thread; its checkpoints can be listed and resumed.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level and print node events")

	runCmd.Flags().StringVar(&threadID, "thread", "", "thread id (generated when empty)")
	chatCmd.Flags().StringVar(&threadID, "thread", "", "thread id shared by every turn (generated when empty)")

	rootCmd.AddCommand(runCmd, chatCmd, resumeCmd, historyCmd, batchCmd)
}

// app holds what every subcommand needs.
type app struct {
	cfg   *config.Config
	clean []func() error
}

// setup loads config, sets the log level and starts telemetry.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = log.LevelDebug
	}
	log.SetLevel(level)

	a := &app{cfg: cfg}
	if !cfg.Telemetry.Enabled {
		return a, nil
	}
	cleanTrace, err := trace.Start(ctx, traceOptions(cfg.Telemetry)...)
	if err != nil {
		return nil, fmt.Errorf("start tracing: %w", err)
	}
	a.clean = append(a.clean, cleanTrace)
	cleanMetric, err := metric.Start(ctx,
		metric.WithEndpoint(cfg.Telemetry.Endpoint),
		metric.WithProtocol(cfg.Telemetry.Protocol),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("start metrics: %w", err)
	}
	a.clean = append(a.clean, cleanMetric)
	return a, nil
}

func traceOptions(cfg config.TelemetryConfig) []trace.Option {
	opts := []trace.Option{
		trace.WithEndpoint(cfg.Endpoint),
		trace.WithProtocol(cfg.Protocol),
		trace.WithServiceName(cfg.ServiceName),
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, trace.WithEndpointURL(cfg.EndpointURL))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, trace.WithHeaders(cfg.Headers))
	}
	return opts
}

func (a *app) close() {
	for i := len(a.clean) - 1; i >= 0; i-- {
		if err := a.clean[i](); err != nil {
			log.Warnf("telemetry shutdown: %v", err)
		}
	}
	a.clean = nil
}
