//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-ctxagent-go/agent"
	"trpc.group/trpc-go/trpc-ctxagent-go/agent/contextagent"
	"trpc.group/trpc-go/trpc-ctxagent-go/event"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/runner"
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a single task",
	Long: `Run a single task and print the final answer.

Examples:
  ctxagent run "Summarize README.md"
  ctxagent run --thread docs "Which packages import the graph package?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgent(cmd, func(ctx context.Context, a *contextagent.Agent) error {
			res, err := a.Run(ctx, strings.Join(args, " "), runOptions(cmd.ErrOrStderr(), threadID)...)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively on one thread",
	Long: `Read tasks from stdin until "exit" or "quit". Every turn runs on the same
thread, so the history branch can draw on earlier turns.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAgent(cmd, func(ctx context.Context, a *contextagent.Agent) error {
			id := threadID
			if id == "" {
				id = uuid.NewString()
			}
			return chat(ctx, a, id, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <thread-id>",
	Short: "Continue a thread from its latest checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgent(cmd, func(ctx context.Context, a *contextagent.Agent) error {
			res, err := a.Resume(ctx, args[0], runOptions(cmd.ErrOrStderr(), "")...)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <thread-id>",
	Short: "List the checkpoints of a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgent(cmd, func(ctx context.Context, a *contextagent.Agent) error {
			cps, err := a.History(ctx, args[0])
			if err != nil {
				return err
			}
			if len(cps) == 0 {
				return fmt.Errorf("thread %s has no checkpoints", args[0])
			}
			printHistory(cmd.OutOrStdout(), cps)
			return nil
		})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run every line of a file as its own task",
	Long: `Run one task per non-empty line, each on a fresh thread, on a bounded
worker pool (runner.pool_size). Lines starting with # are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open tasks: %w", err)
		}
		defer f.Close()
		tasks, err := readTasks(f)
		if err != nil {
			return err
		}
		return withAgent(cmd, func(ctx context.Context, a *contextagent.Agent) error {
			r := runner.New(a, runner.WithPoolSize(appFrom(ctx).cfg.Runner.PoolSize))
			outcomes, err := r.RunAll(ctx, tasks)
			if err != nil {
				return err
			}
			return printOutcomes(cmd.OutOrStdout(), outcomes)
		})
	},
}

type appKey struct{}

func appFrom(ctx context.Context) *app {
	a, _ := ctx.Value(appKey{}).(*app)
	return a
}

// withAgent runs fn with a configured agent and tears everything down after.
func withAgent(cmd *cobra.Command, fn func(context.Context, *contextagent.Agent) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()
	m, err := newModel(env.cfg.Model)
	if err != nil {
		return err
	}
	a, saver, err := newAgent(ctx, env.cfg, m)
	if err != nil {
		return err
	}
	defer saver.Close()
	return fn(context.WithValue(ctx, appKey{}, env), a)
}

func runOptions(w io.Writer, thread string) []agent.RunOption {
	var opts []agent.RunOption
	if thread != "" {
		opts = append(opts, agent.WithThreadID(thread))
	}
	if verbose {
		opts = append(opts, agent.WithEventHandler(func(e *event.Event) { printEvent(w, e) }))
	}
	return opts
}

func chat(ctx context.Context, a agent.Agent, thread string, in io.Reader, out, errOut io.Writer) error {
	fmt.Fprintf(out, "thread %s, type exit or quit to leave\n", thread)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		task := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(task) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		res, err := a.Run(ctx, task, runOptions(errOut, thread)...)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.Errorf("thread %s: %v", thread, err)
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		printResult(out, res)
	}
}

// readTasks returns the non-empty, non-comment lines of r.
func readTasks(r io.Reader) ([]string, error) {
	var tasks []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil, errors.New("no tasks")
	}
	return tasks, nil
}

func printResult(w io.Writer, res *agent.Result) {
	fmt.Fprintln(w, res.Response)
	status := res.Verdict
	if res.GaveUp {
		status = "gave up"
	}
	fmt.Fprintf(w, "\n[thread %s, verdict %s, replans %d]\n", res.ThreadID, status, res.Replans)
}

func printEvent(w io.Writer, e *event.Event) {
	switch e.Object {
	case graph.ObjectTypeGraphNodeStart:
		fmt.Fprintf(w, "-> %s (step %d)\n", e.Author, e.Step)
	case graph.ObjectTypeGraphNodeComplete:
		for _, msg := range e.Messages {
			for _, tc := range msg.ToolCalls {
				fmt.Fprintf(w, "   tool %s %s\n", tc.Function.Name, string(tc.Function.Arguments))
			}
		}
	case graph.ObjectTypeGraphExecutionError:
		fmt.Fprintf(w, "!! %s\n", e.Error)
	}
}

func printHistory(w io.Writer, cps []*graph.Checkpoint) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSTEP\tNODE\tSOURCE\tCREATED\tID")
	for _, cp := range cps {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			cp.Seq, cp.Step, cp.Node, cp.Source, cp.CreatedAt.Local().Format(time.DateTime), cp.ID)
	}
	tw.Flush()
}

func printOutcomes(w io.Writer, outcomes []runner.Outcome) error {
	var failed int
	for i, o := range outcomes {
		fmt.Fprintf(w, "== %d. %s (%s)\n", i+1, o.Task, o.Duration.Round(time.Millisecond))
		if o.Err != nil {
			failed++
			fmt.Fprintf(w, "error: %v\n\n", o.Err)
			continue
		}
		printResult(w, o.Result)
		fmt.Fprintln(w)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(outcomes))
	}
	return nil
}
