package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ai-shot/src/singleinstance"
)

type stressOptions struct {
	n         int
	monitor   int
	deadline  time.Duration
	portStart int
	portEnd   int
}

type stressStats struct {
	launched int
	ok       int32
	busy     int32
	failed   int32
	missed   int32
	elapsed  time.Duration
}

func (s stressStats) String() string {
	return fmt.Sprintf("launched=%d ok=%d busy=%d err=%d no-resident=%d elapsed=%s",
		s.launched, s.ok, s.busy, s.failed, s.missed, s.elapsed)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-trigger",
		Short:         "Stress test capture delegation to a resident daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := runWithOptions(*opts)
			fmt.Fprintln(cmd.OutOrStdout(), stats.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().IntVar(&opts.monitor, "monitor", 0, "monitor index each client asks for")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")
	cmd.Flags().IntVar(&opts.portStart, "port-start", 0, "first resident port (0 uses the environment)")
	cmd.Flags().IntVar(&opts.portEnd, "port-end", 0, "last resident port (0 uses the environment)")

	return cmd
}

func runWithOptions(opts stressOptions) stressStats {
	var wg sync.WaitGroup
	stats := stressStats{launched: opts.n}
	ipc := singleinstance.Options{PortStart: opts.portStart, PortEnd: opts.portEnd, Logger: zerolog.New(io.Discard)}

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, _, err := singleinstance.NewClient(ipc).TryCapture(ctx, opts.monitor)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&stats.busy, 1)
			case err != nil:
				atomic.AddInt32(&stats.failed, 1)
			case delegated:
				atomic.AddInt32(&stats.ok, 1)
			default:
				atomic.AddInt32(&stats.missed, 1)
			}
		}()
	}
	wg.Wait()
	stats.elapsed = time.Since(start)
	return stats
}
