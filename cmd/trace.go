package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arbor-sim/arbortools/sim/trace"
)

// DefaultTracePath is the file a ring run writes for the soma of cell 0.
const DefaultTracePath = "./trace_0.0_vsoma.csv"

var (
	traceColumns bool // Print the time and value columns
	traceFollow  bool // Keep reading samples appended to the file
	tracePoll    bool // Poll instead of using file system notifications
)

// traceCmd summarizes a sampled voltage trace
var traceCmd = &cobra.Command{
	Use:   "trace [path]",
	Short: "Summarize a CSV voltage trace",
	Long: "Reads a CSV file of time,value samples, skipping malformed lines, and prints\n" +
		"summary statistics. Defaults to " + DefaultTracePath + ".",
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := DefaultTracePath
		if len(args) == 1 {
			path = args[0]
		}

		if err := summarizeTrace(cmd.OutOrStdout(), path, traceColumns); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logrus.Fatalf("Trace file %s does not exist", path)
			}
			logrus.Fatalf("Failed to read trace: %v", err)
		}

		if traceFollow {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logrus.Infof("Following %s, interrupt to stop", path)
			if err := followTrace(ctx, cmd.OutOrStdout(), path, tracePoll); err != nil {
				logrus.Fatalf("Failed to follow trace: %v", err)
			}
		}
	},
}

// summarizeTrace reads the trace at path and writes its summary table to w,
// followed by its columns when columns is set.
func summarizeTrace(w io.Writer, path string, columns bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer func() { _ = f.Close() }()

	tr, stats, err := trace.Scan(f)
	if err != nil {
		return err
	}
	logrus.Debugf("%s: %d lines, %d skipped", path, stats.Lines, stats.Skipped)

	trace.Summarize(tr).WriteTable(w, path)
	if !columns {
		return nil
	}
	return tr.Render(func(times, values []float64) error {
		_, err := fmt.Fprintf(w, "times:  %v\nvalues: %v\n", times, values)
		return err
	})
}

// followTrace prints samples appended to path until ctx is done.
func followTrace(ctx context.Context, w io.Writer, path string, poll bool) error {
	return trace.Follow(ctx, path, trace.FollowConfig{FromEnd: true, Poll: poll}, func(s trace.Sample) {
		fmt.Fprintf(w, "%g,%g\n", s.Time, s.Value)
	})
}

func init() {
	traceCmd.Flags().BoolVar(&traceColumns, "columns", false, "Print the times and values columns after the summary")
	traceCmd.Flags().BoolVarP(&traceFollow, "follow", "f", false, "Keep printing samples appended to the file")
	traceCmd.Flags().BoolVar(&tracePoll, "poll", false, "Poll the file for changes instead of using inotify")

	rootCmd.AddCommand(traceCmd)
}
