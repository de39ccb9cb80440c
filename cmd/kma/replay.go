package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/kma"
	"github.com/QuangTung97/kma/allocator"
	"github.com/QuangTung97/kma/stats"
	"github.com/QuangTung97/kma/trace"
)

var (
	replayConfig    string
	replayAllocator string
	replaySource    string
	replayPageSize  uint32
	replayMinBlock  uint32
	replayMaxPages  int
	replayDrain     bool
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayConfig, "config", "", "TOML config file")
	cmd.Flags().StringVar(&replayAllocator, "allocator", kma.AllocatorBuddy, "Allocator: buddy or rm")
	cmd.Flags().StringVar(&replaySource, "source", kma.SourceHeap, "Page source: heap or mmap")
	cmd.Flags().Uint32Var(&replayPageSize, "page-size", 0, "Page size in bytes")
	cmd.Flags().Uint32Var(&replayMinBlock, "min-block", 0, "Smallest buddy block in bytes")
	cmd.Flags().IntVar(&replayMaxPages, "max-pages", 0, "Page limit, 0 for none")
	cmd.Flags().BoolVar(&replayDrain, "drain", false, "Free the blocks still live at the end of the trace")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Replay a trace and print statistics",
		Long: `The replay command runs every operation of a trace file against the
selected allocator, checks that no two live blocks overlap and prints
a statistics table.

Example:
  kma replay trace.txt
  kma replay trace.txt --allocator rm --page-size 4096
  kma replay trace.txt --config kma.toml --drain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, cmd.OutOrStdout(), args[0])
		},
	}
	return cmd
}

func replayConfigFromFlags(cmd *cobra.Command) (kma.Config, error) {
	conf := kma.DefaultConfig()
	if replayConfig != "" {
		loaded, err := kma.LoadConfig(replayConfig)
		if err != nil {
			return kma.Config{}, err
		}
		conf = loaded
	}

	flags := cmd.Flags()
	if replayConfig == "" || flags.Changed("allocator") {
		conf.Allocator = replayAllocator
	}
	if replayConfig == "" || flags.Changed("source") {
		conf.Source = replaySource
	}
	if flags.Changed("page-size") {
		conf.PageSize = replayPageSize
	}
	if flags.Changed("min-block") {
		conf.MinBlock = replayMinBlock
	}
	if flags.Changed("max-pages") {
		conf.MaxPages = replayMaxPages
	}
	return conf, nil
}

func runReplay(cmd *cobra.Command, out io.Writer, path string) error {
	conf, err := replayConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer func() { _ = f.Close() }()

	ops, err := trace.Parse(f)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr())

	var pages *stats.CountingSource
	inst, err := kma.Open(conf, logger, kma.WithSourceWrapper(func(s allocator.PageSource) allocator.PageSource {
		pages = stats.NewCountingSource(s)
		return pages
	}))
	if err != nil {
		return err
	}
	defer func() { _ = inst.Close() }()

	recorder := stats.NewRecorder(inst.Allocator)
	result, replayErr := trace.Replay(recorder, ops, trace.ReplayOptions{
		Drain:  replayDrain,
		Logger: logger,
	})

	fmt.Fprintf(out, "%s allocator, %s pages: %d requests, %d frees, %d drained, %d max live\n",
		conf.Allocator, conf.Source, result.Requests, result.Frees, result.Drained, result.MaxLive)
	stats.Report(out, recorder.Snapshot(), pages.Stats())
	return replayErr
}
