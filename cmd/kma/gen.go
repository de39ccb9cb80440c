package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/kma/trace"
)

var (
	genCount   int
	genMaxSize uint32
	genSeed    int64
	genOutput  string
)

func init() {
	cmd := newGenCmd()
	cmd.Flags().IntVar(&genCount, "count", 1000, "Number of requests")
	cmd.Flags().Uint32Var(&genMaxSize, "max-size", 8000, "Largest request in bytes")
	cmd.Flags().Int64Var(&genSeed, "seed", 0, "Random seed, 0 for the current time")
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output file, stdout if empty")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Generate a random balanced trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.OutOrStdout())
		},
	}
}

func runGen(out io.Writer) error {
	if genCount <= 0 {
		return fmt.Errorf("count %d must > 0", genCount)
	}
	if genMaxSize == 0 {
		return fmt.Errorf("max-size must > 0")
	}

	seed := genSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ops := trace.Generate(rand.New(rand.NewSource(seed)), genCount, genMaxSize)

	if genOutput == "" {
		return trace.Write(out, ops)
	}

	f, err := os.Create(genOutput)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := trace.Write(f, ops); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
