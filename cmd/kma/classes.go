package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/QuangTung97/kma/allocator"
)

var (
	classesPageSize uint32
	classesMinBlock uint32
)

func init() {
	cmd := newClassesCmd()
	def := allocator.DefaultConfig()
	cmd.Flags().Uint32Var(&classesPageSize, "page-size", def.PageSize, "Page size in bytes")
	cmd.Flags().Uint32Var(&classesMinBlock, "min-block", def.MinBlockSize, "Smallest block in bytes")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "Show size classes and how a page is carved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(cmd.OutOrStdout())
		},
	}
}

func runClasses(out io.Writer) error {
	conf := allocator.Config{PageSize: classesPageSize, MinBlockSize: classesMinBlock}
	if err := conf.Validate(); err != nil {
		return err
	}
	layout := allocator.NewLayout(conf)

	fmt.Fprintf(out, "page %s, header %d bytes (%d units), carved up to %s, dedicated up to %s\n",
		humanize.Bytes(uint64(layout.PageSize)),
		layout.ReservedUnits*layout.MinBlockSize, layout.ReservedUnits,
		humanize.Bytes(uint64(layout.MaxCarve)),
		humanize.Bytes(uint64(layout.MaxDedicated)),
	)

	carved := map[uint32]int{}
	for _, blk := range layout.Carved {
		carved[blk.Size]++
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Class", "Block Size", "Blocks Per Page"})
	for i, size := range layout.ClassSizes {
		table.Append([]string{strconv.Itoa(i), strconv.FormatUint(uint64(size), 10), strconv.Itoa(carved[size])})
	}
	table.Render()
	return nil
}
