package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Report renders the allocator and page counters as a two column table.
func Report(w io.Writer, s Snapshot, pages PageStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	rows := [][]string{
		{"allocations", humanize.Comma(int64(s.Allocs))},
		{"frees", humanize.Comma(int64(s.Frees))},
		{"failed requests", humanize.Comma(int64(s.Failures))},
		{"requested", humanize.Bytes(s.Requested)},
		{"reserved", humanize.Bytes(s.Reserved)},
		{"utilization", s.Utilization().Percent()},
		{"live requested", humanize.Bytes(s.LiveRequested)},
		{"live reserved", humanize.Bytes(s.LiveReserved)},
		{"peak reserved", humanize.Bytes(s.PeakReserved)},
		{"page size", humanize.Bytes(uint64(pages.PageSize))},
		{"pages got", strconv.FormatUint(pages.Gets, 10)},
		{"pages freed", strconv.FormatUint(pages.Frees, 10)},
		{"pages in use", strconv.FormatUint(pages.InUse, 10)},
		{"peak pages", fmt.Sprintf("%d (%s)", pages.Peak, humanize.Bytes(pages.Peak*uint64(pages.PageSize)))},
		{"alloc latency mean/p99/worst", formatLatency(s.Alloc)},
		{"free latency mean/p99/worst", formatLatency(s.Free)},
	}
	table.AppendBulk(rows)
	table.Render()
}

func formatLatency(l Latency) string {
	if l.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%v / %v / %v", l.Mean, l.P99, l.Worst)
}
