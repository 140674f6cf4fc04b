package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/goshape/shaper-core/pkg/models"
)

// Summary builds the end-of-run summary from the final sample. ok is false
// when no samples were collected.
func (c *Collector) Summary() (models.RunSummary, bool) {
	last, ok := c.Latest()
	if !ok {
		return models.RunSummary{}, false
	}

	summary := models.RunSummary{
		DurationSeconds:         last.Timestamp,
		TotalPacketsTransmitted: last.TotalPacketsTransmitted,
		TotalBytesTransmitted:   last.TotalBytesTransmitted,
		AggregateThroughputKBps: last.AggregateThroughputBps / 1024.0,
		QueueOccupancy:          last.QueueOccupancy,
		Flows:                   make([]models.FlowSummary, 0, len(last.Flows)),
	}
	for _, fs := range last.Flows {
		summary.Flows = append(summary.Flows, models.FlowSummary{
			FlowID:          fs.FlowID,
			PacketsSent:     fs.PacketsSent,
			PacketsDropped:  fs.PacketsDropped,
			DropRatePercent: fs.DropRate * 100.0,
			ThroughputKBps:  fs.ThroughputBps / 1024.0,
			AverageDelayMs:  fs.AverageDelayMs,
		})
	}
	return summary, true
}

// WriteSummary writes the fixed-width textual summary of the run
func (c *Collector) WriteSummary(w io.Writer) error {
	summary, ok := c.Summary()
	if !ok {
		_, err := fmt.Fprintln(w, "No statistics collected.")
		return err
	}

	var b strings.Builder
	b.WriteString("\n========== Simulation Summary ==========\n")
	fmt.Fprintf(&b, "Duration: %.3f seconds\n", summary.DurationSeconds)
	fmt.Fprintf(&b, "Total Packets Transmitted: %d\n", summary.TotalPacketsTransmitted)
	fmt.Fprintf(&b, "Total Bytes Transmitted: %d\n", summary.TotalBytesTransmitted)
	fmt.Fprintf(&b, "Average Aggregate Throughput: %.2f KB/s\n\n", summary.AggregateThroughputKBps)

	b.WriteString("Per-Flow Statistics:\n")
	fmt.Fprintf(&b, "%8s%12s%12s%12s%17s%15s\n",
		"FlowID", "Sent", "Dropped", "DropRate%", "Throughput(KB/s)", "AvgDelay(ms)")
	b.WriteString(strings.Repeat("-", 76) + "\n")
	for _, fs := range summary.Flows {
		fmt.Fprintf(&b, "%8d%12d%12d%12.2f%17.2f%15.3f\n",
			fs.FlowID, fs.PacketsSent, fs.PacketsDropped,
			fs.DropRatePercent, fs.ThroughputKBps, fs.AverageDelayMs)
	}
	b.WriteString("========================================\n")

	_, err := io.WriteString(w, b.String())
	return err
}
