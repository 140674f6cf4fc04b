package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteCSV writes the full history as the tabular export: one row per sample,
// link-level columns first, then Flow<id>_Throughput, Flow<id>_Delay and
// Flow<id>_DropRate triples in flow registration order. Consumers depend on
// this exact column order and naming.
func (c *Collector) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"Timestamp", "QueueOccupancy", "TotalPackets", "TotalBytes", "AggregateThroughput"}
	for _, f := range c.flows {
		header = append(header,
			fmt.Sprintf("Flow%d_Throughput", f.ID()),
			fmt.Sprintf("Flow%d_Delay", f.ID()),
			fmt.Sprintf("Flow%d_DropRate", f.ID()),
		)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, s := range c.History() {
		row := []string{
			strconv.FormatFloat(s.Timestamp, 'f', 3, 64),
			strconv.Itoa(s.QueueOccupancy),
			strconv.FormatUint(s.TotalPacketsTransmitted, 10),
			strconv.FormatUint(s.TotalBytesTransmitted, 10),
			strconv.FormatFloat(s.AggregateThroughputBps, 'f', -1, 64),
		}
		for _, fs := range s.Flows {
			row = append(row,
				strconv.FormatFloat(fs.ThroughputBps, 'f', -1, 64),
				strconv.FormatFloat(fs.AverageDelayMs, 'f', -1, 64),
				strconv.FormatFloat(fs.DropRate, 'f', -1, 64),
			)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the history to a file. A failure is reported to the caller;
// the in-memory history is unaffected either way.
func (c *Collector) SaveCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file %s: %w", path, err)
	}
	defer file.Close()

	if err := c.WriteCSV(file); err != nil {
		return err
	}
	return file.Close()
}
