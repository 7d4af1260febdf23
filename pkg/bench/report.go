package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
)

var csvHeader = []string{
	"date", "dataset", "chunker", "size",
	"dedup_ratio", "avg_chunk_size",
	"write_time", "read_time", "chunk_time", "hash_time",
	"write_throughput", "read_throughput",
}

// AppendCSV appends the result to a CSV report, creating the file with a
// header row when it does not exist yet. Durations are in seconds,
// throughputs in bytes per second.
func (r Result) AppendCSV(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if fi.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}

	secs := func(d time.Duration) string {
		return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
	}
	record := []string{
		r.Date.Format(time.RFC3339),
		r.Dataset,
		r.Chunker,
		strconv.Itoa(r.Size),
		strconv.FormatFloat(r.DedupRatio, 'f', 4, 64),
		strconv.Itoa(r.AvgChunkSize),
		secs(r.WriteTime),
		secs(r.ReadTime),
		secs(r.ChunkTime),
		secs(r.HashTime),
		strconv.FormatFloat(r.WriteThroughput, 'f', 0, 64),
		strconv.FormatFloat(r.ReadThroughput, 'f', 0, 64),
	}
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Print renders a human-readable summary of the result.
func (r Result) Print(w io.Writer) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(w, "%s  %s  %s\n", bold(r.Dataset), r.Chunker, units.HumanSize(float64(r.Size)))
	fmt.Fprintf(w, "  dedup ratio:    %s\n", green(fmt.Sprintf("%.3f", r.DedupRatio)))
	fmt.Fprintf(w, "  avg chunk size: %s\n", units.HumanSize(float64(r.AvgChunkSize)))
	fmt.Fprintf(w, "  write:          %v (%s/s)\n", r.WriteTime, units.HumanSize(r.WriteThroughput))
	fmt.Fprintf(w, "  read:           %v (%s/s)\n", r.ReadTime, units.HumanSize(r.ReadThroughput))
	fmt.Fprintf(w, "  chunking:       %v, hashing: %v\n", r.ChunkTime, r.HashTime)
}
