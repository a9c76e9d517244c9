// Package report formats benchmark results: a progress line per filter
// while the sweep runs, and optional summaries once it has finished.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
	"github.com/weiihann/h5bench/harness"
)

// Format selects the post-sweep summary.
type Format string

const (
	FormatNone     Format = "none"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// Formats lists the accepted summary formats.
func Formats() []Format {
	return []Format{FormatNone, FormatMarkdown, FormatJSON, FormatCSV}
}

const labelWidth = 12

// Label prints a filter label ahead of its run so progress is visible
// while the run is in flight. Line completes the row.
func Label(w io.Writer, label string) {
	fmt.Fprintf(w, "%-*s", labelWidth, label)
}

// Line prints the measurements of r and ends the row started by Label.
// Times are whole milliseconds, size is decimal megabytes.
func Line(w io.Writer, r harness.Result) {
	fmt.Fprintf(w, " write %6s  read %6s  %s\n",
		formatMs(r.WriteMs()),
		formatMs(r.ReadMs()),
		formatMB(r.FileSizeBytes),
	)
}

// Write emits results in the given summary format. FormatNone writes
// nothing.
func Write(w io.Writer, format Format, results []harness.Result) error {
	switch format {
	case FormatNone, "":
		return nil
	case FormatMarkdown:
		return Generate(w, results)
	case FormatJSON:
		return GenerateJSON(w, results)
	case FormatCSV:
		return GenerateCSV(w, results)
	default:
		return fmt.Errorf("unknown summary format %q", format)
	}
}

// Generate writes a markdown comparison table for the given results.
// Sizes are compared against the first uncompressed result, if any.
func Generate(w io.Writer, results []harness.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	baseline := findBaseline(results)

	fmt.Fprintln(w, "## Compression Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d image(s), %d copies each\n", results[0].Images, results[0].Repeat)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Filter | Code | Write | Read | Size | Ratio | RSS |")
	fmt.Fprintln(w, "|--------|------|-------|------|------|-------|-----|")

	for _, r := range results {
		ratio := "-"
		if baseline > 0 && r.FileSizeBytes > 0 {
			ratio = fmt.Sprintf("%.2fx", float64(baseline)/float64(r.FileSizeBytes))
		}

		fmt.Fprintf(w, "| %s | %d | %s | %s | %s | %s | %s |\n",
			r.Label,
			r.FilterCode,
			formatMs(r.WriteMs()),
			formatMs(r.ReadMs()),
			formatMB(r.FileSizeBytes),
			ratio,
			formatBytes(r.RSSBytes),
		)
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []harness.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

// csvRow flattens a result into plain columns. Durations are
// nanoseconds.
type csvRow struct {
	Label         string `csv:"label"`
	FilterCode    int    `csv:"filter_code"`
	Images        int    `csv:"images"`
	Repeat        int    `csv:"repeat"`
	Datasets      int    `csv:"datasets"`
	WriteTimeNs   int64  `csv:"write_time_ns"`
	ReadTimeNs    int64  `csv:"read_time_ns"`
	FileSizeBytes uint64 `csv:"file_size_bytes"`
	RSSBytes      uint64 `csv:"rss_bytes"`
}

// GenerateCSV writes results as CSV with a header row.
func GenerateCSV(w io.Writer, results []harness.Result) error {
	rows := make([]csvRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, csvRow{
			Label:         r.Label,
			FilterCode:    r.FilterCode,
			Images:        r.Images,
			Repeat:        r.Repeat,
			Datasets:      r.Datasets,
			WriteTimeNs:   int64(r.WriteTime),
			ReadTimeNs:    int64(r.ReadTime),
			FileSizeBytes: r.FileSizeBytes,
			RSSBytes:      r.RSSBytes,
		})
	}

	return gocsv.Marshal(rows, w)
}

func findBaseline(results []harness.Result) uint64 {
	for _, r := range results {
		if r.FilterCode == 0 {
			return r.FileSizeBytes
		}
	}

	return 0
}

func formatMs(ms float64) string {
	return fmt.Sprintf("%.0fms", math.Round(ms))
}

func formatMB(b uint64) string {
	return fmt.Sprintf("%.2fMB", float64(b)/1e6)
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	return humanize.IBytes(b)
}
