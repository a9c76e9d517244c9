// Package harness times HDF5 write and read workloads under a given
// compression filter.
package harness

import "time"

// Result holds the measurements of one benchmark run.
type Result struct {
	Label         string        `json:"label"`
	FilterCode    int           `json:"filter_code"`
	Images        int           `json:"images"`
	Repeat        int           `json:"repeat"`
	Datasets      int           `json:"datasets"`
	WriteTime     time.Duration `json:"write_time_ns"`
	ReadTime      time.Duration `json:"read_time_ns"`
	FileSizeBytes uint64        `json:"file_size_bytes"`
	RSSBytes      uint64        `json:"rss_bytes"`
}

// WriteMs returns the accumulated write time in milliseconds.
func (r Result) WriteMs() float64 {
	return float64(r.WriteTime) / float64(time.Millisecond)
}

// ReadMs returns the accumulated read time in milliseconds.
func (r Result) ReadMs() float64 {
	return float64(r.ReadTime) / float64(time.Millisecond)
}
