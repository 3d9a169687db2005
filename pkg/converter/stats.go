package converter

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Status classifies the outcome of one file.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Strategy labels for the summary breakdown.
const (
	StrategyExact    = "exact"
	StrategyDistort  = "distort"
	StrategyCrop     = "crop"
	StrategyFallback = "fallback"
)

// FileResult is the outcome of one source file.
type FileResult struct {
	Input    string
	Output   string
	Status   Status
	Strategy string
	Elapsed  time.Duration
	Err      error
}

// Stats accumulates batch counters. Append-only; no state crosses file
// boundaries besides these counts.
type Stats struct {
	Total      int
	Processed  int
	Skipped    int
	Failed     int
	EncodeTime time.Duration
	Strategies map[string]int
}

// NewStats creates counters for a batch of the given size.
func NewStats(total int) *Stats {
	return &Stats{
		Total:      total,
		Strategies: make(map[string]int),
	}
}

// Record folds one file result into the counters.
func (s *Stats) Record(res FileResult) {
	switch res.Status {
	case StatusProcessed:
		s.Processed++
		s.EncodeTime += res.Elapsed
		if res.Strategy != "" {
			s.Strategies[res.Strategy]++
		}
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// RenderSummary writes the end-of-run table.
func (s *Stats) RenderSummary(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Result", "Count"})
	t.AppendRows([]table.Row{
		{"Processed", s.Processed},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
	})
	t.AppendFooter(table.Row{"Encode time", formatDuration(s.EncodeTime)})
	t.Render()

	if len(s.Strategies) == 0 {
		return
	}
	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetStyle(table.StyleLight)
	st.AppendHeader(table.Row{"Strategy", "Count"})
	for _, name := range []string{StrategyExact, StrategyDistort, StrategyCrop, StrategyFallback} {
		if n := s.Strategies[name]; n > 0 {
			st.AppendRow(table.Row{name, n})
		}
	}
	st.Render()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}
