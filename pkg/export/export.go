package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/core/variant"
)

// PlanEntry is one chunk of a plan. Start and End are set when the plan
// is exported with a time index.
type PlanEntry struct {
	Chunk    int        `json:"chunk"`
	First    int        `json:"first"`
	Last     int        `json:"last"`
	Variants int        `json:"variants"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
}

// Entries lists the chunks of p in index order.
func Entries(p *variant.Plan, idx timeseries.Index) []PlanEntry {
	chunks := p.Chunks()
	out := make([]PlanEntry, len(chunks))
	for i, r := range chunks {
		e := PlanEntry{Chunk: p.ChunkOffset() + i, First: r.First, Last: r.Last, Variants: r.Len()}
		if idx != nil {
			start, end := idx.TimeAt(r.First).UTC(), idx.TimeAt(r.Last).UTC()
			e.Start, e.End = &start, &end
		}
		out[i] = e
	}
	return out
}

// WriteJSON writes the plan entries to w in JSON format.
func WriteJSON(w io.Writer, entries []PlanEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV writes the plan entries to w in CSV format.
func WriteCSV(w io.Writer, entries []PlanEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"chunk", "first", "last", "variants", "start", "end"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.Chunk),
			strconv.Itoa(e.First),
			strconv.Itoa(e.Last),
			strconv.Itoa(e.Variants),
			formatTime(e.Start),
			formatTime(e.End),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write dispatches on format ("csv" or "json").
func Write(w io.Writer, format string, entries []PlanEntry) error {
	switch format {
	case "csv":
		return WriteCSV(w, entries)
	case "json":
		return WriteJSON(w, entries)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
