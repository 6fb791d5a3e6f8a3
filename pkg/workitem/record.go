package workitem

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ErrorRecord is the structured form of a failure.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Record is the structured form of one result, as handed to the host.
type Record struct {
	Index     int          `json:"index"`
	Operation Operation    `json:"operation"`
	Path      string       `json:"path"`
	OK        bool         `json:"ok"`
	Skipped   bool         `json:"skipped,omitempty"`
	Output    any          `json:"output,omitempty"`
	Error     *ErrorRecord `json:"error,omitempty"`
}

// Record converts the result.
func (r *Result) Record() Record {
	rec := Record{
		Index:     r.Index,
		Operation: r.Item.Operation,
		Path:      r.Item.Path,
		OK:        r.OK(),
		Skipped:   r.Skipped,
		Output:    r.Output,
	}
	if r.Err != nil {
		kind := r.Kind()
		rec.Output = nil
		rec.Error = &ErrorRecord{
			Kind:    kind.String(),
			Message: r.Err.Error(),
			Hint:    kind.Hint(),
		}
	}
	return rec
}

// Records converts every result in order.
func (b *BatchResult) Records() []Record {
	out := make([]Record, 0, len(b.Results))
	for _, r := range b.Results {
		out = append(out, r.Record())
	}
	return out
}

// WriteJSON writes one JSON record per line.
func (b *BatchResult) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range b.Records() {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteText writes a human-readable report.
func (b *BatchResult) WriteText(w io.Writer) {
	for _, r := range b.Results {
		status := "PASS"
		switch {
		case r.Skipped:
			status = "SKIP"
		case r.Err != nil:
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %d %s (%s)\n", status, r.Index, r.Item.String(), r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			fmt.Fprintf(w, "       Error: %v\n", r.Err)
			if hint := r.Kind().Hint(); hint != "" {
				fmt.Fprintf(w, "       Hint:  %s\n", hint)
			}
		}
	}

	fmt.Fprintf(w, "\n--- Summary ---\n")
	fmt.Fprintf(w, "Total:   %d\n", len(b.Results))
	fmt.Fprintf(w, "Passed:  %d\n", b.PassCount)
	fmt.Fprintf(w, "Failed:  %d\n", b.FailCount)
	fmt.Fprintf(w, "Skipped: %d\n", b.SkipCount)
	if b.Aborted {
		fmt.Fprintf(w, "Batch aborted\n")
	}
	if b.DisconnectErr != nil {
		fmt.Fprintf(w, "Disconnect: %v\n", b.DisconnectErr)
	}
}
