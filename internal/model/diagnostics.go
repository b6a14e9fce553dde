package model

import "strings"

// Warning is a non-fatal issue for the operator: a short summary plus hints
// on what to do about it.
type Warning struct {
	Summary string   `json:"summary"`
	Hints   []string `json:"hints,omitempty"`
}

func (w Warning) String() string {
	if len(w.Hints) == 0 {
		return w.Summary
	}
	return w.Summary + "\n" + strings.Join(w.Hints, "\n")
}

// Diagnostics is an append-only, ordered warning log owned by one run.
// The zero value is ready to use.
type Diagnostics struct {
	entries []Warning
}

// Warn appends a warning.
func (d *Diagnostics) Warn(summary string, hints ...string) {
	d.entries = append(d.entries, Warning{Summary: summary, Hints: hints})
}

// Append copies warnings from another log, preserving order.
func (d *Diagnostics) Append(ws ...Warning) {
	d.entries = append(d.entries, ws...)
}

// Entries returns a copy of the log.
func (d *Diagnostics) Entries() []Warning {
	out := make([]Warning, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of warnings.
func (d *Diagnostics) Len() int {
	return len(d.entries)
}
