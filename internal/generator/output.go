package generator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned when there are no records to print
	ErrNoData = errors.New("no data records to print")

	// ErrInvalidLayout wraps layout validation failures
	ErrInvalidLayout = errors.New("invalid layout")
)

// Diagnostic is a non-fatal problem found while generating. Record is the
// zero-based record index, or -1 for problems that affect the whole run.
type Diagnostic struct {
	Record    int
	ElementID string
	Err       error
}

func (d Diagnostic) String() string {
	switch {
	case d.Record < 0:
		return d.Err.Error()
	case d.ElementID == "":
		return fmt.Sprintf("label %d: %v", d.Record+1, d.Err)
	default:
		return fmt.Sprintf("label %d element %s: %v", d.Record+1, d.ElementID, d.Err)
	}
}

// Output is a generated print stream
type Output struct {
	Frames      []string
	Diagnostics []Diagnostic
}

// String concatenates the frames in order
func (o *Output) String() string {
	var b strings.Builder
	for _, f := range o.Frames {
		b.WriteString(f)
	}
	return b.String()
}

// Warnings returns the diagnostics as text
func (o *Output) Warnings() []string {
	warnings := make([]string, 0, len(o.Diagnostics))
	for _, d := range o.Diagnostics {
		warnings = append(warnings, d.String())
	}
	return warnings
}
