//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/oshokin/lsep/internal/domain/safety"
)

// FormatTTC renders a TTC, using ∞ for infinity and "-" for a gated reading.
func FormatTTC(ttc float64) string {
	switch {
	case math.IsNaN(ttc):
		return "-"
	case math.IsInf(ttc, 1):
		return "∞"
	default:
		return fmt.Sprintf("%.2f", ttc)
	}
}

// NewTable returns a tabwriter configured for CLI tables.
func NewTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteHistoryTable prints an audit trail as an aligned table.
func WriteHistoryTable(w io.Writer, entries []safety.Transition) error {
	tw := NewTable(w)

	_, _ = fmt.Fprintln(tw, "TIME\tSTATE\tCAUSE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%.3f\t%s\t%s\n", e.Timestamp, e.State, e.Cause)
	}

	return tw.Flush()
}
