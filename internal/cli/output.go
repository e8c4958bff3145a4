package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// OutputFormatter handles formatted output to the console
type OutputFormatter struct {
	out    io.Writer
	errOut io.Writer
}

// NewOutputFormatterWithWriters creates an OutputFormatter with custom writers
func NewOutputFormatterWithWriters(out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		out:    out,
		errOut: errOut,
	}
}

// outputFor writes to the command's configured streams.
func outputFor(cmd *cobra.Command) *OutputFormatter {
	return NewOutputFormatterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Info prints an informational message
func (o *OutputFormatter) Info(format string, args ...interface{}) {
	fmt.Fprintf(o.out, format+"\n", args...)
}

// Warn prints a warning message with a warning prefix
func (o *OutputFormatter) Warn(format string, args ...interface{}) {
	fmt.Fprintf(o.errOut, "[WARN] %s\n", fmt.Sprintf(format, args...))
}

// JSON outputs data as formatted JSON
func (o *OutputFormatter) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Section prints a titled block of aligned key/value rows.
func (o *OutputFormatter) Section(title string, rows [][2]string) {
	fmt.Fprintf(o.out, "%s:\n", title)
	if len(rows) == 0 {
		fmt.Fprintln(o.out, "  Not available")
		return
	}
	w := tabwriter.NewWriter(o.out, 0, 0, 1, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(w, "  %s:\t%s\n", row[0], row[1])
	}
	w.Flush()
}

// Heading prints a title underlined to its width.
func (o *OutputFormatter) Heading(title string) {
	fmt.Fprintln(o.out, title)
	fmt.Fprintln(o.out, strings.Repeat("=", len(title)))
	fmt.Fprintln(o.out)
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
