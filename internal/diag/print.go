package diag

import (
	"fmt"
	"strings"
)

// Pretty renders d the way the original Blazify toolchain does: a one-line
// heading with the error name and message, a "File <name>, line <n>"
// reference, then the offending source line with a caret underline beneath
// the span. Grounded on original_source's Error::prettify/string_with_arrows.
func Pretty(d *Diagnostic, src *Source) string {
	var b strings.Builder

	line, col, lineStart, lineEnd := lineCol(src.Content, d.Span.Start)
	fmt.Fprintf(&b, "%s: %s\n", headingName(d), d.Message)
	fmt.Fprintf(&b, "File %s, line %d\n\n", d.Span.File, line)

	text := src.Content[lineStart:lineEnd]
	// Expand tabs to single spaces so the caret count below lines up.
	text = strings.ReplaceAll(text, "\t", " ")
	b.WriteString(text)
	b.WriteByte('\n')

	width := d.Span.End - d.Span.Start
	if width < 1 {
		width = 1
	}
	if col+width > len(text) {
		width = len(text) - col
		if width < 1 {
			width = 1
		}
	}
	b.WriteString(strings.Repeat(" ", col))
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}

func headingName(d *Diagnostic) string {
	if d.Name != "" {
		return d.Name
	}
	return d.Kind.String()
}
