package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats analysis errors against the source text they refer to.
type Reporter struct {
	path   string
	source string
}

func NewReporter(path, source string) *Reporter {
	return &Reporter{path: path, source: source}
}

// Format renders err in the compiler-style "error: ... ┌─ file:line:col"
// layout, using the error's own source anchor. Unsupported constructs render
// as warnings; errors without an anchor render as a single header line.
func (r *Reporter) Format(err *AnalysisError) string {
	levelColor := color.New(color.FgRed).SprintFunc()
	level := "error"
	if err.Kind == UnsupportedConstruct {
		levelColor = color.New(color.FgYellow).SprintFunc()
		level = "warning"
	}
	bold := color.New(color.Bold).SprintFunc()

	header := fmt.Sprintf("%s[%s]: %s\n", levelColor(level), err.Kind.Code(), err.Message)
	line, col := err.Position.Line, err.Position.Column
	if line <= 0 {
		return header
	}

	lines := strings.Split(r.source, "\n")
	var lineContent string
	if line-1 < len(lines) {
		lineContent = lines[line-1]
	}

	marker := strings.Repeat(" ", max(0, col-1)) + "^"

	lineNumberWidth := len(fmt.Sprintf("%d", line))
	if lineNumberWidth < 3 {
		lineNumberWidth = 3
	}
	indent := strings.Repeat(" ", lineNumberWidth)

	return fmt.Sprintf(
		"%s%s┌─ %s:%d:%d\n%s│\n%3d│%s\n%s│%s\n\n",
		header,
		indent,
		r.path, line, col,
		indent,
		line, lineContent,
		indent,
		bold(marker),
	)
}
