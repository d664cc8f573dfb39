// Package plot generates, vets and renders chart code for query results.
//
// Model-written code is untrusted. Sanitizer is a fast static filter that
// rejects well-known dangerous constructs; it is not a sandbox. Runners
// therefore execute only ValidatedCode, and do so in a separate process or
// container with a restricted namespace.
package plot

import (
	"errors"
	"strings"
)

var (
	ErrUnsafeCode = errors.New("generated plot code was rejected as unsafe")
	ErrExecution  = errors.New("plot code execution failed")
)

// Code is unvalidated plot source as produced by the model.
type Code string

// ValidatedCode can only be obtained from Sanitizer.Validate.
type ValidatedCode struct {
	source string
}

func (c ValidatedCode) String() string { return c.source }

// Strip removes markdown fences, triple-quote sequences, comment lines and
// blank lines. Indentation of the remaining lines is preserved.
func Strip(code string) string {
	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.ReplaceAll(line, `"""`, "")
		line = strings.ReplaceAll(line, `'''`, "")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "```"):
			continue
		case strings.HasPrefix(trimmed, "#"):
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.Join(kept, "\n")
}
