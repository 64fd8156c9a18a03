package htmlview

import (
	"io"
	"strings"
	"unicode"
)

// indentUnit is emitted once per nesting level.
const indentUnit = "  "

// line is one emitted row of formatted output.
type line struct {
	depth int
	text  string
}

// Segments splits src immediately before every '<'. Every segment starts with
// '<' except possibly the first one. The split is purely lexical: a '<' inside
// a quoted attribute value starts a new segment as well.
func Segments(src string) []string {
	if src == "" {
		return nil
	}

	var segments []string
	start := 0
	for i := 1; i < len(src); i++ {
		if src[i] == '<' {
			segments = append(segments, src[start:i])
			start = i
		}
	}
	return append(segments, src[start:])
}

func isClosingTag(segment string) bool {
	return strings.HasPrefix(segment, "</")
}

// opensLevel reports whether segment counts as an opening tag that expects a
// matching close. Void elements written without "/>" (<br>, <img>) also count.
func opensLevel(segment string) bool {
	return strings.HasPrefix(segment, "<") &&
		!isClosingTag(segment) &&
		!strings.HasSuffix(segment, "/>") &&
		!strings.Contains(segment, "DOCTYPE")
}

// layout assigns an indent depth to every segment of src. The running counter
// may go negative on unbalanced input; emitted depths are clamped at zero.
func layout(src string) []line {
	segments := Segments(src)
	lines := make([]line, 0, len(segments))

	counter := 0
	for _, segment := range segments {
		if isClosingTag(segment) {
			counter--
		}
		lines = append(lines, line{depth: max(counter, 0), text: segment})
		if opensLevel(segment) {
			counter++
		}
	}
	return lines
}

// Format returns src with one segment per line, indented two spaces per
// nesting level. It is a pure function and never fails, whatever the input.
func Format(src string) string {
	var sb strings.Builder
	sb.Grow(len(src) * 2)

	for _, l := range layout(src) {
		sb.WriteString(strings.Repeat(indentUnit, l.depth))
		sb.WriteString(l.text)
		sb.WriteByte('\n')
	}
	return strings.TrimFunc(sb.String(), isTrimSpace)
}

// isTrimSpace matches the whitespace and line terminators a browser strips
// when trimming text: U+FEFF is included, U+0085 is not.
func isTrimSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\uFEFF', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// FormatReader reads r to the end and formats its content.
func FormatReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", NewIOError("failed to read HTML input", err)
	}
	return Format(string(data)), nil
}
