// Package position tracks where symbols were declared so that
// diagnostics raised during constraint resolution can point back at
// source text.
package position

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Position represents a single point in source code
type Position struct {
	Filename string // Source file name
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Offset   int    // 0-based byte offset in source, when known
}

// IsValid returns true if the position is valid
func (p Position) IsValid() bool {
	return p.Line > 0 && p.Column > 0 && p.Offset >= 0
}

// String returns a string representation of the position
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", filepath.Base(p.Filename), p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before returns true if this position comes before other.
// Positions in different files order by file name.
func (p Position) Before(other Position) bool {
	if p.Filename != other.Filename {
		return p.Filename < other.Filename
	}
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// After returns true if this position comes after other
func (p Position) After(other Position) bool {
	return other.Before(p)
}

// Span represents a range of source code between two positions
type Span struct {
	Start Position // Starting position (inclusive)
	End   Position // Ending position (exclusive)
}

// NoSpan is the zero span used for symbols without a source declaration.
var NoSpan = Span{}

// IsValid returns true if the span is valid
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid() &&
		s.Start.Filename == s.End.Filename &&
		!s.End.Before(s.Start)
}

// String returns a string representation of the span
func (s Span) String() string {
	if !s.IsValid() {
		return "<no location>"
	}

	prefix := ""
	if s.Start.Filename != "" {
		prefix = filepath.Base(s.Start.Filename) + ":"
	}

	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%s%d:%d-%d", prefix, s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%s%d:%d-%d:%d", prefix, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Contains returns true if the span contains the given position
func (s Span) Contains(pos Position) bool {
	if !s.IsValid() || !pos.IsValid() {
		return false
	}
	if s.Start.Filename != pos.Filename {
		return false
	}
	return !pos.Before(s.Start) && pos.Before(s.End)
}

// Union returns a span that encompasses both this span and other
func (s Span) Union(other Span) Span {
	if !s.IsValid() {
		return other
	}
	if !other.IsValid() {
		return s
	}
	if s.Start.Filename != other.Start.Filename {
		return s
	}

	start := s.Start
	if other.Start.Before(start) {
		start = other.Start
	}

	end := s.End
	if other.End.After(end) {
		end = other.End
	}

	return Span{Start: start, End: end}
}

// First returns the earliest valid span of spans, or NoSpan.
func First(spans []Span) Span {
	first := NoSpan
	for _, s := range spans {
		if !s.IsValid() {
			continue
		}
		if !first.IsValid() || s.Start.Before(first.Start) {
			first = s
		}
	}
	return first
}

// Sort orders spans by start position in place.
func Sort(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start.Before(spans[j].Start)
	})
}

var spanPattern = regexp.MustCompile(`^(.+):(\d+):(\d+)(?:-(\d+)(?::(\d+))?)?$`)

// ParseSpan parses the forms produced by Span.String with the file name
// kept: "file:line:col", "file:line:col-col" and "file:line:col-line:col".
// Offsets are left at zero.
func ParseSpan(text string) (Span, error) {
	m := spanPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return NoSpan, fmt.Errorf("location %q: want file:line:col[-[line:]col]", text)
	}

	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	start := Position{Filename: m[1], Line: atoi(m[2]), Column: atoi(m[3])}
	end := start

	switch {
	case m[5] != "":
		end.Line = atoi(m[4])
		end.Column = atoi(m[5])
	case m[4] != "":
		end.Column = atoi(m[4])
	}

	span := Span{Start: start, End: end}
	if !span.IsValid() {
		return NoSpan, fmt.Errorf("location %q is not a valid span", text)
	}
	return span, nil
}
