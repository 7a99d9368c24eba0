package httpmsg

import "strings"

// Canonicalize returns the matching key for a header name: surrounding
// whitespace trimmed, lowercased.
func Canonicalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HeaderLines maps canonical header names to the original header line.
//
// A repeated name replaces the stored line but keeps the position of its
// first occurrence, so iteration order is first-occurrence order.
type HeaderLines struct {
	order []string
	lines map[string]string
}

// ParseHeaderLines splits each line on its first colon and indexes it by the
// canonical name. Lines without a colon are dropped.
func ParseHeaderLines(lines []string) *HeaderLines {
	h := &HeaderLines{
		order: make([]string, 0, len(lines)),
		lines: make(map[string]string, len(lines)),
	}
	for _, line := range lines {
		name, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := Canonicalize(name)
		if _, seen := h.lines[key]; !seen {
			h.order = append(h.order, key)
		}
		h.lines[key] = strings.TrimSpace(line)
	}
	return h
}

// Len returns the number of distinct canonical names still held.
func (h *HeaderLines) Len() int {
	return len(h.lines)
}

// Line returns the stored line for a canonical name.
func (h *HeaderLines) Line(canonical string) (string, bool) {
	line, ok := h.lines[canonical]
	return line, ok
}

// Value returns the trimmed text after the first colon of the stored line.
func (h *HeaderLines) Value(canonical string) (string, bool) {
	line, ok := h.lines[canonical]
	if !ok {
		return "", false
	}
	return headerValue(line), true
}

// Delete removes a canonical name.
func (h *HeaderLines) Delete(canonical string) {
	delete(h.lines, canonical)
}

// Lines returns the remaining original lines in first-occurrence order.
func (h *HeaderLines) Lines() []string {
	if len(h.lines) == 0 {
		return nil
	}
	out := make([]string, 0, len(h.lines))
	for _, key := range h.order {
		if line, ok := h.lines[key]; ok {
			out = append(out, line)
		}
	}
	return out
}

func headerValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}
