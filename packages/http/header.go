package http

import (
	"strings"
)

// HeaderField is a single header line.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Lookups are case-insensitive.
type Headers []HeaderField

const headerSetCookie = "Set-Cookie"

// DefaultHeaders returns a fresh copy of the browser-like header set every
// new Request starts with.
func DefaultHeaders() Headers {
	return Headers{
		{Name: "Accept", Value: "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		{Name: "Accept-Language", Value: "zh-CN,zh;q=0.8,en-US;q=0.5,en;q=0.3"},
		{Name: "Accept-Encoding", Value: "gzip, deflate, br"},
		{Name: "Accept-Charset", Value: "ISO-8859-1,utf-8;q=0.7,*;q=0.7"},
		{Name: "User-Agent", Value: "Mozilla/5.0 Firefox/56.0"},
		{Name: "Connection", Value: "close"},
	}
}

func (h Headers) index(name string) int {
	for i, f := range h {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// Get returns the first value for name, or "".
func (h Headers) Get(name string) string {
	if i := h.index(name); i >= 0 {
		return h[i].Value
	}
	return ""
}

// Has reports whether name is present.
func (h Headers) Has(name string) bool {
	return h.index(name) >= 0
}

// Values returns every value for name in order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Set replaces the first occurrence of name in place and drops any later
// duplicates. A new name is appended.
func (h *Headers) Set(name, value string) {
	i := h.index(name)
	if i < 0 {
		*h = append(*h, HeaderField{Name: name, Value: value})
		return
	}
	(*h)[i].Value = value
	out := (*h)[:i+1]
	for _, f := range (*h)[i+1:] {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	*h = out
}

// Add appends a value without touching existing ones.
func (h *Headers) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Del removes every occurrence of name.
func (h *Headers) Del(name string) {
	out := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	*h = out
}

// Merge sets every field of other onto h.
func (h *Headers) Merge(other Headers) {
	for _, f := range other {
		h.Set(f.Name, f.Value)
	}
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Map folds the list into a map. Repeated names keep the last value.
func (h Headers) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, f := range h {
		m[f.Name] = f.Value
	}
	return m
}

// String serializes the list as a "Name: Value\r\n" block.
func (h Headers) String() string {
	var sb strings.Builder
	for _, f := range h {
		if f.Name == "" {
			continue
		}
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Value)
		sb.WriteString("\r\n")
	}
	return sb.String()
}

// HeadersFromMap builds an ordered list from m, sorted by name so the
// result does not depend on map iteration.
func HeadersFromMap(m map[string]string) Headers {
	h := make(Headers, 0, len(m))
	for _, k := range sortedKeys(m) {
		h = append(h, HeaderField{Name: k, Value: m[k]})
	}
	return h
}

// ParseHeaderLines parses "Name: Value" lines separated by CRLF or LF.
// A repeated name overwrites the earlier value, except Set-Cookie, whose
// occurrences are all collected. Lines without a separator are skipped.
func ParseHeaderLines(block string) Headers {
	var h Headers
	block = strings.ReplaceAll(block, "\r\n", "\n")
	for _, line := range strings.Split(block, "\n") {
		name, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		if strings.EqualFold(name, headerSetCookie) {
			h.Add(name, value)
			continue
		}
		h.Set(name, value)
	}
	return h
}

// ParseResponseHead parses a response header block whose first line is
// the status line.
func ParseResponseHead(block string) (statusLine string, headers Headers) {
	block = strings.TrimLeft(block, "\r\n")
	statusLine, rest, _ := strings.Cut(block, "\n")
	return strings.TrimRight(statusLine, "\r"), ParseHeaderLines(rest)
}

func splitHeaderLine(line string) (string, string, bool) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return "", "", false
	}
	name, value, ok := strings.Cut(line, ": ")
	if !ok {
		name, value, ok = strings.Cut(line, ":")
		if !ok {
			return "", "", false
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}
