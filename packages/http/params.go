package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Param is one name/value pair of request data. Values that are not
// strings are JSON-encoded when the data is serialized.
type Param struct {
	Key   string
	Value any
}

// Params is ordered request data.
type Params []Param

// Set overwrites the first pair named key or appends a new one.
func (p *Params) Set(key string, value any) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the raw value stored under key.
func (p Params) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Encode url-encodes the pairs as key=value joined by '&', in order.
func (p Params) Encode() string {
	parts := make([]string, 0, len(p))
	for _, kv := range p {
		parts = append(parts, url.QueryEscape(kv.Key)+"="+url.QueryEscape(paramString(kv.Value)))
	}
	return strings.Join(parts, "&")
}

// HasAttachments reports whether any value names a file with the '@'
// prefix.
func (p Params) HasAttachments() bool {
	for _, kv := range p {
		if _, ok := attachmentPath(kv.Value); ok {
			return true
		}
	}
	return false
}

func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// ParamsFromMap builds Params sorted by key.
func ParamsFromMap[V any](m map[string]V) Params {
	p := make(Params, 0, len(m))
	for _, k := range sortedKeys(m) {
		p = append(p, Param{Key: k, Value: m[k]})
	}
	return p
}

// ParseParams parses "a=1&b=2" form text into Params. Keys without '=' get
// an empty value.
func ParseParams(s string) (Params, error) {
	var p Params
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid param name %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid param value for %q: %w", key, err)
		}
		p = append(p, Param{Key: key, Value: value})
	}
	return p, nil
}

func paramString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case fmt.Stringer:
		return val.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func attachmentPath(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || len(s) < 2 || s[0] != '@' {
		return "", false
	}
	return s[1:], true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
