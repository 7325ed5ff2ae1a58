package assertions

import (
	"fmt"
	"strconv"
	"strings"
)

// StatusSet is a parsed status expectation such as "200", "2xx" or
// "200,201,3xx".
type StatusSet struct {
	raw     string
	codes   map[int]bool
	classes map[int]bool
}

func ParseStatusSet(s string) (*StatusSet, error) {
	set := &StatusSet{
		raw:     strings.TrimSpace(s),
		codes:   make(map[int]bool),
		classes: make(map[int]bool),
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if len(part) == 3 && strings.HasSuffix(part, "xx") {
			class, err := strconv.Atoi(part[:1])
			if err != nil || class < 1 || class > 9 {
				return nil, fmt.Errorf("invalid status class %q", part)
			}
			set.classes[class] = true
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil || code < 100 || code > 999 {
			return nil, fmt.Errorf("invalid status code %q", part)
		}
		set.codes[code] = true
	}
	if len(set.codes) == 0 && len(set.classes) == 0 {
		return nil, fmt.Errorf("empty status expectation %q", s)
	}
	return set, nil
}

func (s *StatusSet) Match(code int) bool {
	return s.codes[code] || s.classes[code/100]
}

func (s *StatusSet) String() string {
	return s.raw
}
