package assertions

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreater
	OpGreaterOrEqual
	OpLess
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpLength
	OpType
	OpStatus
	OpSchema
)

var operatorNames = map[Operator]string{
	OpEquals:         "==",
	OpNotEquals:      "!=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpContains:       "contains",
	OpNotContains:    "!contains",
	OpStartsWith:     "startsWith",
	OpEndsWith:       "endsWith",
	OpMatches:        "matches",
	OpExists:         "exists",
	OpNotExists:      "!exists",
	OpLength:         "length",
	OpType:           "type",
	OpStatus:         "in",
	OpSchema:         "schema",
}

func (o Operator) String() string {
	if s, ok := operatorNames[o]; ok {
		return s
	}
	return "unknown"
}

// unary operators take no expected value.
func (o Operator) unary() bool {
	return o == OpExists || o == OpNotExists
}

func parseOperator(s string) (Operator, bool) {
	for op, name := range operatorNames {
		if strings.EqualFold(name, s) {
			return op, true
		}
	}
	switch s {
	case "=", "eq":
		return OpEquals, true
	case "ne":
		return OpNotEquals, true
	}
	return 0, false
}

// Assertion is one check against a result. Subject uses the capture
// expression syntax (status, header.Name, body.path, ...).
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any
}

// Parse reads "subject operator [expected]", for example
// `body.user.id == 42` or `header.Content-Type contains json`. Expected
// values are decoded as JSON when possible and kept as text otherwise.
func Parse(expr string) (*Assertion, error) {
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return nil, fmt.Errorf("invalid assertion %q: want subject operator [value]", expr)
	}

	op, ok := parseOperator(fields[1])
	if !ok {
		return nil, fmt.Errorf("invalid assertion %q: unknown operator %q", expr, fields[1])
	}

	a := &Assertion{Subject: fields[0], Operator: op}
	if op.unary() {
		if len(fields) > 2 {
			return nil, fmt.Errorf("invalid assertion %q: %s takes no value", expr, op)
		}
		return a, nil
	}
	if len(fields) < 3 {
		return nil, fmt.Errorf("invalid assertion %q: missing expected value", expr)
	}

	// Keep the expected text as written, including inner spaces.
	rest := strings.TrimSpace(expr)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
	a.Expected = parseExpected(rest)
	return a, nil
}

func parseExpected(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}
