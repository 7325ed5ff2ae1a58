package env

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverHasUnresolvedVariables(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]any
		captures  map[string]any
		expected  bool
	}{
		{"no variables", "hello world", nil, nil, false},
		{"resolved variable", "{{foo}}", map[string]any{"foo": "bar"}, nil, false},
		{"unresolved variable", "{{foo}}", nil, nil, true},
		{"mixed resolved and unresolved", "{{foo}} and {{bar}}", map[string]any{"foo": "hello"}, nil, true},
		{"all resolved", "{{foo}} and {{bar}}", map[string]any{"foo": "hello", "bar": "world"}, nil, false},
		{"scoped capture unresolved", "{{login.token}}", nil, nil, true},
		{"scoped capture resolved", "{{login.token}}", nil, map[string]any{"token": "t1"}, false},
		{"builtin function", "{{uuid()}}", nil, nil, false},
		{"unknown function", "{{nope()}}", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			for k, v := range tt.captures {
				r.SetCapture("login", k, v)
			}

			assert.Equal(t, tt.expected, r.HasUnresolvedVariables(tt.input))
		})
	}
}

func TestResolverGetUnresolvedVariables(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]any
		expected  []string
	}{
		{"no variables", "hello world", nil, nil},
		{"resolved variable", "{{foo}}", map[string]any{"foo": "bar"}, nil},
		{"single unresolved variable", "{{foo}}", nil, []string{"foo"}},
		{"multiple unresolved variables", "{{foo}} and {{bar}}", nil, []string{"foo", "bar"}},
		{"mixed", "{{foo}} and {{bar}} and {{baz}}", map[string]any{"bar": "middle"}, []string{"foo", "baz"}},
		{"nested path", "{{setup.projectId}}/tasks", nil, []string{"setup.projectId"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			assert.Equal(t, tt.expected, r.GetUnresolvedVariables(tt.input))
		})
	}
}

func TestResolverResolve(t *testing.T) {
	t.Setenv("HTTPDEBUG_RESOLVER_HOST", "api.example.com")

	tests := []struct {
		name      string
		input     string
		variables map[string]any
		expected  string
	}{
		{"no variables", "hello world", nil, "hello world"},
		{"simple variable", "hello {{name}}", map[string]any{"name": "world"}, "hello world"},
		{"multiple variables", "{{greeting}} {{name}}!", map[string]any{"greeting": "Hello", "name": "World"}, "Hello World!"},
		{"spaces inside braces", "{{ name }}", map[string]any{"name": "x"}, "x"},
		{"non-string value", "page={{page}}", map[string]any{"page": 3}, "page=3"},
		{"environment", "https://{{$HTTPDEBUG_RESOLVER_HOST}}/v1", nil, "https://api.example.com/v1"},
		{"unresolved stays as-is", "hello {{unknown}}", nil, "hello {{unknown}}"},
		{"builtin with args", "{{base64('user:pass')}}", nil, "dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			assert.Equal(t, tt.expected, r.Resolve(tt.input))
		})
	}
}

func TestResolverCapturesWinOverVariables(t *testing.T) {
	r := NewResolver()
	r.SetVariable("token", "configured")
	r.SetCapture("login", "token", "captured")

	assert.Equal(t, "captured captured", r.Resolve("{{token}} {{login.token}}"))
}

func TestResolverWarnings(t *testing.T) {
	var warnings []string
	r := NewResolver()
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, format)
	})

	r.Resolve("{{missing}} {{$HTTPDEBUG_DEFINITELY_UNSET}} {{nope()}}")

	assert.Equal(t, []string{
		"unresolved variable: %s",
		"unresolved environment variable: %s",
		"unresolved function call: %s",
	}, warnings)
}

func TestResolverResolveValue(t *testing.T) {
	r := NewResolver()
	r.SetVariable("id", "42")

	got := r.ResolveValue(map[string]any{
		"user":  "{{id}}",
		"tags":  []any{"a-{{id}}", 7},
		"count": 1,
	})

	assert.Equal(t, map[string]any{
		"user":  "42",
		"tags":  []any{"a-42", 7},
		"count": 1,
	}, got)
}

func TestResolverClone(t *testing.T) {
	r := NewResolver()
	r.SetVariable("a", "1")

	c := r.Clone()
	c.SetVariable("a", "2")

	assert.Equal(t, "1", r.Resolve("{{a}}"))
	assert.Equal(t, "2", c.Resolve("{{a}}"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), c.Resolve("{{uuid()}}"))
}
