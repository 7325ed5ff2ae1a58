package env

import (
	"os"
	"strings"
)

// SystemPrefix marks process environment variables that become template
// variables: HTTPDEBUG_VAR_TOKEN is available as {{TOKEN}}.
const SystemPrefix = "HTTPDEBUG_VAR_"

// MergeVariables merges maps left to right; later sources win.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns the process environment variables starting with
// prefix, keyed by the remainder of their name. An empty prefix returns
// everything.
func LoadSystemEnv(prefix string) map[string]any {
	result := make(map[string]any)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}

// ParseAssignments turns "k=v" pairs, as given to --var, into variables.
// Entries without "=" map to an empty string.
func ParseAssignments(pairs []string) map[string]any {
	result := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		result[k] = v
	}
	return result
}
