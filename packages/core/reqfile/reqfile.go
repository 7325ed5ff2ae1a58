package reqfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"gopkg.in/yaml.v3"
)

var ErrNoURL = errors.New("request file has no url")

// Auth is the basic-auth section of a request file.
type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
}

// File is a request described in YAML. Header and data order is kept as
// written.
type File struct {
	Method    string
	URL       string
	Headers   http.Headers
	Data      http.Params
	Body      string
	Cookie    string
	Timeout   string
	Auth      *Auth
	Options   map[string]any
	Variables map[string]any
	Extract   []string
	Expect    []string

	path string
}

// document mirrors the YAML layout. Ordered sections stay as nodes; a
// zero Node (Kind 0) means the section is absent.
type document struct {
	Method    string         `yaml:"method,omitempty"`
	URL       string         `yaml:"url"`
	Headers   yaml.Node      `yaml:"headers,omitempty"`
	Data      yaml.Node      `yaml:"data,omitempty"`
	Body      string         `yaml:"body,omitempty"`
	Cookie    string         `yaml:"cookie,omitempty"`
	Timeout   string         `yaml:"timeout,omitempty"`
	Auth      *Auth          `yaml:"auth,omitempty"`
	Options   map[string]any `yaml:"options,omitempty"`
	Variables map[string]any `yaml:"vars,omitempty"`
	Extract   []string       `yaml:"extract,omitempty"`
	Expect    []string       `yaml:"expect,omitempty"`
}

// Load reads and parses a request file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// Parse decodes a request file from YAML.
func Parse(data []byte) (*File, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse request file: %w", err)
	}

	f := &File{
		Method:    doc.Method,
		URL:       doc.URL,
		Body:      doc.Body,
		Cookie:    doc.Cookie,
		Timeout:   doc.Timeout,
		Auth:      doc.Auth,
		Options:   doc.Options,
		Variables: doc.Variables,
		Extract:   doc.Extract,
		Expect:    doc.Expect,
	}

	var err error
	if f.Headers, err = decodeHeaders(&doc.Headers); err != nil {
		return nil, err
	}
	if f.Data, err = decodeData(&doc.Data); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the structural rules of a request file.
func (f *File) Validate() error {
	if strings.TrimSpace(f.URL) == "" {
		return ErrNoURL
	}
	if f.Body != "" && len(f.Data) > 0 {
		return errors.New("data and body are mutually exclusive")
	}
	if f.Method != "" && !strings.Contains(f.Method, "{{") && !http.IsValidMethod(f.Method) {
		return fmt.Errorf("invalid method %q", f.Method)
	}
	return nil
}

func decodeHeaders(n *yaml.Node) (http.Headers, error) {
	if n.Kind == 0 || n.Tag == "!!null" {
		return nil, nil
	}
	var h http.Headers
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			h.Add(n.Content[i].Value, n.Content[i+1].Value)
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: header entries must be \"Name: value\" strings", item.Line)
			}
			block := http.ParseHeaderLines(item.Value)
			if len(block) == 0 {
				return nil, fmt.Errorf("line %d: invalid header %q", item.Line, item.Value)
			}
			h = append(h, block...)
		}
	default:
		return nil, fmt.Errorf("line %d: headers must be a mapping or a list", n.Line)
	}
	return h, nil
}

func decodeData(n *yaml.Node) (http.Params, error) {
	if n.Kind == 0 || n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: data must be a mapping (use body for raw payloads)", n.Line)
	}
	var p http.Params
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v any
		if err := n.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Content[i+1].Line, err)
		}
		p = append(p, http.Param{Key: n.Content[i].Value, Value: v})
	}
	return p, nil
}

// Path returns the file the request was loaded from, if any.
func (f *File) Path() string { return f.path }

// Dir is the directory attachments and schemas resolve against.
func (f *File) Dir() string {
	if f.path == "" {
		return ""
	}
	return filepath.Dir(f.path)
}

// Build turns the file into a request. Every string field passes through
// resolve first; a nil resolve leaves values as written.
func (f *File) Build(resolve func(string) string) *http.Request {
	if resolve == nil {
		resolve = func(s string) string { return s }
	}

	method := resolve(f.Method)
	if method == "" {
		method = "GET"
	}
	req := http.NewRequest(method, resolve(f.URL))

	for _, h := range f.Headers {
		req.SetHeader(h.Name, resolve(h.Value))
	}
	if len(f.Data) > 0 {
		params := make(http.Params, len(f.Data))
		for i, p := range f.Data {
			params[i] = http.Param{Key: p.Key, Value: resolveValue(p.Value, resolve)}
		}
		req.SetParams(params)
	}
	if f.Body != "" {
		req.SetBody(resolve(f.Body))
	}
	if f.Cookie != "" {
		req.SetCookie(resolve(f.Cookie))
	}
	if f.Timeout != "" {
		req.SetOption("timeout", resolve(f.Timeout))
	}
	if f.Auth != nil {
		req.SetBasicAuth(resolve(f.Auth.Username), resolve(f.Auth.Password))
	}
	if len(f.Options) > 0 {
		opts := make(map[string]any, len(f.Options))
		for k, v := range f.Options {
			opts[k] = resolveValue(v, resolve)
		}
		req.SetOptions(opts)
	}
	if dir := f.Dir(); dir != "" {
		req.SetBaseDir(dir)
	}
	return req
}

func resolveValue(v any, resolve func(string) string) any {
	switch t := v.(type) {
	case string:
		return resolve(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = resolveValue(item, resolve)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = resolveValue(item, resolve)
		}
		return out
	default:
		return v
	}
}

// Marshal encodes the file as YAML, keeping header and data order.
func (f *File) Marshal() ([]byte, error) {
	doc := document{
		Method:    f.Method,
		URL:       f.URL,
		Body:      f.Body,
		Cookie:    f.Cookie,
		Timeout:   f.Timeout,
		Auth:      f.Auth,
		Options:   f.Options,
		Variables: f.Variables,
		Extract:   f.Extract,
		Expect:    f.Expect,
	}
	if len(f.Headers) > 0 {
		doc.Headers = *encodeHeaders(f.Headers)
	}
	if len(f.Data) > 0 {
		n, err := encodeData(f.Data)
		if err != nil {
			return nil, err
		}
		doc.Data = *n
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode request file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the file as YAML.
func (f *File) Save(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write request file: %w", err)
	}
	f.path = path
	return nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// encodeHeaders writes a mapping, or a list of "Name: value" lines when a
// name repeats.
func encodeHeaders(h http.Headers) *yaml.Node {
	seen := make(map[string]bool, len(h))
	dup := false
	for _, field := range h {
		key := strings.ToLower(field.Name)
		if seen[key] {
			dup = true
			break
		}
		seen[key] = true
	}

	if dup {
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, field := range h {
			n.Content = append(n.Content, scalar(field.Name+": "+field.Value))
		}
		return n
	}
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, field := range h {
		n.Content = append(n.Content, scalar(field.Name), scalar(field.Value))
	}
	return n
}

func encodeData(p http.Params) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, param := range p {
		var value yaml.Node
		if err := value.Encode(param.Value); err != nil {
			return nil, fmt.Errorf("encode data %q: %w", param.Key, err)
		}
		n.Content = append(n.Content, scalar(param.Key), &value)
	}
	return n, nil
}
