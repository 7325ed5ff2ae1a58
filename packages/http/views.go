package http

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html/charset"
)

// JSON decodes the body. Bodies that do not start with '{' or '[' after
// trimming return ErrNotJSON without a decode attempt.
func (r *Result) JSON() (any, error) {
	trimmed := bytes.TrimSpace(r.body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, ErrNotJSON
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// JSONPath evaluates a gjson path against the body.
func (r *Result) JSONPath(path string) (gjson.Result, error) {
	if !gjson.ValidBytes(r.body) {
		return gjson.Result{}, ErrNotJSON
	}
	return gjson.GetBytes(r.body, path), nil
}

// XMLNode is one element of a parsed XML body.
type XMLNode struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*XMLNode
}

// Find returns the first descendant element named name.
func (n *XMLNode) Find(name string) *XMLNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// XML parses the body leniently. The returned tree holds everything read
// before the first error; errs lists the problems encountered.
func (r *Result) XML() (root *XMLNode, errs []error) {
	dec := xml.NewDecoder(bytes.NewReader(r.body))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.CharsetReader = charset.NewReaderLabel

	doc := &XMLNode{}
	stack := []*XMLNode{doc}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, err)
			break
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			node := &XMLNode{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				node.Attrs[a.Name.Local] = a.Value
			}
			top.Children = append(top.Children, node)
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if text := strings.TrimSpace(string(t)); text != "" {
				top.Text += text
			}
		}
	}
	if len(stack) > 1 && len(errs) == 0 {
		errs = append(errs, errors.New("xml: unexpected end of document"))
	}
	if len(doc.Children) == 0 {
		if len(errs) == 0 {
			errs = append(errs, errors.New("xml: no root element"))
		}
		return nil, errs
	}
	return doc.Children[0], errs
}

// TextView returns the body converted to UTF-8 using the Content-Type
// charset, or by sniffing the content. The raw text is returned if
// conversion fails.
func (r *Result) TextView() string {
	reader, err := charset.NewReader(bytes.NewReader(r.body), r.ContentType())
	if err != nil {
		return string(r.body)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return string(r.body)
	}
	return string(out)
}
