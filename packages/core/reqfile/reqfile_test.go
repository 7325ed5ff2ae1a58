package reqfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `method: POST
url: https://{{host}}/api/users
headers:
  X-Zeta: last-alphabetically
  Accept: application/json
  X-Trace: "{{trace}}"
data:
  zebra: 1
  apple: "{{name}}"
  tags: [a, b]
timeout: 2.5
auth:
  username: alice
  password: "{{pass}}"
options:
  follow_redirects: false
vars:
  host: example.com
extract:
  - id=body.id
expect:
  - status == 201
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "POST", f.Method)
	assert.Equal(t, "https://{{host}}/api/users", f.URL)
	assert.Equal(t, http.Headers{
		{Name: "X-Zeta", Value: "last-alphabetically"},
		{Name: "Accept", Value: "application/json"},
		{Name: "X-Trace", Value: "{{trace}}"},
	}, f.Headers)
	require.Len(t, f.Data, 3)
	assert.Equal(t, "zebra", f.Data[0].Key)
	assert.Equal(t, 1, f.Data[0].Value)
	assert.Equal(t, "apple", f.Data[1].Key)
	assert.Equal(t, []any{"a", "b"}, f.Data[2].Value)
	assert.Equal(t, "2.5", f.Timeout)
	assert.Equal(t, &Auth{Username: "alice", Password: "{{pass}}"}, f.Auth)
	assert.Equal(t, false, f.Options["follow_redirects"])
	assert.Equal(t, "example.com", f.Variables["host"])
	assert.Equal(t, []string{"id=body.id"}, f.Extract)
	assert.Equal(t, []string{"status == 201"}, f.Expect)
}

func TestParse_HeaderList(t *testing.T) {
	f, err := Parse([]byte("url: example.com\nheaders:\n  - \"Accept: a\"\n  - \"Accept: b\"\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, f.Headers.Values("Accept"))
}

func TestParse_Sections(t *testing.T) {
	f, err := Parse([]byte("url: http://x\nheaders:\n  Accept: text/plain\ndata:\n  a: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, http.Headers{{Name: "Accept", Value: "text/plain"}}, f.Headers)
	assert.Equal(t, http.Params{{Key: "a", Value: 1}}, f.Data)

	f, err = Parse([]byte("url: http://x\nheaders:\ndata: ~\n"))
	require.NoError(t, err)
	assert.Empty(t, f.Headers)
	assert.Empty(t, f.Data)

	_, err = Parse([]byte("url: http://x\nheaders: 5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2: headers must be a mapping or a list")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"missing url", "method: GET\n", "no url"},
		{"data and body", "url: x\nbody: raw\ndata:\n  a: 1\n", "mutually exclusive"},
		{"scalar data", "url: x\ndata: a=1\n", "data must be a mapping"},
		{"bad method", "url: x\nmethod: FETCH\n", "invalid method"},
		{"bad yaml", "url: [\n", "parse request file"},
		{"nested header", "url: x\nheaders:\n  - {a: b}\n", "header entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRoundTrip_KeepsOrder(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "req.yaml")
	require.NoError(t, f.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Less(t, strings.Index(text, "X-Zeta"), strings.Index(text, "Accept"))
	assert.Less(t, strings.Index(text, "zebra"), strings.Index(text, "apple"))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, f.Headers, again.Headers)
	assert.Equal(t, f.Data, again.Data)
	assert.Equal(t, f.Auth, again.Auth)
	assert.Equal(t, f.Expect, again.Expect)
	assert.Equal(t, path, again.Path())
}

func TestRoundTrip_DuplicateHeaders(t *testing.T) {
	f := &File{
		URL:     "example.com",
		Headers: http.Headers{{Name: "Accept", Value: "a"}, {Name: "accept", Value: "b"}},
	}

	raw, err := f.Marshal()
	require.NoError(t, err)

	again, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, again.Headers.Values("Accept"))
}

func TestBuild(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	vars := map[string]string{"host": "api.test", "trace": "t-1", "name": "alice", "pass": "s3cret"}

	req := f.Build(func(s string) string {
		for k, v := range vars {
			s = strings.ReplaceAll(s, "{{"+k+"}}", v)
		}
		return s
	})

	require.Nil(t, req.Err())
	assert.Equal(t, "POST", req.Method())
	assert.Equal(t, "https://api.test/api/users", req.URL())
	assert.Equal(t, "t-1", req.Headers().Get("X-Trace"))
	assert.Equal(t, "zebra=1&apple=alice&tags=%5B%22a%22%2C%22b%22%5D", req.QueryString())
	assert.Equal(t, 2500*time.Millisecond, req.Timeout())
	assert.False(t, req.Options().FollowRedirects)

	user, pass, ok := req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret", pass)
}

func TestBuild_DefaultsAndBody(t *testing.T) {
	f, err := Parse([]byte("url: example.com/raw\nbody: '{\"a\":1}'\n"))
	require.NoError(t, err)

	req := f.Build(nil)

	assert.Equal(t, "GET", req.Method())
	body, raw := req.Body()
	assert.True(t, raw)
	assert.Equal(t, `{"a":1}`, body)
}
