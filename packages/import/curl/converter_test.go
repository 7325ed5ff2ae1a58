package curl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/httpdebug/packages/core/reqfile"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleGet(t *testing.T) {
	parsed, err := NewConverter().Parse(`curl https://api.example.com/users`)
	require.NoError(t, err)

	assert.Equal(t, "GET", parsed.Method)
	assert.Equal(t, "https://api.example.com/users", parsed.URL)
	assert.Equal(t, "get_users", parsed.Name)
}

func TestParse_PostWithData(t *testing.T) {
	parsed, err := NewConverter().Parse(`curl -X POST https://api.example.com/users -d '{"name":"John"}'`)
	require.NoError(t, err)

	assert.Equal(t, "POST", parsed.Method)
	assert.Equal(t, []string{`{"name":"John"}`}, parsed.Data)
}

func TestParse_ImplicitMethods(t *testing.T) {
	tests := []struct {
		cmd    string
		method string
	}{
		{`curl -d "name=John" https://api.example.com/users`, "POST"},
		{`curl -F "file=@a.txt" https://api.example.com/upload`, "POST"},
		{`curl -X PUT -d x https://api.example.com/users/1`, "PUT"},
		{`curl -G -d q=1 https://api.example.com/search`, "GET"},
		{`curl -I https://api.example.com`, "HEAD"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			parsed, err := NewConverter().Parse(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.method, parsed.Method)
		})
	}
}

func TestParse_HeadersKeepOrder(t *testing.T) {
	parsed, err := NewConverter().Parse(`curl -H "X-B: 2" -H 'X-A: 1' -A probe -e https://ref.example https://api.example.com`)
	require.NoError(t, err)

	assert.Equal(t, http.Headers{
		{Name: "X-B", Value: "2"},
		{Name: "X-A", Value: "1"},
		{Name: "User-Agent", Value: "probe"},
		{Name: "Referer", Value: "https://ref.example"},
	}, parsed.Headers)
}

func TestParse_Flags(t *testing.T) {
	parsed, err := NewConverter().Parse(`curl -k -L --max-redirs 3 --max-time=5 --connect-timeout 2 -0 -b a=1 -b b=2 -u admin:pw https://api.example.com`)
	require.NoError(t, err)

	assert.True(t, parsed.Insecure)
	assert.True(t, parsed.FollowRedirects)
	assert.Equal(t, 3, parsed.MaxRedirects)
	assert.Equal(t, "5", parsed.MaxTime)
	assert.Equal(t, "2", parsed.ConnectTimeout)
	assert.True(t, parsed.HTTP10)
	assert.Equal(t, []string{"a=1", "b=2"}, parsed.Cookies)
	assert.Equal(t, "admin:pw", parsed.BasicAuth)
}

func TestParse_UnknownFlagsSkipValues(t *testing.T) {
	parsed, err := NewConverter().Parse(`curl -s -o out.bin --compressed -w '%{http_code}' example.com/x`)
	require.NoError(t, err)

	assert.Equal(t, "example.com/x", parsed.URL)
}

func TestParse_Errors(t *testing.T) {
	for _, cmd := range []string{"curl", "curl -X", "curl -H 'A: b'", "curl --max-redirs many x.com"} {
		t.Run(cmd, func(t *testing.T) {
			_, err := NewConverter().Parse(cmd)
			assert.Error(t, err)
		})
	}
}

func TestToFile(t *testing.T) {
	c := NewConverter()
	parsed, err := c.Parse(`curl -k -u admin:secret -b s=1 --max-time 5 -H 'Content-Type: application/json' -d '{"name":"John"}' https://api.example.com/users`)
	require.NoError(t, err)

	f := c.ToFile(parsed)

	assert.Equal(t, "POST", f.Method)
	assert.Equal(t, `{"name":"John"}`, f.Body)
	assert.Equal(t, &reqfile.Auth{Username: "admin", Password: "secret"}, f.Auth)
	assert.Equal(t, "s=1", f.Cookie)
	assert.Equal(t, "5", f.Timeout)
	assert.Equal(t, false, f.Options["verify_tls"])
	assert.Equal(t, false, f.Options["follow_redirects"])
	assert.Equal(t, []string{"status in 2xx,3xx"}, f.Expect)
	require.NoError(t, f.Validate())
}

func TestToFile_FormAndQuery(t *testing.T) {
	c := NewConverter(WithAssertions(false))

	parsed, err := c.Parse(`curl -F name=alice -F avatar=@me.png https://api.example.com/upload`)
	require.NoError(t, err)
	f := c.ToFile(parsed)
	assert.Equal(t, http.Params{{Key: "name", Value: "alice"}, {Key: "avatar", Value: "@me.png"}}, f.Data)
	assert.Empty(t, f.Expect)

	parsed, err = c.Parse(`curl -G -d q=go -d page=2 "https://api.example.com/search?x=1"`)
	require.NoError(t, err)
	f = c.ToFile(parsed)
	assert.Equal(t, "https://api.example.com/search?x=1&q=go&page=2", f.URL)
	assert.Empty(t, f.Body)
}

func TestToRequest(t *testing.T) {
	c := NewConverter()
	parsed, err := c.Parse(`curl --data-urlencode "msg=hello world" -L https://api.example.com/echo`)
	require.NoError(t, err)

	req := c.ToRequest(parsed)

	assert.Equal(t, "POST", req.Method())
	body, raw := req.Body()
	assert.True(t, raw)
	assert.Equal(t, "msg=hello+world", body)
	assert.True(t, req.Options().FollowRedirects)
}

func TestConvertReader(t *testing.T) {
	input := `# list users
curl https://api.example.com/users

curl -X POST \
  -H "Content-Type: application/json" \
  -d '{"name":"John"}' \
  https://api.example.com/users
`
	named, err := NewConverter().ConvertReader(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, named, 2)
	assert.Equal(t, "get_users", named[0].Name)
	assert.Equal(t, "post_users", named[1].Name)
	assert.Equal(t, "application/json", named[1].File.Headers.Get("Content-Type"))
}

func TestConvertFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmds.sh")
	require.NoError(t, os.WriteFile(path, []byte("curl https://a.example.com/x\ncurl -X\n"), 0o644))

	_, err := NewConverter().ConvertFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command 2")
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{`-X POST -d "hello world"`, []string{"-X", "POST", "-d", "hello world"}},
		{`-H 'Content-Type: application/json'`, []string{"-H", "Content-Type: application/json"}},
		{`-d '{"key": "value"}'`, []string{"-d", `{"key": "value"}`}},
		{`-d 'a\nb'`, []string{"-d", `a\nb`}},
		{`-d "say \"hi\""`, []string{"-d", `say "hi"`}},
		{`-d ''`, []string{"-d", ""}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tokenize(tt.input), tt.input)
	}
}

func TestGenerateName(t *testing.T) {
	tests := []struct {
		url    string
		method string
		expect string
	}{
		{"https://api.example.com/users", "GET", "get_users"},
		{"https://api.example.com/users/123", "GET", "get_users_123"},
		{"https://api.example.com/", "POST", "post_root"},
		{"https://api.example.com/api/v1/users", "PUT", "put_api_v1_users"},
		{"example.com/a-b?x=1", "GET", "get_a_b"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, generateName(tt.url, tt.method))
	}
}
