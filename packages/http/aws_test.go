package http

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAWS_GetVanilla(t *testing.T) {
	req := NewRequest("GET", "https://example.amazonaws.com/").SetAWSAuth(AWSCredentials{
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		Region:    "us-east-1",
		Service:   "service",
	})

	require.NoError(t, req.signAWS(time.Date(2015, 8, 30, 12, 36, 0, 0, time.UTC)))

	h := req.Headers()
	assert.Equal(t, "example.amazonaws.com", h.Get("Host"))
	assert.Equal(t, "20150830T123600Z", h.Get("X-Amz-Date"))
	assert.Equal(t, sha256Hash(""), h.Get("X-Amz-Content-Sha256"))
	assert.Equal(t,
		"AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20150830/us-east-1/service/aws4_request, "+
			"SignedHeaders=host;x-amz-date, "+
			"Signature=5fa00fa31553b73ebf1942676e86291e8372ff2a2260956d9b8aae1d763fbf31",
		h.Get("Authorization"))
}

func TestSignAWS_SessionToken(t *testing.T) {
	req := NewRequest("GET", "https://sqs.eu-west-1.amazonaws.com/").SetAWSAuth(AWSCredentials{
		AccessKey:    "AK",
		SecretKey:    "SK",
		SessionToken: "token",
		Region:       "eu-west-1",
		Service:      "sqs",
	})
	require.NoError(t, req.signAWS(time.Now()))

	h := req.Headers()
	assert.Equal(t, "token", h.Get("X-Amz-Security-Token"))
	assert.Contains(t, h.Get("Authorization"), "SignedHeaders=host;x-amz-date;x-amz-security-token,")
}

func TestSignAWS_PayloadHash(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	creds := AWSCredentials{AccessKey: "AK", SecretKey: "SK", Region: "us-east-1", Service: "s3"}

	tests := []struct {
		name string
		req  *Request
		want string
	}{
		{
			name: "query data is not payload",
			req:  NewRequest("GET", "https://example.com").SetParams(Params{{Key: "a", Value: "1"}}),
			want: sha256Hash(""),
		},
		{
			name: "raw body",
			req:  NewRequest("PUT", "https://example.com/key").SetBody("hello"),
			want: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			name: "form body",
			req:  NewRequest("POST", "https://example.com").SetParams(Params{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}),
			want: sha256Hash("a=1&b=2"),
		},
		{
			name: "attachments",
			req:  NewRequest("POST", "https://example.com").SetParams(Params{{Key: "f", Value: "@file.txt"}}),
			want: "UNSIGNED-PAYLOAD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.SetAWSAuth(creds)
			require.NoError(t, tt.req.signAWS(at))
			assert.Equal(t, tt.want, tt.req.Headers().Get("X-Amz-Content-Sha256"))
		})
	}
}

func TestCanonicalQueryString(t *testing.T) {
	values := url.Values{"b": {"2"}, "a": {"x y", "1"}, "c~": {"*"}}
	assert.Equal(t, "a=1&a=x%20y&b=2&c~=%2A", canonicalQueryString(values))
	assert.Empty(t, canonicalQueryString(nil))
}

func TestParseAWSCredentials(t *testing.T) {
	c, err := ParseAWSCredentials("AK:SK:us-east-1:execute-api")
	require.NoError(t, err)
	assert.Equal(t, AWSCredentials{AccessKey: "AK", SecretKey: "SK", Region: "us-east-1", Service: "execute-api"}, c)

	c, err = ParseAWSCredentials("AK:SK:us-east-1:s3:tok:en")
	require.NoError(t, err)
	assert.Equal(t, "tok:en", c.SessionToken)

	for _, bad := range []string{"", "AK:SK", "AK::us-east-1:s3", "AK:SK:us-east-1:"} {
		_, err := ParseAWSCredentials(bad)
		assert.Error(t, err, bad)
	}
}

func TestExecute_AWSSigV4Option(t *testing.T) {
	type seen struct {
		auth, date, hash, host string
	}
	for _, library := range []bool{true, false} {
		name := "socket"
		if library {
			name = "library"
		}
		t.Run(name, func(t *testing.T) {
			got := make(chan seen, 1)
			srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				got <- seen{
					auth: r.Header.Get("Authorization"),
					date: r.Header.Get("X-Amz-Date"),
					hash: r.Header.Get("X-Amz-Content-Sha256"),
					host: r.Host,
				}
				w.WriteHeader(nethttp.StatusNoContent)
			}))
			defer srv.Close()

			res := NewRequest("POST", srv.URL+"/items").
				SetBody("hello").
				SetOption("use_library", library).
				SetOption("aws_sigv4", "AK:SK:us-east-1:execute-api").
				Execute(context.Background())
			require.True(t, res.OK(), res.ErrorString())

			s := <-got
			require.Len(t, s.date, len("20060102T150405Z"))
			assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), s.host)
			assert.Equal(t, sha256Hash("hello"), s.hash)
			assert.True(t, strings.HasPrefix(s.auth,
				"AWS4-HMAC-SHA256 Credential=AK/"+s.date[:8]+"/us-east-1/execute-api/aws4_request, SignedHeaders=host;x-amz-date, Signature="),
				s.auth)
		})
	}
}

func TestSetOption_InvalidAWSSigV4(t *testing.T) {
	req := NewRequest("GET", "https://example.com").SetOption("aws_sigv4", "nope")
	require.NotNil(t, req.Err())
	assert.Equal(t, CodeValidation, req.Err().Code)
	assert.Contains(t, req.Err().Message, "aws_sigv4")
}
