package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	awsAlgorithm       = "AWS4-HMAC-SHA256"
	awsUnsignedPayload = "UNSIGNED-PAYLOAD"
	awsDateFormat      = "20060102T150405Z"
)

// AWSCredentials configures AWS Signature Version 4 signing.
type AWSCredentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	Service      string
}

// ParseAWSCredentials parses "accessKey:secretKey:region:service" with an
// optional trailing ":sessionToken".
func ParseAWSCredentials(s string) (AWSCredentials, error) {
	parts := strings.SplitN(s, ":", 5)
	if len(parts) < 4 {
		return AWSCredentials{}, fmt.Errorf("want accessKey:secretKey:region:service[:sessionToken]")
	}
	c := AWSCredentials{
		AccessKey: parts[0],
		SecretKey: parts[1],
		Region:    parts[2],
		Service:   parts[3],
	}
	if len(parts) == 5 {
		c.SessionToken = parts[4]
	}
	if c.AccessKey == "" || c.SecretKey == "" || c.Region == "" || c.Service == "" {
		return AWSCredentials{}, fmt.Errorf("access key, secret key, region and service are required")
	}
	return c, nil
}

// SetAWSAuth signs the request with AWS Signature Version 4 when it is
// executed.
func (r *Request) SetAWSAuth(c AWSCredentials) *Request {
	if r.frozen() {
		return r
	}
	r.aws = &c
	return r
}

// signAWS sets the X-Amz-Date, X-Amz-Content-Sha256 and Authorization
// headers for the request as it will go on the wire.
func (r *Request) signAWS(now time.Time) error {
	c := r.aws
	target := r.url
	if bodiless(r.method) {
		target = appendQuery(target, r.QueryString())
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("aws sigv4: %w", err)
	}

	payloadHash := awsUnsignedPayload
	switch {
	case bodiless(r.method):
		payloadHash = sha256Hash("")
	case r.rawBody:
		payloadHash = sha256Hash(r.body)
	case !r.params.HasAttachments():
		payloadHash = sha256Hash(r.params.Encode())
	}

	amzDate := now.UTC().Format(awsDateFormat)
	dateStamp := amzDate[:8]

	r.headers.Set("Host", parsed.Host)
	r.headers.Set("X-Amz-Date", amzDate)
	r.headers.Set("X-Amz-Content-Sha256", payloadHash)

	canonicalHeaders := "host:" + parsed.Host + "\n" + "x-amz-date:" + amzDate + "\n"
	signedHeaders := "host;x-amz-date"
	if c.SessionToken != "" {
		r.headers.Set("X-Amz-Security-Token", c.SessionToken)
		canonicalHeaders += "x-amz-security-token:" + c.SessionToken + "\n"
		signedHeaders += ";x-amz-security-token"
	}

	canonicalURI := parsed.EscapedPath()
	if canonicalURI == "" {
		canonicalURI = "/"
	}

	canonicalRequest := strings.Join([]string{
		r.method,
		canonicalURI,
		canonicalQueryString(parsed.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := dateStamp + "/" + c.Region + "/" + c.Service + "/aws4_request"
	stringToSign := strings.Join([]string{
		awsAlgorithm,
		amzDate,
		credentialScope,
		sha256Hash(canonicalRequest),
	}, "\n")

	signingKey := signingKey(c.SecretKey, dateStamp, c.Region, c.Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))

	r.headers.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		awsAlgorithm, c.AccessKey, credentialScope, signedHeaders, signature))
	return nil
}

// canonicalQueryString sorts by key, then value, and escapes spaces as %20.
func canonicalQueryString(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			pairs = append(pairs, awsEscape(k)+"="+awsEscape(v))
		}
	}
	return strings.Join(pairs, "&")
}

func awsEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func sha256Hash(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func signingKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}
