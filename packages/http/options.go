package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultConnectTimeout bounds socket connection setup.
	DefaultConnectTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultHTTPVersion is written on the request line by the socket
	// transport.
	DefaultHTTPVersion = "1.1"
)

// Options are the transport options of a Request.
type Options struct {
	// UseLibrary makes the library transport eligible. When false the
	// socket transport always runs.
	UseLibrary      bool
	HTTPVersion     string
	ReturnHeaders   bool
	VerifyTLS       bool
	FollowRedirects bool
	MaxRedirects    int
	ConnectTimeout  time.Duration
	// Passthrough holds unrecognized option names, upper-cased. Only the
	// library transport reads it.
	Passthrough map[string]string
}

// DefaultOptions returns a fresh copy of the default options.
func DefaultOptions() Options {
	return Options{
		UseLibrary:      true,
		HTTPVersion:     DefaultHTTPVersion,
		ReturnHeaders:   true,
		VerifyTLS:       true,
		FollowRedirects: true,
		MaxRedirects:    DefaultMaxRedirects,
		ConnectTimeout:  DefaultConnectTimeout,
		Passthrough:     make(map[string]string),
	}
}

func (o Options) clone() Options {
	out := o
	out.Passthrough = make(map[string]string, len(o.Passthrough))
	for k, v := range o.Passthrough {
		out.Passthrough[k] = v
	}
	return out
}

type optionSetter func(r *Request, value any) error

// optionAliases maps alternate option names onto their canonical name.
var optionAliases = map[string]string{
	"cookies": "cookie",
	"headers": "header",
}

var optionTable map[string]optionSetter

func init() {
	optionTable = map[string]optionSetter{
		"method": func(r *Request, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			r.SetMethod(s)
			return nil
		},
		"url": func(r *Request, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			r.SetURL(s)
			return nil
		},
		"data":   setDataOption,
		"body":   setDataOption,
		"cookie": setCookieOption,
		"header": setHeaderOption,
		"timeout": func(r *Request, v any) error {
			d, err := toDuration(v)
			if err != nil {
				return err
			}
			r.SetTimeout(d)
			return nil
		},
		"auth_username": func(r *Request, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			r.username = s
			return nil
		},
		"auth_password": func(r *Request, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			r.password = s
			return nil
		},
		"aws_sigv4": func(r *Request, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			c, err := ParseAWSCredentials(s)
			if err != nil {
				return err
			}
			r.SetAWSAuth(c)
			return nil
		},
		"use_library": func(r *Request, v any) error {
			return setBool(&r.opts.UseLibrary, v)
		},
		"return_headers": func(r *Request, v any) error {
			return setBool(&r.opts.ReturnHeaders, v)
		},
		"verify_tls": func(r *Request, v any) error {
			return setBool(&r.opts.VerifyTLS, v)
		},
		"follow_redirects": func(r *Request, v any) error {
			return setBool(&r.opts.FollowRedirects, v)
		},
		"http_version": func(r *Request, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "HTTP/")
			if s != "1.0" && s != "1.1" {
				return fmt.Errorf("unsupported http version %q", s)
			}
			r.opts.HTTPVersion = s
			return nil
		},
		"max_redirects": func(r *Request, v any) error {
			n, err := toInt(v)
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("must not be negative")
			}
			r.opts.MaxRedirects = n
			return nil
		},
		"connect_timeout": func(r *Request, v any) error {
			d, err := toDuration(v)
			if err != nil {
				return err
			}
			r.opts.ConnectTimeout = d
			return nil
		},
	}
}

func setDataOption(r *Request, v any) error {
	switch val := v.(type) {
	case string:
		r.SetBody(val)
	case []byte:
		r.SetBody(string(val))
	case Params:
		r.SetParams(val)
	case map[string]string:
		r.SetParams(ParamsFromMap(val))
	case map[string]any:
		r.SetParams(ParamsFromMap(val))
	default:
		return fmt.Errorf("unsupported data type %T", v)
	}
	return nil
}

func setCookieOption(r *Request, v any) error {
	switch val := v.(type) {
	case string:
		r.SetCookie(val)
	case map[string]string:
		r.SetCookies(ParamsFromMap(val))
	case Params:
		r.SetCookies(val)
	default:
		return fmt.Errorf("unsupported cookie type %T", v)
	}
	return nil
}

func setHeaderOption(r *Request, v any) error {
	switch val := v.(type) {
	case string:
		r.SetHeaders(ParseHeaderLines(val))
	case map[string]string:
		r.SetHeaders(HeadersFromMap(val))
	case Headers:
		r.SetHeaders(val)
	default:
		return fmt.Errorf("unsupported header type %T", v)
	}
	return nil
}

func setBool(dst *bool, v any) error {
	b, err := toBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func toString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case fmt.Stringer:
		return val.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(val), nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int:
		return val != 0, nil
	case int64:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %v", v)
}

func toInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(val))
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

// toDuration accepts a time.Duration, a number of seconds, or a duration
// string ("30s"). Bare numeric strings are seconds.
func toDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(s)
	}
	return 0, fmt.Errorf("expected duration, got %T", v)
}
