package http

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxInferredExtLen bounds extensions taken from a Content-Type. Longer
// subtypes such as "svg+xml" or "octet-stream" are not appended.
const maxInferredExtLen = 5

// DownloadResult is either the saved file or the downloaded body.
type DownloadResult struct {
	Path        string
	Bytes       int
	Status      int
	Body        []byte
	Diagnostics map[string]any
}

// Download GETs url. With saveFile set the body is written there, adding an
// extension inferred from the Content-Type when the name lacks it.
// Otherwise the body is returned. Transport failures return the
// *ExchangeError; a status other than 200 returns one with code -1.
func Download(ctx context.Context, url, saveFile string, data any, options map[string]any) (*DownloadResult, error) {
	res := Get(ctx, url, data, options)
	if err := res.Err(); err != nil {
		return nil, err
	}
	status, _ := res.Status()
	if status != 200 {
		return nil, &ExchangeError{
			Code:    CodeValidation,
			Message: fmt.Sprintf("unexpected status %d for %s", status, url),
		}
	}

	if saveFile == "" {
		return &DownloadResult{
			Status:      status,
			Body:        res.Body(),
			Diagnostics: res.Diagnostics(),
		}, nil
	}

	path := WithInferredExtension(saveFile, res.ContentType())
	body := res.Body()
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("save download: %w", err)
	}
	return &DownloadResult{Path: path, Bytes: len(body), Status: status}, nil
}

// WithInferredExtension appends the Content-Type subtype to path when path
// does not already end with it and the subtype is short.
func WithInferredExtension(path, contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.TrimSpace(mediaType)
	ext := mediaType
	if _, sub, ok := strings.Cut(mediaType, "/"); ok {
		ext = sub
	}
	if ext == "" || len(ext) >= maxInferredExtLen {
		return path
	}
	if strings.TrimPrefix(filepath.Ext(path), ".") == ext {
		return path
	}
	return path + "." + ext
}
