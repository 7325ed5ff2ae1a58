package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithInferredExtension(t *testing.T) {
	tests := []struct {
		path        string
		contentType string
		want        string
	}{
		{"logo", "image/png", "logo.png"},
		{"logo.png", "image/png", "logo.png"},
		{"page", "text/html; charset=utf-8", "page.html"},
		{"data.bin", "application/json", "data.bin.json"},
		{"drawing", "image/svg+xml", "drawing"},
		{"blob", "application/octet-stream", "blob"},
		{"noext", "", "noext"},
	}

	for _, tt := range tests {
		t.Run(tt.path+"_"+tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, WithInferredExtension(tt.path, tt.contentType))
		})
	}
}

func TestDownload_SavesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "logo")
	dl, err := Download(context.Background(), server.URL, target, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, target+".png", dl.Path)
	assert.Equal(t, 7, dl.Bytes)
	content, err := os.ReadFile(dl.Path)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(content))
}

func TestDownload_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("inline"))
	}))
	defer server.Close()

	dl, err := Download(context.Background(), server.URL, "", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "inline", string(dl.Body))
	assert.Equal(t, 200, dl.Status)
	assert.Contains(t, dl.Diagnostics, "total_time")
}

func TestDownload_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Download(context.Background(), server.URL, "", nil, nil)

	var xerr *ExchangeError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, CodeValidation, xerr.Code)
	assert.Contains(t, xerr.Message, "404")
}
