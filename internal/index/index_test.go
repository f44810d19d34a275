package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDocumentOCRPostsPayload(t *testing.T) {
	var gotPath string
	var gotBody ocrDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	text := "hello"
	require.NoError(t, c.AddDocumentOCR(context.Background(), "blob-1", &text, "eng"))
	assert.Equal(t, "/blobs/blob-1/ocr", gotPath)
	assert.Equal(t, "eng", gotBody.Language)
	require.NotNil(t, gotBody.Text)
	assert.Equal(t, "hello", *gotBody.Text)
}

func TestAddDocumentOCRAbsentText(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	require.NoError(t, c.AddDocumentOCR(context.Background(), "blob-1", nil, "eng"))
	_, present := raw["text"]
	assert.False(t, present, "absent text is omitted, not sent as empty")
}

func TestIndexCallTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 20*time.Millisecond)
	err := c.SetProgressNote(context.Background(), "blob-1", "ocr", "page 3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestIndexErrorStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	err := c.AddDocumentOCR(context.Background(), "blob-1", nil, "eng")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
