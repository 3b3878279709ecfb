package export

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteRenderPDF(t *testing.T) {
	pdfBytes := []byte("%PDF-1.7 fake")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "pdf", r.URL.Query().Get("format"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		// The body must be the grid wire shape the old renderer knows.
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var wire map[string]any
		require.NoError(t, json.Unmarshal(body, &wire))
		assert.Equal(t, "July", wire["month"])
		assert.Contains(t, wire, "day1")
		assert.Contains(t, wire, "event0")
		assert.Contains(t, wire, "bg_image")
		assert.Contains(t, wire, "fontSize")

		w.Header().Set("Content-Type", MIMEPDF)
		w.Write(pdfBytes)
	}))
	defer srv.Close()

	r := NewRemoteRenderer(srv.URL)
	doc, contentType, err := r.Render(context.Background(), populatedJuly2025(t), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, MIMEPDF, contentType)
	assert.Equal(t, pdfBytes, doc)
}

func TestRemoteRenderWord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "word", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", MIMEWord)
		w.Write([]byte("PK word doc"))
	}))
	defer srv.Close()

	r := NewRemoteRenderer(srv.URL)
	_, contentType, err := r.Render(context.Background(), populatedJuly2025(t), FormatWord)
	require.NoError(t, err)
	assert.Equal(t, MIMEWord, contentType)
}

func TestRemoteRenderErrorBodySurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"template exploded"}`))
	}))
	defer srv.Close()

	r := NewRemoteRenderer(srv.URL)
	_, _, err := r.Render(context.Background(), populatedJuly2025(t), FormatPDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template exploded")
}

func TestRemoteRenderRejectsNonDocumentSuccess(t *testing.T) {
	// A 200 with a JSON body is still a failure, not a document.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	r := NewRemoteRenderer(srv.URL)
	_, _, err := r.Render(context.Background(), populatedJuly2025(t), FormatPDF)
	assert.Error(t, err)
}

func TestLocalRendererRefusesWord(t *testing.T) {
	lr := &LocalRenderer{Page: PageOptions{Width: 1080, Height: 794}}
	_, _, err := lr.Render(context.Background(), populatedJuly2025(t), FormatWord)
	assert.Error(t, err)
}

func TestFormatContentType(t *testing.T) {
	ct, err := FormatPDF.ContentType()
	require.NoError(t, err)
	assert.Equal(t, MIMEPDF, ct)

	ct, err = FormatWord.ContentType()
	require.NoError(t, err)
	assert.Equal(t, MIMEWord, ct)

	_, err = Format("html").ContentType()
	assert.Error(t, err)
}
