package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/saadx01/events-calender/internal/grid"
)

// RemoteRenderer submits the populated grid to a document-generation
// service and returns the binary it produces. The request body is the
// grid's renderer wire format; the service answers with PDF or Word
// bytes on success and a JSON or text error body on failure.
type RemoteRenderer struct {
	URL    string
	client *http.Client
}

// NewRemoteRenderer creates a RemoteRenderer for the given endpoint.
func NewRemoteRenderer(url string) *RemoteRenderer {
	return &RemoteRenderer{
		URL:    url,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *RemoteRenderer) Render(ctx context.Context, p grid.Populated, format Format) ([]byte, string, error) {
	wantType, err := format.ContentType()
	if err != nil {
		return nil, "", err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, "", fmt.Errorf("remote render: encode grid: %w", err)
	}

	url := r.URL
	if strings.Contains(url, "?") {
		url += "&format=" + string(format)
	} else {
		url += "?format=" + string(format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", wantType)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("remote render: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode != http.StatusOK || !isDocumentType(contentType) {
		// Error bodies are JSON or text; surface them, capped.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("remote render: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("remote render: read document: %w", err)
	}
	if len(doc) == 0 {
		return nil, "", fmt.Errorf("remote render: empty document body")
	}
	return doc, contentType, nil
}

func isDocumentType(contentType string) bool {
	ct := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	return ct == MIMEPDF || ct == MIMEWord
}
