package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadPath is the background image upload endpoint relative to the
// configured root URL.
const UploadPath = "/wp-json/activities/v1/upload-bg"

// UploadBackground submits a member-chosen background image to the
// remote media endpoint and returns the stored path. The nonce
// authorizes the write; an empty nonce is a configuration error.
func (c *Client) UploadBackground(ctx context.Context, filename string, file io.Reader, nonce string) (string, error) {
	if c.rootURL == "" {
		return "", errors.New("upstream root URL is not configured")
	}
	if nonce == "" {
		return "", errors.New("upload requires a nonce")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("async-upload", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := mw.WriteField("nonce", nonce); err != nil {
		return "", err
	}
	if err := mw.WriteField("compressState", "calendar_bg"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+UploadPath, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("background upload: %s", resp.Status)
	}

	var out struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("background upload: decode response: %w", err)
	}
	if out.Path == "" {
		return "", errors.New("background upload: empty path in response")
	}
	return out.Path, nil
}
