// Package upstream talks to the remote WordPress REST API that feeds
// the calendar: the search endpoint for activities, admin-curated
// custom events and member notes, and the media endpoint for
// background uploads.
package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/saadx01/events-calender/internal/grid"
	appLog "github.com/saadx01/events-calender/internal/log"
	"github.com/saadx01/events-calender/internal/model"
)

// SearchPath is the calendar data endpoint relative to the configured
// root URL.
const SearchPath = "/wp-json/activities/v1/search"

// Activity is a site-wide scheduled activity record.
type Activity struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Link  string `json:"link"`
	Color string `json:"color"`
}

// CustomEvent is an admin-curated event. RRule is optional; when set,
// the event recurs and is expanded into the displayed month.
type CustomEvent struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Color    string `json:"color"`
	Category string `json:"category"`
	RRule    string `json:"rrule,omitempty"`
}

// MemberEvent is a member-private note as stored remotely.
type MemberEvent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Payload is the decoded calendar data response.
type Payload struct {
	Activities   []Activity
	CustomEvents []CustomEvent
	MemberEvents []MemberEvent
	CalendarBg   string
}

// Records flattens the payload into the normalizer's tagged union, in
// the canonical arrival order: activities, then custom events (with
// recurrences expanded into the view month), then notes.
func (p Payload) Records(view model.ViewMonth) []grid.Record {
	recs := p.EventRecords(view)
	for _, me := range p.MemberEvents {
		recs = append(recs, grid.Record{
			Kind:  model.KindNote,
			Title: me.Title,
			Date:  me.Date,
		})
	}
	return recs
}

// EventRecords flattens activities and custom events only. Callers that
// track notes through the gateway use this and append the gateway's
// records instead of the payload's possibly stale member events.
func (p Payload) EventRecords(view model.ViewMonth) []grid.Record {
	recs := make([]grid.Record, 0, len(p.Activities)+len(p.CustomEvents))

	for _, a := range p.Activities {
		recs = append(recs, grid.Record{
			Kind:  model.KindActivity,
			Title: a.Name,
			Date:  a.Date,
			Color: a.Color,
		})
	}
	for _, ce := range p.CustomEvents {
		for _, occ := range ExpandCustom(ce, view) {
			recs = append(recs, grid.Record{
				Kind:     model.KindCustom,
				Title:    occ.Title,
				Date:     occ.Date,
				Color:    occ.Color,
				Category: occ.Category,
			})
		}
	}

	return recs
}

// cacheMeta holds HTTP cache metadata for the search endpoint.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Client fetches calendar data with a disk-backed conditional-GET
// cache. On network failure it falls back to the last cached body, so
// the calendar keeps its last-known-good state.
type Client struct {
	rootURL  string
	client   *http.Client
	cacheDir string
}

// NewClient creates a Client. rootURL is the remote site root; cacheDir
// stores the cached response and its metadata.
func NewClient(rootURL, cacheDir string) *Client {
	if cacheDir == "" {
		cacheDir = "./var/upstream-cache"
	}
	return &Client{
		rootURL:  strings.TrimRight(rootURL, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch retrieves and decodes the calendar data payload.
func (c *Client) Fetch(ctx context.Context) (Payload, error) {
	body, err := c.fetchBody(ctx)
	if err != nil {
		return Payload{}, err
	}
	return DecodePayload(body), nil
}

func (c *Client) fetchBody(ctx context.Context) ([]byte, error) {
	if c.rootURL == "" {
		return nil, errors.New("upstream root URL is not configured")
	}

	url := c.rootURL + SearchPath
	cachePath := filepath.Join(c.cacheDir, cacheKey(url))
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, err
	}

	meta, _ := loadMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.json"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("upstream fetch failed, using cached body", err)
			return cachedBody, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		newMeta := cacheMeta{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("upstream cache save failed", err)
		}
		appLog.Info("upstream fetch ok", "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errors.New("304 Not Modified but no cached body")
		}
		appLog.Debug("upstream not modified, using cache")
		return cachedBody, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("upstream non-OK status, using cached body", errors.New(resp.Status))
			return cachedBody, nil
		}
		return nil, errors.New("upstream fetch: " + resp.Status)
	}
}

// DecodePayload decodes the search response with per-source isolation:
// a malformed section (or a malformed element inside one) drops only
// itself, never the other sources.
func DecodePayload(body []byte) Payload {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(body, &sections); err != nil {
		appLog.Error("upstream payload is not an object", err)
		return Payload{}
	}

	var p Payload
	p.Activities = decodeSection[Activity](sections["activities"], "activities")
	p.CustomEvents = decodeSection[CustomEvent](sections["calendar_custom_events"], "calendar_custom_events")
	p.MemberEvents = decodeSection[MemberEvent](sections["member_events"], "member_events")
	if raw, ok := sections["calendar_bg"]; ok {
		if err := json.Unmarshal(raw, &p.CalendarBg); err != nil {
			appLog.Error("upstream calendar_bg malformed", err)
		}
	}
	return p
}

func decodeSection[T any](raw json.RawMessage, name string) []T {
	if len(raw) == 0 {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		appLog.Error("upstream section is not an array", err, "section", name)
		return nil
	}
	out := make([]T, 0, len(elems))
	for i, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			appLog.Error("skipping malformed upstream record", err, "section", name, "index", i)
			continue
		}
		out = append(out, v)
	}
	return out
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8])
}

func loadMeta(cachePath string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheMeta, body []byte) error {
	// Body first, so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
