// Package notes synchronizes member-private per-day notes with the
// remote store. One note per date; create/update/delete intent is
// derived from the state transition, and local state only moves after
// the remote call has confirmed.
package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/saadx01/events-calender/internal/grid"
	appLog "github.com/saadx01/events-calender/internal/log"
	"github.com/saadx01/events-calender/internal/model"
	"github.com/saadx01/events-calender/internal/upstream"
)

// StorePath is the per-note REST resource collection relative to the
// configured root URL.
const StorePath = "/wp-json/wp/v2/member_events"

// ErrDisabled is returned when the gateway has no root URL or nonce.
// The feature is off for the session; nothing crashed.
var ErrDisabled = errors.New("note persistence is not configured")

// Gateway owns the local note map and the remote synchronization.
// Saves for the same date are serialized; saves for different dates
// proceed in parallel.
type Gateway struct {
	rootURL string
	nonce   string
	client  *http.Client

	mu    sync.Mutex
	notes map[string]model.NoteRecord
	locks map[string]*sync.Mutex
}

// NewGateway creates a Gateway. An empty rootURL or nonce leaves the
// gateway disabled: Save returns ErrDisabled, reads still work.
func NewGateway(rootURL, nonce string) *Gateway {
	g := &Gateway{
		rootURL: strings.TrimRight(rootURL, "/"),
		nonce:   nonce,
		client:  &http.Client{Timeout: 15 * time.Second},
		notes:   make(map[string]model.NoteRecord),
		locks:   make(map[string]*sync.Mutex),
	}
	if !g.Enabled() {
		appLog.Warn("note persistence disabled", "have_root_url", rootURL != "", "have_nonce", nonce != "")
	}
	return g
}

// Enabled reports whether remote note writes are possible.
func (g *Gateway) Enabled() bool {
	return g.rootURL != "" && g.nonce != ""
}

// Seed replaces the local map with the notes the upstream payload
// reported. Records with unusable dates are skipped.
func (g *Gateway) Seed(events []upstream.MemberEvent) {
	fresh := make(map[string]model.NoteRecord, len(events))
	for _, e := range events {
		iso, err := grid.NormalizeDate(e.Date)
		if err != nil {
			appLog.Debug("skipping remote note with bad date", "date", e.Date)
			continue
		}
		fresh[iso] = model.NoteRecord{
			ISODate:  iso,
			Text:     e.Title,
			RemoteID: strconv.FormatInt(e.ID, 10),
		}
	}

	g.mu.Lock()
	g.notes = fresh
	g.mu.Unlock()
}

// Note returns the tracked note for a date, if any.
func (g *Gateway) Note(isoDate string) (model.NoteRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.notes[isoDate]
	return rec, ok
}

// Records returns all tracked notes as normalizer input, ordered by
// date so downstream output is deterministic.
func (g *Gateway) Records() []grid.Record {
	g.mu.Lock()
	recs := make([]grid.Record, 0, len(g.notes))
	for _, rec := range g.notes {
		recs = append(recs, grid.Record{
			Kind:  model.KindNote,
			Title: rec.Text,
			Date:  rec.ISODate,
		})
	}
	g.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })
	return recs
}

// Save synchronizes the note for isoDate to text and returns the
// resulting remote id ("" when the date ends up untracked).
//
//	no remote id, text non-empty  -> create
//	no remote id, text empty      -> no-op
//	remote id,    text non-empty  -> update
//	remote id,    text empty      -> delete
//
// The local map is only updated after the remote call succeeds; on
// error the previous state is untouched and the error is returned for
// the caller to surface.
func (g *Gateway) Save(ctx context.Context, isoDate, text string) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	if _, err := time.Parse("2006-01-02", isoDate); err != nil {
		return "", fmt.Errorf("save note: bad date %q", isoDate)
	}

	l := g.lockFor(isoDate)
	l.Lock()
	defer l.Unlock()

	g.mu.Lock()
	rec, tracked := g.notes[isoDate]
	g.mu.Unlock()

	switch {
	case !tracked && text == "":
		// Untracked and still empty; nothing to do.
		return "", nil

	case !tracked:
		id, err := g.create(ctx, isoDate, text)
		if err != nil {
			return "", err
		}
		g.mu.Lock()
		g.notes[isoDate] = model.NoteRecord{ISODate: isoDate, Text: text, RemoteID: id}
		g.mu.Unlock()
		appLog.Info("note created", "date", isoDate, "remote_id", id)
		return id, nil

	case text == "":
		if err := g.delete(ctx, rec.RemoteID); err != nil {
			return rec.RemoteID, err
		}
		g.mu.Lock()
		delete(g.notes, isoDate)
		g.mu.Unlock()
		appLog.Info("note deleted", "date", isoDate, "remote_id", rec.RemoteID)
		return "", nil

	case text == rec.Text:
		// No change; skip the round trip.
		return rec.RemoteID, nil

	default:
		if err := g.update(ctx, rec.RemoteID, isoDate, text); err != nil {
			return rec.RemoteID, err
		}
		g.mu.Lock()
		rec.Text = text
		g.notes[isoDate] = rec
		g.mu.Unlock()
		appLog.Info("note updated", "date", isoDate, "remote_id", rec.RemoteID)
		return rec.RemoteID, nil
	}
}

func (g *Gateway) lockFor(isoDate string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[isoDate]
	if !ok {
		l = &sync.Mutex{}
		g.locks[isoDate] = l
	}
	return l
}

type noteBody struct {
	Title  string   `json:"title"`
	Status string   `json:"status,omitempty"`
	ACF    *noteACF `json:"acf,omitempty"`
}

type noteACF struct {
	MemberEventDate string `json:"member_event_date"`
}

func (g *Gateway) create(ctx context.Context, isoDate, text string) (string, error) {
	body := noteBody{
		Title:  text,
		Status: "publish",
		ACF:    &noteACF{MemberEventDate: isoDate},
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := g.post(ctx, g.rootURL+StorePath, body, &resp); err != nil {
		return "", fmt.Errorf("create note: %w", err)
	}
	if resp.ID == 0 {
		return "", errors.New("create note: store returned no id")
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

func (g *Gateway) update(ctx context.Context, remoteID, isoDate, text string) error {
	body := noteBody{
		Title:  text,
		Status: "publish",
		ACF:    &noteACF{MemberEventDate: isoDate},
	}
	if err := g.post(ctx, g.rootURL+StorePath+"/"+remoteID, body, nil); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

func (g *Gateway) delete(ctx context.Context, remoteID string) error {
	// The store treats an empty title as removal.
	if err := g.post(ctx, g.rootURL+StorePath+"/"+remoteID, noteBody{Title: ""}, nil); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (g *Gateway) post(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-WP-Nonce", g.nonce)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
