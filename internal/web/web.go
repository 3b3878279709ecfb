// Package web exposes the calendar assembly pipeline over HTTP: the
// populated grid for a month, note saves, presentation preferences and
// the printable exports.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/saadx01/events-calender/internal/config"
	"github.com/saadx01/events-calender/internal/export"
	"github.com/saadx01/events-calender/internal/grid"
	appLog "github.com/saadx01/events-calender/internal/log"
	"github.com/saadx01/events-calender/internal/model"
	"github.com/saadx01/events-calender/internal/notes"
	"github.com/saadx01/events-calender/internal/storage"
	"github.com/saadx01/events-calender/internal/upstream"
)

// DefaultMember is used when a request does not name a member.
const DefaultMember = "default"

const gridCacheTTL = 30 * time.Second

// Server wires the upstream client, note gateway, preferences store
// and export renderer behind the HTTP API. All collaborators are
// injected; nothing is read from ambient globals.
type Server struct {
	cfg      *config.Config
	upstream *upstream.Client
	gateway  *notes.Gateway
	prefs    *storage.Store
	renderer export.Renderer
	mux      *http.ServeMux

	payloadMu sync.RWMutex
	payload   *upstream.Payload

	gridMu    sync.RWMutex
	gridCache map[string]*gridCacheEntry
}

type gridCacheEntry struct {
	populated grid.Populated
	updatedAt time.Time
}

// NewServer constructs a Server.
func NewServer(cfg *config.Config, up *upstream.Client, gw *notes.Gateway, prefs *storage.Store, renderer export.Renderer) *Server {
	s := &Server{
		cfg:       cfg,
		upstream:  up,
		gateway:   gw,
		prefs:     prefs,
		renderer:  renderer,
		mux:       http.NewServeMux(),
		gridCache: make(map[string]*gridCacheEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Renderer exposes the configured export renderer for one-shot use.
func (s *Server) Renderer() export.Renderer {
	return s.renderer
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/calendar", s.handleCalendar)
	s.mux.HandleFunc("/api/notes", s.handleNotes)
	s.mux.HandleFunc("/api/prefs", s.handlePrefs)
	s.mux.HandleFunc("/api/background", s.handleBackground)
	s.mux.HandleFunc("/api/export/pdf", s.handleExportDocument(export.FormatPDF))
	s.mux.HandleFunc("/api/export/word", s.handleExportDocument(export.FormatWord))
	s.mux.HandleFunc("/api/export/ics", s.handleExportICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Refresh fetches the upstream payload and reseeds the note gateway.
// It is called by the cron loop and lazily on first use. A fetch
// failure keeps the previous payload (last-known-good).
func (s *Server) Refresh(ctx context.Context) error {
	if !s.cfg.HasUpstream() {
		appLog.Warn("upstream root URL not configured; calendar data disabled")
		return nil
	}

	payload, err := s.upstream.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh upstream: %w", err)
	}

	s.payloadMu.Lock()
	s.payload = &payload
	s.payloadMu.Unlock()

	s.gateway.Seed(payload.MemberEvents)
	s.invalidateGrids()

	appLog.Info("upstream refreshed",
		"activities", len(payload.Activities),
		"custom_events", len(payload.CustomEvents),
		"member_events", len(payload.MemberEvents),
	)
	return nil
}

func (s *Server) currentPayload(ctx context.Context) upstream.Payload {
	s.payloadMu.RLock()
	p := s.payload
	s.payloadMu.RUnlock()
	if p != nil {
		return *p
	}

	if err := s.Refresh(ctx); err != nil {
		appLog.Error("lazy upstream refresh failed", err)
		return upstream.Payload{}
	}

	s.payloadMu.RLock()
	defer s.payloadMu.RUnlock()
	if s.payload == nil {
		return upstream.Payload{}
	}
	return *s.payload
}

func (s *Server) invalidateGrids() {
	s.gridMu.Lock()
	s.gridCache = make(map[string]*gridCacheEntry)
	s.gridMu.Unlock()
}

// BuildGrid runs the full assembly pipeline for one view and member:
// normalize, filter, aggregate, populate.
func (s *Server) BuildGrid(ctx context.Context, view model.ViewMonth, member string) (grid.Populated, error) {
	view = view.Normalized()
	key := fmt.Sprintf("%04d-%02d/%s", view.Year, int(view.Month), member)

	s.gridMu.RLock()
	entry := s.gridCache[key]
	s.gridMu.RUnlock()
	if entry != nil && time.Since(entry.updatedAt) < gridCacheTTL {
		return entry.populated, nil
	}

	prefs, err := s.prefs.Get(member)
	if err != nil {
		return grid.Populated{}, err
	}

	payload := s.currentPayload(ctx)

	records := payload.EventRecords(view)
	records = append(records, s.gateway.Records()...)

	events := grid.NormalizeAll(records, view)
	events = grid.Filter(events, prefs)
	byDate := grid.Aggregate(events)

	bg := prefs.BgImage
	if bg == "" {
		bg = payload.CalendarBg
	}

	populated := grid.Populate(grid.ComputeLayout(view), byDate, grid.PresentationOptions{
		BgImage:  bg,
		FontSize: prefs.FontSize,
	})

	s.gridMu.Lock()
	s.gridCache[key] = &gridCacheEntry{populated: populated, updatedAt: time.Now()}
	s.gridMu.Unlock()

	return populated, nil
}

// handleCalendar returns the populated grid for a month.
//
// GET /api/calendar?year=2025&month=7&member=alice
//
// year/month default to the current month in the configured timezone.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	view, member := s.viewFromQuery(r)
	populated, err := s.BuildGrid(r.Context(), view, member)
	if err != nil {
		appLog.Error("calendar build failed", err, "view", view.String())
		writeError(w, http.StatusBadGateway, "failed to build calendar")
		return
	}

	writeJSON(w, http.StatusOK, populated)
}

type noteRequest struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

type noteResponse struct {
	RemoteID *string `json:"remote_id"`
}

// handleNotes saves one note.
//
// POST /api/notes {"date": "2025-07-10", "text": "hello"}
//
// An empty text deletes a previously stored note. The response carries
// the resulting remote id, or null when the date is untracked.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.gateway.Save(r.Context(), req.Date, req.Text)
	if err != nil {
		if errors.Is(err, notes.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "note persistence is not configured")
			return
		}
		appLog.Error("note save failed", err, "date", req.Date)
		writeError(w, http.StatusBadGateway, "failed to save note: "+err.Error())
		return
	}

	s.invalidateGrids()

	resp := noteResponse{}
	if id != "" {
		resp.RemoteID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePrefs reads or replaces a member's presentation preferences.
func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	member := r.URL.Query().Get("member")
	if member == "" {
		member = DefaultMember
	}

	switch r.Method {
	case http.MethodGet:
		prefs, err := s.prefs.Get(member)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load preferences")
			return
		}
		writeJSON(w, http.StatusOK, prefs)

	case http.MethodPut:
		var prefs model.Preferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		prefs.Member = member
		if err := s.prefs.Put(prefs); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.invalidateGrids()
		writeJSON(w, http.StatusOK, prefs)

	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or PUT")
	}
}

// handleBackground uploads a member background image to the remote
// media endpoint and stores the returned path in the member's
// preferences.
func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if !s.cfg.CanWrite() {
		writeError(w, http.StatusServiceUnavailable, "background upload is not configured")
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	member := r.FormValue("member")
	if member == "" {
		member = DefaultMember
	}

	path, err := s.upstream.UploadBackground(r.Context(), header.Filename, file, s.cfg.RestNonce)
	if err != nil {
		appLog.Error("background upload failed", err)
		writeError(w, http.StatusBadGateway, "background upload failed")
		return
	}

	prefs, err := s.prefs.Get(member)
	if err == nil {
		prefs.BgImage = path
		if putErr := s.prefs.Put(prefs); putErr != nil {
			appLog.Error("storing background preference failed", putErr, "member", member)
		}
	}
	s.invalidateGrids()

	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// handleExportDocument serves the printable document for a month.
func (s *Server) handleExportDocument(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET only")
			return
		}

		view, member := s.viewFromQuery(r)
		populated, err := s.BuildGrid(r.Context(), view, member)
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to build calendar")
			return
		}

		doc, contentType, err := s.renderer.Render(r.Context(), populated, format)
		if err != nil {
			appLog.Error("export render failed", err, "format", string(format), "view", view.String())
			writeError(w, http.StatusBadGateway, "export failed: "+err.Error())
			return
		}

		name := fmt.Sprintf("calendar-%s-%d.%s", strings.ToLower(view.Month.String()), view.Year, extensionFor(format))
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	}
}

// handleExportICS serves the visible month as an iCalendar feed.
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	view, member := s.viewFromQuery(r)
	populated, err := s.BuildGrid(r.Context(), view, member)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to build calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.RenderICS(populated)))
}

func (s *Server) viewFromQuery(r *http.Request) (model.ViewMonth, string) {
	loc := resolveLocationOrLocal(s.cfg.Timezone)
	now := time.Now().In(loc)

	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := parseIntDefault(q.Get("month"), int(now.Month()))

	member := q.Get("member")
	if member == "" {
		member = DefaultMember
	}

	return model.ViewMonth{Year: year, Month: time.Month(month)}.Normalized(), member
}

func extensionFor(format export.Format) string {
	if format == export.FormatWord {
		return "docx"
	}
	return "pdf"
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
