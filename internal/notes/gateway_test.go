package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saadx01/events-calender/internal/upstream"
)

// storeCall records one request seen by the fake note store.
type storeCall struct {
	path  string
	title string
	date  string
}

func newFakeStore(t *testing.T) (*httptest.Server, *[]storeCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []storeCall
		next  int64 = 100
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "test-nonce", r.Header.Get("X-WP-Nonce"))

		var body struct {
			Title string `json:"title"`
			ACF   *struct {
				MemberEventDate string `json:"member_event_date"`
			} `json:"acf"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		call := storeCall{path: r.URL.Path, title: body.Title}
		if body.ACF != nil {
			call.date = body.ACF.MemberEventDate
		}
		mu.Lock()
		calls = append(calls, call)
		id := next
		if r.URL.Path == StorePath {
			next++
		}
		mu.Unlock()

		json.NewEncoder(w).Encode(map[string]any{"id": id})
	}))
	return srv, &calls
}

func TestSaveLifecycle(t *testing.T) {
	srv, calls := newFakeStore(t)
	defer srv.Close()

	g := NewGateway(srv.URL, "test-nonce")
	ctx := context.Background()

	// Create: no remote id yet, non-empty text.
	id, err := g.Save(ctx, "2025-07-10", "hello")
	require.NoError(t, err)
	assert.Equal(t, "100", id)

	rec, ok := g.Note("2025-07-10")
	require.True(t, ok)
	assert.Equal(t, "hello", rec.Text)
	assert.Equal(t, "100", rec.RemoteID)

	// Update: same date, changed text, id unchanged.
	id, err = g.Save(ctx, "2025-07-10", "hello again")
	require.NoError(t, err)
	assert.Equal(t, "100", id)

	// Unchanged text is a no-op (no extra store call).
	before := len(*calls)
	id, err = g.Save(ctx, "2025-07-10", "hello again")
	require.NoError(t, err)
	assert.Equal(t, "100", id)
	assert.Len(t, *calls, before)

	// Delete: empty text clears the remote id and untracks the date.
	id, err = g.Save(ctx, "2025-07-10", "")
	require.NoError(t, err)
	assert.Empty(t, id)
	_, ok = g.Note("2025-07-10")
	assert.False(t, ok)

	require.Len(t, *calls, 3)
	assert.Equal(t, storeCall{path: StorePath, title: "hello", date: "2025-07-10"}, (*calls)[0])
	assert.Equal(t, storeCall{path: StorePath + "/100", title: "hello again", date: "2025-07-10"}, (*calls)[1])
	assert.Equal(t, storeCall{path: StorePath + "/100", title: ""}, (*calls)[2])
}

func TestSaveEmptyUntrackedIsNoop(t *testing.T) {
	srv, calls := newFakeStore(t)
	defer srv.Close()

	g := NewGateway(srv.URL, "test-nonce")
	id, err := g.Save(context.Background(), "2025-07-11", "")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, *calls)
}

func TestSaveFailureLeavesStateUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "test-nonce")
	_, err := g.Save(context.Background(), "2025-07-12", "doomed")
	require.Error(t, err)

	_, ok := g.Note("2025-07-12")
	assert.False(t, ok, "failed create must not be applied locally")
}

func TestSaveDisabled(t *testing.T) {
	g := NewGateway("", "")
	_, err := g.Save(context.Background(), "2025-07-01", "x")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSaveRejectsBadDate(t *testing.T) {
	g := NewGateway("http://example.invalid", "n")
	_, err := g.Save(context.Background(), "2025/07/01", "x")
	assert.Error(t, err)
}

func TestSaveSerializesPerDate(t *testing.T) {
	// The store stalls the first create until the second save has had
	// a chance to start; per-date locking must keep the second save
	// from racing past and issuing a second create.
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		first := len(paths) == 0
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if first {
			<-release
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 55})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "test-nonce")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := g.Save(context.Background(), "2025-07-20", "first")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		// Give the first save a head start, then unblock it once we
		// are queued behind the per-date lock.
		_, err := g.Save(context.Background(), "2025-07-20", "second")
		assert.NoError(t, err)
	}()

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 2)
	// Exactly one create against the collection; the other save saw
	// the assigned id and targeted the per-note resource.
	var creates int
	for _, p := range paths {
		if p == StorePath {
			creates++
		}
	}
	assert.Equal(t, 1, creates)
}

func TestSeedAndRecords(t *testing.T) {
	g := NewGateway("", "")
	g.Seed([]upstream.MemberEvent{
		{ID: 2, Title: "later", Date: "2025/07/20"},
		{ID: 1, Title: "earlier", Date: "20250705"},
		{ID: 3, Title: "broken", Date: ""},
	})

	recs := g.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "2025-07-05", recs[0].Date)
	assert.Equal(t, "earlier", recs[0].Title)
	assert.Equal(t, "2025-07-20", recs[1].Date)

	rec, ok := g.Note("2025-07-05")
	require.True(t, ok)
	assert.Equal(t, "1", rec.RemoteID)
}

func TestStoreErrorMessageSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nonce expired", http.StatusForbidden)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "stale")
	_, err := g.Save(context.Background(), "2025-07-01", "x")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "nonce expired"))
}
