package supabase_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/polluterofminds/parallax-server/internal/models"
	"github.com/polluterofminds/parallax-server/internal/supabase"
	"github.com/polluterofminds/parallax-server/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePostgREST serves the episodes table from memory.
type fakePostgREST struct {
	mu   sync.Mutex
	rows []map[string]any
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.HasSuffix(r.URL.Path, "/episodes") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Range", "0-0/"+strconv.Itoa(len(f.rows)))
		var latest []map[string]any
		if len(f.rows) > 0 {
			latest = append(latest, f.rows[len(f.rows)-1])
		} else {
			latest = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(latest)
	case http.MethodPost:
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, row)
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestEpisodeStore(t *testing.T) {
	t.Parallel()
	fake := &fakePostgREST{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := supabase.NewEpisodeStore(server.URL, "service-role-key", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Latest(ctx)
	require.ErrorIs(t, err, models.ErrNoEpisode)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, models.Episode{
		CaseNumber: 7,
		CreatedAt:  created,
		Duration:   7 * 24 * time.Hour,
		CaseRef:    "ipfs://sha256-abc",
	}))
	require.Len(t, fake.rows, 1)
	assert.InDelta(t, 7, fake.rows[0]["duration"], 0)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), latest.CaseNumber)
	assert.Equal(t, "ipfs://sha256-abc", latest.CaseRef)
	assert.Equal(t, 7*24*time.Hour, latest.Duration)
	assert.True(t, created.Equal(latest.CreatedAt))
}
