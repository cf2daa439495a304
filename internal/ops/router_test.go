package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/unilinkup/internal/bot"
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	st := store.New(store.Options{Now: func() time.Time { return base }})
	st.GetOrCreateSession(1, "ana")
	for i, p := range []struct {
		org int64
		typ meetup.Type
		loc string
	}{
		{1, meetup.TypeLunch, "🍔 Food Court"},
		{2, meetup.TypeStudy, "📚 Main Library"},
		{1, meetup.TypeLunch, "🍔 Food Court"},
	} {
		st.AppendPing(meetup.Ping{
			ID:             fmt.Sprintf("p%d", i+1),
			OrganizerID:    p.org,
			OrganizerName:  fmt.Sprintf("user%d", p.org),
			Type:           p.typ,
			Location:       p.loc,
			InvitedFriends: []string{"Alex"},
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	return st
}

func do(t *testing.T, h http.Handler, method, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := NewRouter(Options{Store: seededStore(t)})
	var body map[string]string
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStats(t *testing.T) {
	t.Parallel()
	h := NewRouter(Options{
		Store:  seededStore(t),
		Errors: func() bot.ErrorStats { return bot.ErrorStats{Total: 2, ByKind: map[string]int{"invariant": 2}} },
	})
	var body statsResponse
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/stats", &body))
	assert.Equal(t, 1, body.Store.Sessions)
	assert.Equal(t, 3, body.Store.Pings)
	assert.Equal(t, 3, body.Pings.Total)
	assert.Equal(t, 2, body.Pings.Lunch)
	assert.Equal(t, "🍔 Food Court", body.Pings.PopularLocation)
	require.NotNil(t, body.Errors)
	assert.Equal(t, 2, body.Errors.Total)
}

func TestPingsFilters(t *testing.T) {
	t.Parallel()
	h := NewRouter(Options{Store: seededStore(t)})

	var all pingsResponse
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/pings", &all))
	require.Equal(t, 3, all.Count)
	assert.Equal(t, "p3", all.Pings[0].ID)

	var lunch pingsResponse
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/pings?type=lunch&limit=1", &lunch))
	require.Equal(t, 1, lunch.Count)
	assert.Equal(t, "p3", lunch.Pings[0].ID)

	var byOrg pingsResponse
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/pings?organizer=2", &byOrg))
	require.Equal(t, 1, byOrg.Count)
	assert.Equal(t, "p2", byOrg.Pings[0].ID)

	for _, target := range []string{"/pings?limit=0", "/pings?limit=x", "/pings?type=dinner", "/pings?organizer=abc"} {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, target, nil), target)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	t.Parallel()

	off := NewRouter(Options{Store: seededStore(t)})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, off, http.MethodPost, "/snapshot", nil))

	ok := NewRouter(Options{
		Store: seededStore(t),
		Snapshot: func(context.Context) (store.SaveResult, error) {
			return store.SaveResult{Path: "s.json", Sessions: 1, Pings: 3}, nil
		},
	})
	var res store.SaveResult
	require.Equal(t, http.StatusOK, do(t, ok, http.MethodPost, "/snapshot", &res))
	assert.Equal(t, 3, res.Pings)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, ok, http.MethodGet, "/snapshot", nil))

	failing := NewRouter(Options{
		Store: seededStore(t),
		Snapshot: func(context.Context) (store.SaveResult, error) {
			return store.SaveResult{}, errors.New("disk full")
		},
	})
	var body map[string]string
	require.Equal(t, http.StatusInternalServerError, do(t, failing, http.MethodPost, "/snapshot", &body))
	assert.Equal(t, "snapshot failed", body["error"])
}

func TestMetricsMountedOnlyWhenProvided(t *testing.T) {
	t.Parallel()
	without := NewRouter(Options{Store: seededStore(t)})
	assert.Equal(t, http.StatusNotFound, do(t, without, http.MethodGet, "/metrics", nil))

	with := NewRouter(Options{
		Store:   seededStore(t),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "m 1\n") }),
	})
	assert.Equal(t, http.StatusOK, do(t, with, http.MethodGet, "/metrics", nil))
}

func TestServerStartAndShutdown(t *testing.T) {
	t.Parallel()
	srv := NewServer("127.0.0.1:0", NewRouter(Options{Store: seededStore(t)}))
	require.NoError(t, srv.Start(t.Context()))

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, NewServer(":0", nil).Shutdown(ctx), "shutdown before start is a no-op")
}
