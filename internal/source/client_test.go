package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestClient() *Client {
	return NewClient(5*time.Second, "brief-test/1.0",
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithClock(func() time.Time { return testNow }),
	)
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

var testLog = logging.Discard()

func TestClient_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "brief-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	})

	data, err := newTestClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_GivesUpAfterThreeTries(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := newTestClient().Get(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newTestClient().Get(context.Background(), srv.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_GetLimited(t *testing.T) {
	t.Parallel()

	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	})

	_, err := newTestClient().GetLimited(context.Background(), srv.URL, 10)
	require.ErrorIs(t, err, ErrTooLarge)

	data, err := newTestClient().GetLimited(context.Background(), srv.URL, 100)
	require.NoError(t, err)
	assert.Len(t, data, 100)
}

func TestClient_GetJSON(t *testing.T) {
	t.Parallel()

	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	})

	var ids []int
	require.NoError(t, newTestClient().GetJSON(context.Background(), srv.URL, &ids))
	assert.Equal(t, []int{1, 2, 3}, ids)

	bad := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{`))
	})
	assert.Error(t, newTestClient().GetJSON(context.Background(), bad.URL, &ids))
}
