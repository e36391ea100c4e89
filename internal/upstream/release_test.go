package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firepit-chat/firepit/internal/apicache"
	_ "github.com/firepit-chat/firepit/internal/testing/guard"
	"github.com/firepit-chat/firepit/internal/upstream"
)

func TestLatestCollapsesConcurrentChecks(t *testing.T) {
	var hits int32
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"1.4.2","published_at":"2026-08-01T00:00:00Z","url":"https://releases.firepit.chat/1.4.2"}`))
	}))
	defer feed.Close()

	client := upstream.NewReleaseClient(feed.Client(), feed.URL, apicache.New(), time.Minute)

	const callers = 6
	releases := make([]upstream.Release, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			releases[i], errs[i] = client.Latest(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "concurrent checks must share one fetch")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "1.4.2", releases[i].Version)
	}

	// A follow-up call is served from cache.
	release, err := client.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", release.Version)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLatestUpstreamError(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer feed.Close()

	client := upstream.NewReleaseClient(feed.Client(), feed.URL, apicache.New(), time.Minute)

	_, err := client.Latest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
