package worker

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher returns canned responses keyed by URL path, and can be
// flipped offline to simulate a dead network.
type scriptedFetcher struct {
	responses map[string]*Response
	calls     []string
	offline   bool
}

func (f *scriptedFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	f.calls = append(f.calls, req.URL.Path)
	if f.offline {
		return nil, errors.New("network unreachable")
	}
	if resp, ok := f.responses[req.URL.Path]; ok {
		return resp.Clone(), nil
	}
	return &Response{StatusCode: http.StatusNotFound, Status: "Not Found", Type: "basic", Header: http.Header{}}, nil
}

func okResponse(body string) *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Type:       "basic",
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       []byte(body),
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func testWorkerConfig(t *testing.T) Config {
	return Config{
		StaticCacheName:  "dating-app-static-v2",
		DynamicCacheName: "dating-app-dynamic-v2",
		Precache:         []string{"/", "/offline.html", "/icon.svg"},
		Origin:           mustParseURL(t, "https://app.example"),
		APIPrefix:        "/api/",
		OfflinePath:      "/offline.html",
	}
}

func testFetcher() *scriptedFetcher {
	return &scriptedFetcher{responses: map[string]*Response{
		"/":             okResponse("<html>home</html>"),
		"/offline.html": okResponse("<html>offline</html>"),
		"/icon.svg":     okResponse("<svg/>"),
	}}
}

func TestInstallPrecachesAssets(t *testing.T) {
	fetcher := testFetcher()
	w := New(testWorkerConfig(t), NewCacheStore(), fetcher)

	require.NoError(t, w.Install(context.Background()))
	assert.Equal(t, Installed, w.State())
	assert.Equal(t, 3, w.store.Len("dating-app-static-v2"))
	assert.Len(t, fetcher.calls, 3)
}

func TestInstallAbortsOnMissingAsset(t *testing.T) {
	fetcher := testFetcher()
	delete(fetcher.responses, "/icon.svg")
	store := NewCacheStore()
	w := New(testWorkerConfig(t), store, fetcher)

	err := w.Install(context.Background())
	require.Error(t, err)
	assert.Equal(t, Redundant, w.State())
	// Nothing is cached when any precache asset fails.
	assert.False(t, store.Has("dating-app-static-v2"))
}

func TestInstallAbortsOnNetworkError(t *testing.T) {
	fetcher := testFetcher()
	fetcher.offline = true
	w := New(testWorkerConfig(t), NewCacheStore(), fetcher)

	require.Error(t, w.Install(context.Background()))
	assert.Equal(t, Redundant, w.State())
}

func TestInstallOnlyFromUninstalled(t *testing.T) {
	w := New(testWorkerConfig(t), NewCacheStore(), testFetcher())
	require.NoError(t, w.Install(context.Background()))
	require.Error(t, w.Install(context.Background()))
}

func TestActivatePurgesForeignPartitions(t *testing.T) {
	store := NewCacheStore()
	store.Put("dating-app-static-v1", "GET https://app.example/", okResponse("stale"))
	store.Put("dating-app-dynamic-v1", "GET https://app.example/old.js", okResponse("stale"))

	w := New(testWorkerConfig(t), store, testFetcher())
	require.NoError(t, w.Install(context.Background()))
	require.NoError(t, w.Activate(context.Background()))

	assert.Equal(t, Active, w.State())
	assert.False(t, store.Has("dating-app-static-v1"))
	assert.False(t, store.Has("dating-app-dynamic-v1"))
	assert.True(t, store.Has("dating-app-static-v2"))
	assert.True(t, store.Has("dating-app-dynamic-v2"))
}

func TestActivateRequiresInstall(t *testing.T) {
	w := New(testWorkerConfig(t), NewCacheStore(), testFetcher())
	require.Error(t, w.Activate(context.Background()))
}

func TestSkipWaitingActivates(t *testing.T) {
	w := New(testWorkerConfig(t), NewCacheStore(), testFetcher())
	require.NoError(t, w.Install(context.Background()))

	require.NoError(t, w.HandleMessage(Message{Type: "NOISE"}))
	assert.Equal(t, Installed, w.State())

	require.NoError(t, w.HandleMessage(Message{Type: SkipWaitingMessage}))
	assert.Equal(t, Active, w.State())
}

func TestSyncOnlyHandlesKnownTag(t *testing.T) {
	w := New(testWorkerConfig(t), NewCacheStore(), testFetcher())
	assert.NoError(t, w.HandleSync(context.Background(), "someone-elses-tag"))
	assert.NoError(t, w.HandleSync(context.Background(), SyncTag))
}
