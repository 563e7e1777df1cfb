// Package worker models the app's service worker: its install/activate
// lifecycle, the cache-first fetch strategy with offline fallbacks, and
// the notification display logic. The same state machine backs the
// offline gateway that fronts the app origin.
package worker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// State is the worker lifecycle position.
type State int

const (
	Uninstalled State = iota
	Installing
	Installed
	Activating
	Active
	// Redundant is reached when install fails; this worker version will
	// never serve fetches.
	Redundant
)

func (s State) String() string {
	switch s {
	case Uninstalled:
		return "uninstalled"
	case Installing:
		return "installing"
	case Installed:
		return "installed"
	case Activating:
		return "activating"
	case Active:
		return "active"
	case Redundant:
		return "redundant"
	default:
		return "unknown"
	}
}

// Fetcher performs the actual network fetch for the worker.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// Config describes one worker version.
type Config struct {
	StaticCacheName  string
	DynamicCacheName string
	// Precache is the fixed list of critical asset paths cached at install.
	Precache []string
	// Origin defines which requests count as same-origin.
	Origin *url.URL
	// APIPrefix marks paths that are intercepted even cross-origin but
	// never cached.
	APIPrefix string
	// OfflinePath is the fallback page for failed navigations.
	OfflinePath string
}

// Worker is one service worker version. Lifecycle events (install,
// activate, messages) serialize under the mutex; fetches only read the
// state under it, so a hung network fetch stalls nothing but its own
// request.
type Worker struct {
	mu      sync.Mutex
	state   State
	config  Config
	store   *CacheStore
	fetcher Fetcher
}

func New(config Config, store *CacheStore, fetcher Fetcher) *Worker {
	return &Worker{config: config, store: store, fetcher: fetcher}
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Install precaches the critical assets into the static partition. The
// insert is all-or-nothing: any failed asset aborts the install and the
// worker version becomes redundant without touching the store.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Uninstalled {
		return fmt.Errorf("install from state %s", w.state)
	}
	w.state = Installing

	staged := make(map[string]*Response, len(w.config.Precache))
	for _, path := range w.config.Precache {
		req := w.precacheRequest(path)
		resp, err := w.fetcher.Fetch(ctx, req)
		if err != nil {
			w.state = Redundant
			return fmt.Errorf("precache %s: %w", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			w.state = Redundant
			return fmt.Errorf("precache %s: status %d", path, resp.StatusCode)
		}
		staged[req.Key()] = resp
	}

	w.store.Open(w.config.StaticCacheName)
	for key, resp := range staged {
		w.store.Put(w.config.StaticCacheName, key, resp)
	}
	// No waiting phase: this version supersedes the previous one eagerly.
	w.state = Installed
	log.Printf("Worker: Installed, %d assets precached into %s", len(staged), w.config.StaticCacheName)
	return nil
}

// Activate purges every cache partition that belongs to another worker
// version, then takes control of all pages. The purge completes before
// any fetch is served under this version.
func (w *Worker) Activate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activateLocked()
}

func (w *Worker) activateLocked() error {
	if w.state != Installed {
		return fmt.Errorf("activate from state %s", w.state)
	}
	w.state = Activating

	for _, name := range w.store.Names() {
		if name != w.config.StaticCacheName && name != w.config.DynamicCacheName {
			log.Printf("Worker: Deleting old cache partition %s", name)
			w.store.Delete(name)
		}
	}
	w.store.Open(w.config.DynamicCacheName)

	w.state = Active
	log.Printf("Worker: Activated, claiming clients")
	return nil
}

// HandleFetch answers one outgoing request. The second return value is
// false when the worker does not intercept the request and the caller
// should go straight to the network.
func (w *Worker) HandleFetch(ctx context.Context, req *Request) (*Response, bool) {
	// The lock only guards the state read. The cache store carries its own
	// lock, and the network fetch must not block concurrent requests.
	if w.State() != Active {
		return nil, false
	}
	// Only GET is ever intercepted.
	if req.Method != http.MethodGet {
		return nil, false
	}
	// Cross-origin requests pass through, except our own API calls.
	if !w.sameOrigin(req.URL) && !strings.HasPrefix(req.URL.Path, w.config.APIPrefix) {
		return nil, false
	}

	// Cache-first: a hit never consults the network.
	if cached, ok := w.store.Match(req.Key()); ok {
		return cached.Clone(), true
	}

	resp, err := w.fetcher.Fetch(ctx, req)
	if err != nil {
		return w.offlineFallback(req), true
	}

	if w.isCacheableResponse(resp) && w.isCacheableRequest(req) {
		// The duplicate goes to the cache, the original to the caller.
		w.store.Put(w.config.DynamicCacheName, req.Key(), resp.Clone())
	}
	return resp, true
}

// offlineFallback resolves a failed network fetch: documents get the
// precached offline page (or the root page), everything else a synthetic
// 503. No request is ever left unanswered.
func (w *Worker) offlineFallback(req *Request) *Response {
	if req.Destination == DestDocument {
		if cached, ok := w.store.Match(w.precacheRequest(w.config.OfflinePath).Key()); ok {
			return cached.Clone()
		}
		if cached, ok := w.store.Match(w.precacheRequest("/").Key()); ok {
			return cached.Clone()
		}
	}
	return &Response{
		StatusCode: http.StatusServiceUnavailable,
		Status:     "Service Unavailable",
		Type:       "basic",
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       []byte("Offline"),
	}
}

// Message is a command posted by a page to the worker.
type Message struct {
	Type string `json:"type"`
}

// SkipWaitingMessage forces a waiting worker version to activate
// immediately.
const SkipWaitingMessage = "SKIP_WAITING"

// HandleMessage processes a page command.
func (w *Worker) HandleMessage(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if msg.Type != SkipWaitingMessage {
		return nil
	}
	if w.state != Installed {
		return nil
	}
	return w.activateLocked()
}

// SyncTag is the only background sync tag the worker recognizes.
const SyncTag = "background-sync"

// HandleSync runs the background sync hook. Currently a no-op: pending
// outbound actions would be flushed here once the app has any.
func (w *Worker) HandleSync(ctx context.Context, tag string) error {
	if tag != SyncTag {
		return nil
	}
	return nil
}

func (w *Worker) sameOrigin(u *url.URL) bool {
	if w.config.Origin == nil || u.Host == "" {
		return true
	}
	return u.Scheme == w.config.Origin.Scheme && u.Host == w.config.Origin.Host
}

func (w *Worker) isCacheableResponse(resp *Response) bool {
	return resp != nil && resp.StatusCode == http.StatusOK && resp.Type == "basic"
}

// isCacheableRequest is the cacheability policy: static resource types and
// navigations are cached, API calls never are.
func (w *Worker) isCacheableRequest(req *Request) bool {
	if strings.HasPrefix(req.URL.Path, w.config.APIPrefix) {
		return false
	}
	switch req.Destination {
	case DestScript, DestStyle, DestImage, DestFont, DestDocument:
		return true
	}
	return false
}

func (w *Worker) precacheRequest(path string) *Request {
	u := &url.URL{Path: path}
	if w.config.Origin != nil {
		u = w.config.Origin.ResolveReference(u)
	}
	return &Request{Method: http.MethodGet, URL: u, Destination: DestDocument}
}
