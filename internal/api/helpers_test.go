package api

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/store"
)

// fakeAPI records hits per path and serves handlers registered by the test.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server
	mux *http.ServeMux

	mu   sync.Mutex
	hits map[string]int
	seq  []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, mux: http.NewServeMux(), hits: map[string]int{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.seq = append(f.seq, r.URL.Path)
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) handle(path string, h http.HandlerFunc) {
	f.mux.HandleFunc(path, h)
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) sequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seq...)
}

func (f *fakeAPI) client() *Client {
	return NewClient(Options{
		Endpoints:  NewEndpoints(f.srv.URL+"/status", f.srv.URL, f.srv.URL),
		HTTPClient: f.srv.Client(),
		DeviceID:   "device-1",
	})
}

// fixedClock returns a settable clock for session expiry tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(f *fakeAPI, clock *fixedClock) (*SessionManager, *store.MemoryTokenStore) {
	tokens := &store.MemoryTokenStore{}
	m := NewSessionManager(f.client(), tokens, nil)
	m.now = clock.Now
	return m, tokens
}

func loginBody(token, refresh string, expiresIn int64) model.LoginResponse {
	return model.LoginResponse{Token: token, RefreshToken: refresh, ExpiresIn: expiresIn}
}

func subscribedUser(email string) model.User {
	return model.User{
		Email:    email,
		Embedded: model.UserEmbedded{SubscriptionInfo: &model.SubscriptionInfo{ValidSubscription: true}},
	}
}
