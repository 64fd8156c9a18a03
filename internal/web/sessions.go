package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/fdkevin0/htmlview"
)

const sessionCookieName = "htmlview_session"

// sessionEntry guards one widget session; handlers run concurrently.
type sessionEntry struct {
	mu      sync.Mutex
	session *htmlview.Session
	// seq is the highest source revision applied so far.
	seq uint64
}

// with runs fn while holding the session lock.
func (e *sessionEntry) with(fn func(s *htmlview.Session)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
}

// setSource applies source unless a newer revision already landed.
// A zero seq is unordered and always applies.
func (e *sessionEntry) setSource(seq uint64, source string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != 0 {
		if seq <= e.seq {
			return false
		}
		e.seq = seq
	}
	e.session.SetSource(source)
	return true
}

func (e *sessionEntry) revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// sessionStore keeps sessions in memory with a sliding idle expiry.
type sessionStore struct {
	cache *cache.Cache
}

func newSessionStore(ttl time.Duration) *sessionStore {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &sessionStore{cache: cache.New(ttl, cleanup)}
}

// get returns the live session for id and extends its expiry.
func (st *sessionStore) get(id string) (*sessionEntry, bool) {
	if id == "" {
		return nil, false
	}
	v, found := st.cache.Get(id)
	if !found {
		return nil, false
	}
	entry, ok := v.(*sessionEntry)
	if !ok {
		return nil, false
	}
	st.cache.Set(id, entry, cache.DefaultExpiration)
	return entry, true
}

func (st *sessionStore) create() (string, *sessionEntry) {
	id := uuid.NewString()
	entry := &sessionEntry{session: htmlview.NewSession()}
	st.cache.Set(id, entry, cache.DefaultExpiration)
	return id, entry
}

func (st *sessionStore) count() int {
	return st.cache.ItemCount()
}

// resolve returns the session bound to the request cookie, creating a new
// one (and setting the cookie) when it is missing or expired.
func (st *sessionStore) resolve(w http.ResponseWriter, r *http.Request) *sessionEntry {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if entry, ok := st.get(c.Value); ok {
			return entry
		}
	}

	id, entry := st.create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return entry
}
