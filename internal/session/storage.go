package session

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Storage is a flat string key/value store held by the client
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStorage keeps values in a map. Safe for concurrent use.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns a store seeded with a copy of initial
func NewMemoryStorage(initial map[string]string) *MemoryStorage {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStorage{values: values}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Snapshot returns a copy of the stored values
func (m *MemoryStorage) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// CookieOptions controls the attributes of cookies written by CookieStorage
type CookieOptions struct {
	Path   string
	Domain string
	MaxAge time.Duration
	Secure bool
}

// CookieStorage exposes the browser's cookies for a single request as
// Storage. Writes are sent back as Set-Cookie headers and are also visible
// to later reads within the same request.
type CookieStorage struct {
	w       http.ResponseWriter
	r       *http.Request
	opts    CookieOptions
	pending map[string]*string
}

// NewCookieStorage wraps one request/response pair
func NewCookieStorage(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStorage {
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieStorage{
		w:       w,
		r:       r,
		opts:    opts,
		pending: make(map[string]*string),
	}
}

func (c *CookieStorage) Get(key string) (string, bool) {
	if v, ok := c.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	cookie, err := c.r.Cookie(key)
	if err != nil {
		return "", false
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		// Not written by us; hand back the raw value and let the caller decide
		return cookie.Value, true
	}
	return value, true
}

func (c *CookieStorage) Set(key, value string) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		MaxAge:   int(c.opts.MaxAge / time.Second),
		Secure:   c.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.pending[key] = &value
	return nil
}

func (c *CookieStorage) Remove(key string) error {
	if _, ok := c.Get(key); !ok {
		return nil
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		MaxAge:   -1,
		Secure:   c.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.pending[key] = nil
	return nil
}
