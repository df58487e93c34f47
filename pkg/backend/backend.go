// Package backend routes the agent's file-capability calls. Paths under
// /skills/ go to a read-only view scoped to the turn's visible skills;
// everything else goes to the default read/write session storage.
package backend

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrReadOnly is returned by the skills backend for any write attempt.
// Writes are rejected here, never silently redirected elsewhere.
var ErrReadOnly = errors.New("skills content is read-only")

// Backend is a file-capability surface: read, write, and glob listing.
type Backend interface {
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, content string) error
	List(ctx context.Context, pattern string) ([]string, error)
}

// Composite dispatches by path prefix to routed backends, falling back to
// the default backend for everything else.
type Composite struct {
	def      Backend
	prefixes []string
	routes   map[string]Backend
}

// NewComposite creates a composite backend. Routes map path prefixes (e.g.
// "/skills/") to backends; longer prefixes win.
func NewComposite(def Backend, routes map[string]Backend) *Composite {
	prefixes := make([]string, 0, len(routes))
	for prefix := range routes {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	return &Composite{def: def, prefixes: prefixes, routes: routes}
}

func (c *Composite) route(path string) Backend {
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(path, prefix) {
			return c.routes[prefix]
		}
	}
	return c.def
}

func (c *Composite) Read(ctx context.Context, path string) (string, error) {
	return c.route(path).Read(ctx, path)
}

func (c *Composite) Write(ctx context.Context, path, content string) error {
	return c.route(path).Write(ctx, path, content)
}

// List merges listings from the default backend and every routed backend
// whose prefix could match the pattern.
func (c *Composite) List(ctx context.Context, pattern string) ([]string, error) {
	out, err := c.def.List(ctx, pattern)
	if err != nil {
		return nil, err
	}
	for _, prefix := range c.prefixes {
		matches, err := c.routes[prefix].List(ctx, pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

// SessionStorage is the default read/write backend: ephemeral per-session
// file state kept in memory.
type SessionStorage struct {
	mu    sync.RWMutex
	files map[string]string
}

var _ Backend = (*SessionStorage)(nil)

// NewSessionStorage creates an empty session storage backend.
func NewSessionStorage() *SessionStorage {
	return &SessionStorage{files: make(map[string]string)}
}

func (s *SessionStorage) Read(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[path]
	if !ok {
		return "", errors.Errorf("file not found: %s", path)
	}
	return content, nil
}

func (s *SessionStorage) Write(_ context.Context, path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = content
	return nil
}

func (s *SessionStorage) List(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for path := range s.files {
		ok, err := matchPattern(pattern, path)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}
