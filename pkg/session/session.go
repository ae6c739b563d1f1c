package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Session is the authentication state of the current user.
// An empty Token means nobody is logged in.
type Session struct {
	Token    string `yaml:"token"`
	Identity string `yaml:"identity,omitempty"`
}

// ResolvedIdentity returns Identity, falling back to the subject encoded in
// the token when Identity was never set.
func (s Session) ResolvedIdentity() string {
	if s.Identity != "" || s.Token == "" {
		return s.Identity
	}
	info, err := Inspect(s.Token)
	if err != nil {
		return ""
	}
	return info.Subject
}

// Store is the session accessor handed to the request pipeline.
// Implementations must be safe for concurrent use.
type Store interface {
	// Token returns the current token, or "" when logged out.
	Token() string
	// Current returns a snapshot of the whole session.
	Current() Session
	// Set replaces the session (login).
	Set(Session) error
	// Clear removes the session (logout).
	Clear() error
}

// Memory is an in-process Store.
type Memory struct {
	mu  sync.RWMutex
	cur Session
}

// NewMemory returns a Memory store seeded with s.
func NewMemory(s Session) *Memory {
	return &Memory{cur: s}
}

func (m *Memory) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Token
}

func (m *Memory) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

func (m *Memory) Set(s Session) error {
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear() error {
	return m.Set(Session{})
}

// File is a Store persisted as a small YAML document. The file is read once
// by OpenFile and rewritten on every Set.
type File struct {
	path string

	mu  sync.RWMutex
	cur Session
}

// OpenFile loads the session stored at path. A missing file is not an error;
// it yields an empty (logged-out) session.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.cur); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", path, err)
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) Token() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cur.Token
}

func (f *File) Current() Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cur
}

// Set writes s to disk with owner-only permissions, then swaps it in.
func (f *File) Set(s Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write file: %w", err)
	}
	f.mu.Lock()
	f.cur = s
	f.mu.Unlock()
	return nil
}

// Clear deletes the backing file.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove file: %w", err)
	}
	f.mu.Lock()
	f.cur = Session{}
	f.mu.Unlock()
	return nil
}

// EnvOverlay wraps a Store so that a non-empty environment variable takes
// precedence over the stored token. Writes go to the wrapped store.
type EnvOverlay struct {
	Store
	Var string
}

func (e EnvOverlay) Token() string {
	if e.Var != "" {
		if v := os.Getenv(e.Var); v != "" {
			return v
		}
	}
	return e.Store.Token()
}

func (e EnvOverlay) Current() Session {
	s := e.Store.Current()
	s.Token = e.Token()
	return s
}
