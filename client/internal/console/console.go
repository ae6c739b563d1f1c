// Package console implements the request Navigator and Notifier for a
// terminal: redirects and error notifications are printed for the user and
// logged, and the last redirect is remembered so the CLI can react to it.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Redirect is a navigation request issued by the pipeline.
type Redirect struct {
	Path   string
	Reason string
}

// Console writes user-facing messages to w. Safe for concurrent use.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	loading  bool
	last     *Redirect
	errCount int
}

// New returns a Console writing to w. Loading messages are printed only
// when showLoading is set.
func New(w io.Writer, showLoading bool) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w, loading: showLoading}
}

// GoTo implements request.Navigator. A terminal cannot change pages, so the
// redirect becomes a hint telling the user where to go next.
func (c *Console) GoTo(path, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = &Redirect{Path: path, Reason: reason}
	fmt.Fprintf(c.w, "%s (redirect to %s)\n", reason, path)
	slog.Info("console: redirect", "path", path, "reason", reason)
}

// Error implements request.Notifier.
func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errCount++
	fmt.Fprintf(c.w, "error: %s\n", msg)
	slog.Debug("console: notify", "msg", msg)
}

// Loading implements request.Notifier.
func (c *Console) Loading(msg string) {
	if !c.loading {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s...\n", msg)
}

// LastRedirect returns the most recent redirect, if any.
func (c *Console) LastRedirect() (Redirect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Redirect{}, false
	}
	return *c.last, true
}

// Errors returns how many error notifications were shown.
func (c *Console) Errors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errCount
}
