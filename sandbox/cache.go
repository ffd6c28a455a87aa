package sandbox

import (
	"context"
	"sync"

	"github.com/mdvalidate/mdbook-validator/eventlog"
	"github.com/mdvalidate/mdbook-validator/models"
)

// Cache memoizes sandbox sessions by validator name within one build run
// (spec.md §4.F). It is an in-memory map only — there is deliberately no
// persistence across runs, since spec.md's Non-goals exclude cross-run
// result caching and this is the one component that could otherwise be
// tempted to grow one.
type Cache struct {
	starter Starter
	log     eventlog.Sink

	mu       sync.Mutex
	sessions map[string]Session
}

func NewCache(starter Starter, log eventlog.Sink) *Cache {
	if log == nil {
		log = eventlog.Default
	}
	return &Cache{starter: starter, log: log, sessions: map[string]Session{}}
}

// Get returns the cached session for validator name, starting one if
// this is the first request. On startup failure the cache entry is not
// created and the error propagates; a later call retries the start.
func (c *Cache) Get(ctx context.Context, name string, opts StartOptions) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[name]; ok {
		return s, nil
	}

	c.log.Debugf("starting sandbox for validator %q (image %s)", name, opts.Image)
	session, err := c.starter.Start(ctx, opts)
	if err != nil {
		return nil, models.NewSandboxStartup(err, "%s", err.Error())
	}
	c.sessions[name] = session
	return session, nil
}

// DropAll releases every cached session, deterministically, regardless
// of whether earlier sessions failed to drop — the guaranteed release
// point spec.md §5 requires at the end of a build or on error.
func (c *Cache) DropAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for name, s := range c.sessions {
		if err := s.Drop(ctx); err != nil && first == nil {
			first = err
			c.log.Warnf("failed to drop sandbox for validator %q: %v", name, err)
		}
	}
	c.sessions = map[string]Session{}
	return first
}
