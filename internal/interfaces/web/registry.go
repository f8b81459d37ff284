package web

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/internaltypes"
)

// Registry keeps one search session per visitor. All sessions share a
// single token manager.
type Registry struct {
	New      func() *search.Session
	IdleTTL  time.Duration
	Interval time.Duration
	Log      *zap.Logger

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	s    *search.Session
	seen time.Time
}

func NewRegistry(newSession func() *search.Session, idleTTL time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		New:      newSession,
		IdleTTL:  idleTTL,
		Interval: time.Minute,
		Log:      log,
		now:      time.Now,
		sessions: map[string]*entry{},
	}
}

// Get returns the visitor's session, creating it on first use.
func (r *Registry) Get(id string) *search.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		e = &entry{s: r.New()}
		r.sessions[id] = e
	}
	e.seen = r.now()
	return e.s
}

// Lookup is Get without creating.
func (r *Registry) Lookup(id string) (*search.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, internaltypes.ErrNoSession
	}
	e.seen = r.now()
	return e.s, nil
}

func (r *Registry) Drop(id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		e.s.Cancel()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run evicts idle sessions every Interval until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.IdleTTL <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	cutoff := r.now().Add(-r.IdleTTL)

	r.mu.Lock()
	var idle []*search.Session
	for id, e := range r.sessions {
		if e.seen.Before(cutoff) {
			idle = append(idle, e.s)
			delete(r.sessions, id)
		}
	}
	left := len(r.sessions)
	r.mu.Unlock()

	for _, s := range idle {
		s.Cancel()
	}
	if len(idle) > 0 {
		r.Log.Debug("evicted idle sessions", zap.Int("evicted", len(idle)), zap.Int("active", left))
	}
}
