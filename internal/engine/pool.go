package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/rowbatch"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("session pool closed")

// SessionFactory opens a new session.
type SessionFactory func(ctx context.Context) (Session, error)

// Pool hands out exclusive sessions, at most size at a time.
type Pool struct {
	name         string
	sem          *semaphore.Weighted
	size         int64
	queryTimeout time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	idle   []Session
	closed bool
}

// NewPool opens size sessions up front so that a broken engine is detected
// at startup rather than on the first request.
func NewPool(ctx context.Context, name string, size int, queryTimeout time.Duration, factory SessionFactory, logger *slog.Logger) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		name:         name,
		sem:          semaphore.NewWeighted(int64(size)),
		size:         int64(size),
		queryTimeout: queryTimeout,
		logger:       logger.With("component", "engine", "engine", name),
	}
	for i := 0; i < size; i++ {
		s, err := factory(ctx)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("open %s session %d: %w", name, i, err)
		}
		p.idle = append(p.idle, s)
	}
	p.logger.Info("engine pool ready", "sessions", size)
	return p, nil
}

// Name returns the engine identifier, e.g. "duckdb".
func (p *Pool) Name() string { return p.name }

// Size returns the number of sessions.
func (p *Pool) Size() int { return int(p.size) }

// Acquire blocks until a session is free or ctx is done. Failures are
// reported as EngineUnavailableError.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, domain.ErrEngineUnavailable(p.name, err, "acquire session")
	}

	p.mu.Lock()
	if p.closed || len(p.idle) == 0 {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, domain.ErrEngineUnavailable(p.name, ErrPoolClosed, "acquire session")
	}
	s := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	p.mu.Unlock()

	return &Lease{pool: p, session: s}, nil
}

func (p *Pool) release(s Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = s.Close()
		p.sem.Release(1)
		return
	}
	p.idle = append(p.idle, s)
	p.mu.Unlock()
	p.sem.Release(1)
}

// Close closes idle sessions; leased sessions close when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for _, s := range p.idle {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.idle = nil
	return errors.Join(errs...)
}

// Lease is an acquired session. It must be released exactly once.
type Lease struct {
	pool     *Pool
	session  Session
	released bool
}

// Session returns the leased session.
func (l *Lease) Session() Session { return l.session }

// Engine returns the pool's engine identifier.
func (l *Lease) Engine() string { return l.pool.name }

// Execute runs query under the pool's query timeout.
func (l *Lease) Execute(ctx context.Context, query string) (*Result, error) {
	if l.pool.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.pool.queryTimeout)
		defer cancel()
	}
	return l.session.Execute(ctx, query)
}

// Release returns the session to the pool.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.pool.release(l.session)
}

// WithRelation registers batch under relation, runs fn and always
// unregisters the relation, even when ctx is cancelled. Registration
// failures are reported as EngineUnavailableError so callers can fall back.
func (l *Lease) WithRelation(ctx context.Context, relation string, batch *rowbatch.Batch, fn func() error) error {
	if err := l.session.Register(ctx, relation, batch); err != nil {
		// A partially created relation is dropped as well.
		l.drop(ctx, relation)
		return domain.ErrEngineUnavailable(l.pool.name, err, "register %s (%d rows)", relation, batch.NumRows())
	}
	defer l.drop(ctx, relation)
	return fn()
}

func (l *Lease) drop(ctx context.Context, relation string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := l.session.Unregister(cleanupCtx, relation); err != nil {
		l.pool.logger.Error("unregister relation", "relation", relation, "error", err)
	}
}
