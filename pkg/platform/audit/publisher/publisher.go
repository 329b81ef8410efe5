package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/platform/audit/worker"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// Lister is implemented by stores that can replay events for a member.
type Lister interface {
	ListByUser(ctx context.Context, guildID, userID string) ([]audit.Event, error)
}

// Publisher stamps events and hands them to a store, either synchronously or
// through a buffered channel drained by a worker.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer int
	inbox  chan audit.Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking up to size queued events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.inbox = make(chan audit.Event, p.buffer)
		w := worker.NewWorker(store, p.inbox, p.logger)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(context.Background())
		}()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List replays a member's events when the underlying store supports it.
func (p *Publisher) List(ctx context.Context, guildID, userID string) ([]audit.Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, errors.New("audit store does not support listing")
	}
	return lister.ListByUser(ctx, guildID, userID)
}

// Close stops accepting events and drains anything still buffered.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Tee fans one event out to several stores. Every store is attempted; the
// first error is returned.
type Tee []audit.Store

func (t Tee) Append(ctx context.Context, event audit.Event) error {
	var errs []error
	for _, s := range t {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
