package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output: closed")

type Option func(*Async)

// WithBufferSize sets how many documents may wait for the inner output.
// Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) {
		if n > 0 {
			a.bufSize = n
		}
	}
}

// WithOnError replaces the warning logged when the inner output rejects a
// queued document.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull discards documents that find the queue full.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Async queues documents for an output that may be slow, such as a chat bot
// or a remote collector. Cluster subscribers return as soon as the document
// is queued; a single goroutine feeds the queue to the inner output in order.
type Async struct {
	inner      output.Output
	log        logger.Logger
	ch         chan output.Document
	done       chan struct{}
	errFunc    func(error)
	bufSize    int
	dropOnFull bool
	mu         sync.RWMutex // guards closed and senders
	closed     bool
	closing    chan struct{}
	senders    sync.WaitGroup // blocked writers; ch is closed only after they leave
	closeOnce  sync.Once
}

// New starts feeding inner. Close must be called to stop it.
func New(inner output.Output, log logger.Logger, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		log:     log,
		bufSize: defaultBufferSize,
		errFunc: func(err error) { log.Warn("Async output write failed: %v", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan output.Document, a.bufSize)
	a.done = make(chan struct{})
	a.closing = make(chan struct{})
	go a.drain()
	return a
}

// Write queues the document. It blocks while the buffer is full unless
// WithDropOnFull is set, in which case the document is discarded. A blocked
// Write returns ErrClosed once Close is called.
func (a *Async) Write(ctx context.Context, doc output.Document) error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	if a.dropOnFull {
		defer a.mu.RUnlock()
		select {
		case a.ch <- doc:
		default:
			a.log.Warn("Async output buffer full, dropping document %s (%s)", doc.ID, doc.Description)
		}
		return nil
	}
	a.senders.Add(1)
	a.mu.RUnlock()
	defer a.senders.Done()

	select {
	case a.ch <- doc:
		return nil
	case <-a.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further documents, gives the queued ones up to 5s to reach
// the inner output and then closes it.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.closing)
		a.mu.Unlock()

		a.senders.Wait()
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			a.log.Warn("Async output drain timed out")
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for doc := range a.ch {
		if err := a.inner.Write(context.Background(), doc); err != nil {
			a.errFunc(err)
		}
	}
}
