package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/metrics"
)

// Queue errors.
var (
	ErrQueueFull   = errors.New("mail: queue full")
	ErrQueueClosed = errors.New("mail: queue closed")
)

// DefaultQueueSize is the buffer used when NewQueue is given size <= 0.
const DefaultQueueSize = 64

// drainTimeout bounds delivery of buffered messages after shutdown begins.
const drainTimeout = 10 * time.Second

// Queue delivers messages asynchronously through an underlying Mailer.
//
// Send only enqueues. Run performs delivery on one goroutine until its
// context is cancelled or Close is called, then delivers whatever is still
// buffered before returning.
//
// Thread-safety: Send and Close are safe for concurrent use.
type Queue struct {
	mailer  Mailer
	log     *zap.Logger
	metrics *metrics.Metrics

	ch   chan Message
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	running bool
}

// NewQueue creates a queue in front of mailer. m may be nil.
func NewQueue(mailer Mailer, log *zap.Logger, m *metrics.Metrics, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		mailer:  mailer,
		log:     log,
		metrics: m,
		ch:      make(chan Message, size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Send enqueues msg without blocking.
func (q *Queue) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		q.metrics.Email("dropped")
		q.log.Warn("mail queue full, dropping message",
			zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is done or Close is called.
// It always returns nil; delivery failures are logged.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return errors.New("mail: queue already running")
	}
	q.running = true
	q.mu.Unlock()
	defer close(q.done)

	for {
		select {
		case msg := <-q.ch:
			q.deliver(ctx, msg)
		case <-ctx.Done():
			q.shutdown()
			q.drain(context.WithoutCancel(ctx))
			return nil
		case <-q.stop:
			q.drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

// Close stops accepting messages and, when Run is active, waits for it to
// deliver the remaining buffer.
func (q *Queue) Close() {
	q.shutdown()
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()
	if running {
		<-q.done
	}
}

func (q *Queue) shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.stop)
	}
}

func (q *Queue) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	for {
		select {
		case msg := <-q.ch:
			q.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, msg Message) {
	if err := q.mailer.Send(ctx, msg); err != nil {
		q.metrics.Email("failed")
		q.log.Error("send email failed",
			zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	q.metrics.Email("sent")
	q.log.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
}
