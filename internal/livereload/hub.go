package livereload

import (
	"sync"

	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/observability"
)

// subscriptionBuffer bounds how many undelivered signals a single client
// may have in flight. Reload signals are idempotent, so dropping under
// backpressure is safe.
const subscriptionBuffer = 8

// Subscription is one client's registration with the hub. The connection
// handler owns it; the hub keeps only enough of a reference to send or
// detect removal.
type Subscription struct {
	hub  *Hub
	ch   chan Signal
	once sync.Once
	id   uint64
}

// Signals returns the channel the hub delivers on. It is closed exactly
// once when the subscription is closed.
func (s *Subscription) Signals() <-chan Signal {
	return s.ch
}

// Close deregisters the subscription and closes its channel. Safe to call
// from any goroutine and under concurrent failure paths; only the first
// call has effect.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is the process-wide registry of live client connections. It is the
// only shared mutable state in the subsystem: constructed once, passed by
// handle, synchronized internally.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	nextID  uint64
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Subscribe registers a new client and returns its subscription. The
// client receives only signals published after registration.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{hub: h, ch: make(chan Signal, subscriptionBuffer)}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	h.metrics.ConnectedClients.Set(float64(n))
	h.logger.Debug("client subscribed", zap.Uint64("client", sub.id), zap.Int("clients", n))
	return sub
}

// remove prunes the subscription and closes its channel under the hub
// lock, so Publish can never send on a closed channel.
func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	close(sub.ch)
	n := len(h.subs)
	h.mu.Unlock()

	h.metrics.ConnectedClients.Set(float64(n))
	h.logger.Debug("client unsubscribed", zap.Uint64("client", sub.id), zap.Int("clients", n))
}

// Publish fans sig out to every subscription registered at call time.
// Delivery is fire-and-forget and non-blocking per subscriber: each client
// has its own buffered queue, and one whose buffer is full simply misses
// this signal rather than delaying the others. Publishing with zero
// clients is a no-op.
func (h *Hub) Publish(sig Signal) {
	h.mu.Lock()
	total := len(h.subs)
	delivered := 0
	for sub := range h.subs {
		select {
		case sub.ch <- sig:
			delivered++
		default:
			h.logger.Warn("client too slow, dropping signal",
				zap.Uint64("client", sub.id), zap.String("signal", sig.String()))
		}
	}
	h.mu.Unlock()

	h.metrics.SignalsPublished.WithLabelValues(sig.Payload()).Inc()
	h.logger.Info("reload signal published",
		zap.String("signal", sig.String()),
		zap.Int("clients", total),
		zap.Int("delivered", delivered),
	)
}

// Len returns the number of currently registered clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
