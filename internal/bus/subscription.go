package bus

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/looxidlabs/link-band-core/internal/model"
)

// DefaultQueueDepth is the per-subscriber bounded queue depth (spec.md
// §4.F, overridable via config.SubscriberQueueDepth).
const DefaultQueueDepth = 256

// outboundRateLimit and outboundBurst bound how fast a single writePump
// drains its queue onto the wire. EEG alone produces 250 raw messages/s;
// this sits comfortably above that so a healthy consumer never notices
// it, while a burst after reconnect is paced instead of written in one
// syscall storm.
const (
	outboundRateLimit = 1000
	outboundBurst     = 200
)

// slowConsumerGrace is how long a subscriber's queue may stay
// continuously saturated before it is evicted as a slow consumer.
const slowConsumerGrace = 2 * time.Second

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// subscription is one connected WebSocket client: its filters, its
// bounded outbound queue and the goroutines that drain it onto the wire.
type subscription struct {
	id   string
	conn *websocket.Conn

	mu       sync.Mutex
	queue    *dropQueue
	fullness fullnessTracker
	filters  []model.ChannelFilter
	closed   bool

	limiter *rate.Limiter
	send    chan struct{}
	done    chan struct{}
	evictCh chan string
}

func newSubscription(conn *websocket.Conn, queueDepth int) *subscription {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &subscription{
		id:      uuid.NewString(),
		conn:    conn,
		queue:   newDropQueue(queueDepth),
		limiter: rate.NewLimiter(outboundRateLimit, outboundBurst),
		send:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		evictCh: make(chan string, 1),
	}
}

// evict asks the write pump to notify the client why it is being
// disconnected, then close the connection. Routed through the pump
// instead of writing here directly, since writePump is the only
// goroutine allowed to call conn.WriteMessage. Safe to call more than
// once; only the first reason is delivered.
func (s *subscription) evict(reason string) {
	select {
	case s.evictCh <- reason:
	default:
	}
}

func (s *subscription) setFilters(filters []model.ChannelFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
}

func (s *subscription) wants(sensor model.SensorKind, channel model.ChannelKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.filters) == 0 {
		return true
	}
	for _, f := range s.filters {
		if f.Sensor == sensor && f.Kind == channel {
			return true
		}
	}
	return false
}

// enqueue marshals v and queues it for delivery, returning whether the
// subscriber should be evicted as a slow consumer.
func (s *subscription) enqueue(kind outboundKind, v interface{}) bool {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("[bus] marshal outbound message: %v", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	s.queue.push(kind, body)
	evict := s.fullness.observe(s.queue.full(), time.Now(), slowConsumerGrace)

	select {
	case s.send <- struct{}{}:
	default:
	}
	return evict
}

func (s *subscription) dequeue() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.pop()
}

func (s *subscription) droppedTotal() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.droppedTotal()
}

func (s *subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// writePump drains the bounded queue onto the socket and maintains the
// ping/pong keepalive, following the teacher's single-writer-goroutine
// convention (one writer per connection, no concurrent WriteMessage).
func (s *subscription) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case <-s.send:
			for {
				if !s.limiter.Allow() {
					// Paced out for this tick: re-arm send so the
					// remaining queue is drained on the next pass
					// instead of busy-spinning on the token bucket.
					select {
					case s.send <- struct{}{}:
					default:
					}
					break
				}
				body, ok := s.dequeue()
				if !ok {
					break
				}
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := s.conn.WriteMessage(websocket.TextMessage, body); err != nil {
					return
				}
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case reason := <-s.evictCh:
			body, err := json.Marshal(ErrorMessage{Type: TypeError, Code: reason})
			if err == nil {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.TextMessage, body)
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
			return
		}
	}
}

func (s *subscription) close() {
	s.markClosed()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
