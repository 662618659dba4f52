// Package sse fans domain events out to a user's open event streams.
package sse

import (
	"sync"

	"fintrack/api/logger"
	"fintrack/api/models"

	"go.uber.org/zap"
)

// DefaultStreamBuffer is how many events a slow stream may lag behind before
// new events are dropped for it.
const DefaultStreamBuffer = 32

// ClientStream is one open connection. Events is closed when the stream is
// cancelled or the broker shuts down.
type ClientStream struct {
	UserID string
	Events chan models.Event
}

// Broker keeps the open streams per user. It implements services.EventSink.
type Broker struct {
	mu      sync.RWMutex
	streams map[string]map[*ClientStream]struct{}
	buffer  int
	closed  bool
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Broker{streams: make(map[string]map[*ClientStream]struct{}), buffer: buffer}
}

// Subscribe opens a stream for userID. The returned cancel func must be
// called when the client goes away; it is safe to call more than once.
func (b *Broker) Subscribe(userID string) (*ClientStream, func()) {
	stream := &ClientStream{UserID: userID, Events: make(chan models.Event, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(stream.Events)
		return stream, func() {}
	}
	if b.streams[userID] == nil {
		b.streams[userID] = make(map[*ClientStream]struct{})
	}
	b.streams[userID][stream] = struct{}{}
	b.mu.Unlock()

	logger.Get().Debug("event stream opened", zap.String("user_id", userID))

	var once sync.Once
	return stream, func() {
		once.Do(func() { b.remove(stream) })
	}
}

func (b *Broker) remove(stream *ClientStream) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.streams[stream.UserID]
	if !ok {
		return
	}
	if _, ok := set[stream]; !ok {
		return
	}
	delete(set, stream)
	if len(set) == 0 {
		delete(b.streams, stream.UserID)
	}
	close(stream.Events)
	logger.Get().Debug("event stream closed", zap.String("user_id", stream.UserID))
}

// Publish delivers event to every stream of event.UserID without blocking.
func (b *Broker) Publish(event models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for stream := range b.streams[event.UserID] {
		select {
		case stream.Events <- event:
		default:
			logger.Get().Warn("event stream full, dropping event",
				zap.String("user_id", event.UserID),
				zap.String("type", string(event.Type)))
		}
	}
}

// Subscribers returns the number of open streams for userID.
func (b *Broker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams[userID])
}

// Close ends every open stream and refuses new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for userID, set := range b.streams {
		for stream := range set {
			close(stream.Events)
		}
		delete(b.streams, userID)
	}
}
