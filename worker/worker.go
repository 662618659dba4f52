// Package worker fans domain events out to a publisher on a fixed set of
// goroutines.
package worker

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"fintrack/api/logger"
	"fintrack/api/models"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const DefaultBufferSize = 100

// Publisher is satisfied by *kafka.Publisher.
type Publisher interface {
	Publish(topic string, key, value []byte) error
}

// WorkerPool publishes events asynchronously. All events of one user go to
// the same partition and are published in submission order.
type WorkerPool struct {
	workers    int
	partitions []chan models.Event
	publisher  Publisher
	topic      string
	wg         sync.WaitGroup

	// guards stopped against concurrent Publish and Stop
	stateMu sync.RWMutex
	stopped bool

	// Metrics
	mu                 sync.Mutex
	messagesProcessed  uint64
	messagesFailed     uint64
	messagesDropped    uint64
	processingDuration uint64
}

func NewWorkerPool(workers, bufferSize int, publisher Publisher, topic string) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	partitions := make([]chan models.Event, workers)
	for i := range partitions {
		partitions[i] = make(chan models.Event, bufferSize)
	}
	return &WorkerPool{
		workers:    workers,
		partitions: partitions,
		publisher:  publisher,
		topic:      topic,
	}
}

func (wp *WorkerPool) Start() {
	logger.Get().Info("Starting worker pool", zap.Int("workers", wp.workers))
	for i := range wp.partitions {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop refuses new events, lets the workers publish what is already queued
// and waits for them to exit.
func (wp *WorkerPool) Stop() {
	wp.stateMu.Lock()
	if wp.stopped {
		wp.stateMu.Unlock()
		return
	}
	wp.stopped = true
	for _, ch := range wp.partitions {
		close(ch)
	}
	wp.stateMu.Unlock()

	logger.Get().Info("Stopping worker pool")
	wp.wg.Wait()
}

func (wp *WorkerPool) partition(userID string) int {
	return int(xxhash.Sum64String(userID) % uint64(len(wp.partitions)))
}

// Publish queues event without blocking. It is dropped, and counted, when its
// partition is full or the pool is stopped.
func (wp *WorkerPool) Publish(event models.Event) {
	wp.stateMu.RLock()
	defer wp.stateMu.RUnlock()

	if wp.stopped {
		wp.drop()
		logger.Get().Warn("Worker pool is stopped, event not submitted", zap.String("type", string(event.Type)))
		return
	}

	p := wp.partition(event.UserID)
	select {
	case wp.partitions[p] <- event:
		logger.Get().Debug("Event submitted to worker pool", zap.Int("partition", p))
	default:
		wp.drop()
		logger.Get().Warn("Partition buffer full, event dropped",
			zap.Int("partition", p),
			zap.String("type", string(event.Type)))
	}
}

func (wp *WorkerPool) drop() {
	wp.mu.Lock()
	wp.messagesDropped++
	wp.mu.Unlock()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger.Get().Info("Worker started", zap.Int("worker_id", id))

	for event := range wp.partitions[id] {
		startTime := time.Now()

		payload, err := json.Marshal(event)
		if err == nil {
			err = wp.publisher.Publish(wp.topic, []byte(event.UserID), payload)
		}

		wp.mu.Lock()
		if err != nil {
			wp.messagesFailed++
		} else {
			wp.messagesProcessed++
			wp.processingDuration += uint64(time.Since(startTime).Milliseconds())
		}
		wp.mu.Unlock()

		if err != nil {
			logger.Get().Error("Failed to publish event",
				zap.Int("worker_id", id),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
	logger.Get().Info("Worker stopping", zap.Int("worker_id", id))
}

type Metrics struct {
	MessagesProcessed uint64  `json:"messages_processed"`
	MessagesDropped   uint64  `json:"messages_dropped"`
	MessagesFailed    uint64  `json:"messages_failed"`
	AvgProcessingMs   float64 `json:"avg_processing_ms"`
	BufferLevels      []int   `json:"buffer_levels"`
	ActiveWorkers     int     `json:"active_workers"`
}

func (wp *WorkerPool) Metrics() Metrics {
	wp.mu.Lock()
	m := Metrics{
		MessagesProcessed: wp.messagesProcessed,
		MessagesDropped:   wp.messagesDropped,
		MessagesFailed:    wp.messagesFailed,
		ActiveWorkers:     wp.workers,
	}
	if wp.messagesProcessed > 0 {
		m.AvgProcessingMs = float64(wp.processingDuration) / float64(wp.messagesProcessed)
	}
	wp.mu.Unlock()

	m.BufferLevels = make([]int, len(wp.partitions))
	for i, ch := range wp.partitions {
		m.BufferLevels[i] = len(ch)
	}
	return m
}

// MetricsHandler returns the current metrics as JSON
func (wp *WorkerPool) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(wp.Metrics()); err != nil {
		logger.Get().Error("failed to encode worker metrics", zap.Error(err))
	}
}
