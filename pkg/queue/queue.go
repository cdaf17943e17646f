package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"OracleEngine/pkg/logger"
)

var ErrNotRunning = errors.New("queue: not running")

// Publisher enqueues work and returns the message id.
type Publisher interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error)
}

type Config struct {
	Workers    int
	BufferSize int
	RetryLimit int
	RetryDelay time.Duration
}

type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func newMessage(jobType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func normalize(cfg *Config) Config {
	out := Config{Workers: 1, BufferSize: 64, RetryLimit: 2, RetryDelay: 5 * time.Second}
	if cfg == nil {
		return out
	}
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.BufferSize > 0 {
		out.BufferSize = cfg.BufferSize
	}
	if cfg.RetryLimit >= 0 {
		out.RetryLimit = cfg.RetryLimit
	}
	if cfg.RetryDelay > 0 {
		out.RetryDelay = cfg.RetryDelay
	}
	return out
}

// MemoryQueue is the single-process queue used when Redis is disabled.
type MemoryQueue struct {
	log  *logger.Logger
	cfg  Config
	jobs map[string]Job

	mu      sync.RWMutex
	running bool
	ch      chan Message
	stop    chan struct{}
	wg      sync.WaitGroup
}

var _ Publisher = (*MemoryQueue)(nil)

func NewMemoryQueue(lgr *logger.Logger, cfg *Config) *MemoryQueue {
	c := normalize(cfg)
	return &MemoryQueue{
		log:  lgr,
		cfg:  c,
		jobs: make(map[string]Job),
		ch:   make(chan Message, c.BufferSize),
		stop: make(chan struct{}),
	}
}

func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.Type()] = job
}

func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return nil
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	close(q.stop)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return "", ErrNotRunning
	}
	if _, ok := q.jobs[jobType]; !ok {
		return "", fmt.Errorf("no job registered for type: %s", jobType)
	}
	msg, err := newMessage(jobType, payload)
	if err != nil {
		return "", err
	}
	select {
	case q.ch <- msg:
		return msg.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stop:
			return
		case msg := <-q.ch:
			q.run(msg)
		}
	}
}

func (q *MemoryQueue) run(msg Message) {
	q.mu.RLock()
	job := q.jobs[msg.Type]
	q.mu.RUnlock()

	for {
		err := job.Handle(context.Background(), msg)
		if err == nil {
			return
		}
		msg.Attempts++
		q.log.Warn("queue job failed",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Int("attempt", msg.Attempts),
			logger.Error(err))
		if msg.Attempts > q.cfg.RetryLimit {
			q.log.Error("queue job dropped after retries", logger.String("id", msg.ID), logger.Error(err))
			return
		}
		select {
		case <-time.After(q.cfg.RetryDelay):
		case <-q.stop:
			return
		}
	}
}
