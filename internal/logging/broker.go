package logging

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const subscriberBufferSize = 100

// LogEntry is a single log record as delivered to stream subscribers.
type LogEntry struct {
	Level         string         `json:"level"`
	Message       string         `json:"message"`
	Timestamp     time.Time      `json:"timestamp"`
	JobID         string         `json:"jobId,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
	IsJobComplete bool           `json:"isJobComplete,omitempty"`
	IsJobFailed   bool           `json:"isJobFailed,omitempty"`
}

// LogBroker fans out log entries to general subscribers and to job subscribers.
type LogBroker struct {
	mutex   sync.RWMutex
	general map[string]chan LogEntry
	jobs    map[string]map[string]chan LogEntry
	nextID  atomic.Uint64
	closed  bool
}

func NewLogBroker() *LogBroker {
	return &LogBroker{
		general: make(map[string]chan LogEntry),
		jobs:    make(map[string]map[string]chan LogEntry),
	}
}

// SubscribeGeneral returns a channel receiving every published entry and the id needed to unsubscribe.
func (b *LogBroker) SubscribeGeneral() (<-chan LogEntry, string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	id := strconv.FormatUint(b.nextID.Add(1), 10)
	ch := make(chan LogEntry, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, id
	}
	b.general[id] = ch
	return ch, id
}

func (b *LogBroker) UnsubscribeGeneral(id string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if ch, ok := b.general[id]; ok {
		delete(b.general, id)
		close(ch)
	}
}

// SubscribeJob returns a channel receiving entries tagged with jobID and the id needed to
// unsubscribe. A job can have several subscribers.
func (b *LogBroker) SubscribeJob(jobID string) (<-chan LogEntry, string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	id := strconv.FormatUint(b.nextID.Add(1), 10)
	ch := make(chan LogEntry, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, id
	}
	subscribers, ok := b.jobs[jobID]
	if !ok {
		subscribers = make(map[string]chan LogEntry)
		b.jobs[jobID] = subscribers
	}
	subscribers[id] = ch
	return ch, id
}

func (b *LogBroker) UnsubscribeJob(jobID, id string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	subscribers, ok := b.jobs[jobID]
	if !ok {
		return
	}
	if ch, ok := subscribers[id]; ok {
		delete(subscribers, id)
		close(ch)
	}
	if len(subscribers) == 0 {
		delete(b.jobs, jobID)
	}
}

// Publish delivers the entry without blocking. Slow subscribers drop entries.
func (b *LogBroker) Publish(entry LogEntry) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.general {
		select {
		case ch <- entry:
		default:
		}
	}

	if entry.JobID == "" {
		return
	}
	for _, ch := range b.jobs[entry.JobID] {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Close closes all subscriber channels. Publishing after Close is a no-op.
func (b *LogBroker) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.general {
		close(ch)
		delete(b.general, id)
	}
	for jobID, subscribers := range b.jobs {
		for _, ch := range subscribers {
			close(ch)
		}
		delete(b.jobs, jobID)
	}
}
