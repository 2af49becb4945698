// Package broadcast fans accelerometer samples out to connected consumers.
//
// A Channel keeps a rolling history of the most recent samples. A consumer
// that subscribes receives that history as one burst and then every newly
// published sample exactly once, in publish order. Each consumer has a
// bounded queue; a consumer that lets it fill up is disconnected with
// ErrSlowConsumer instead of stalling the producer or the other consumers.
package broadcast

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/himanishpuri/SignVault/internal/metrics"
	"github.com/himanishpuri/SignVault/pkg/models"
)

var (
	ErrSlowConsumer  = errors.New("slow consumer")
	ErrChannelClosed = errors.New("channel closed")
	ErrStaleSample   = errors.New("sample is older than the newest retained sample")
)

// Sample is the unit carried by a Channel.
type Sample = models.AccelerationSample

// State is a consumer's position in its lifecycle. Disconnected is terminal.
type State int32

const (
	Connecting State = iota
	Streaming
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

const (
	DefaultHistorySize = 100
	DefaultQueueSize   = 256
)

type Options struct {
	HistorySize int // samples retained for late joiners
	QueueSize   int // per-consumer outbound queue
}

func DefaultOptions() Options {
	return Options{HistorySize: DefaultHistorySize, QueueSize: DefaultQueueSize}
}

// Consumer is one subscriber of a Channel.
type Consumer struct {
	id      uint64
	state   atomic.Int32
	history []Sample
	updates chan Sample

	mu  sync.Mutex
	err error
}

func (c *Consumer) ID() uint64 { return c.id }

// History is the burst captured at subscription, oldest first.
func (c *Consumer) History() []Sample { return c.history }

// Updates delivers live samples. It is closed when the consumer is
// disconnected; Err then reports why.
func (c *Consumer) Updates() <-chan Sample { return c.updates }

func (c *Consumer) State() State { return State(c.state.Load()) }

// Err is nil for a consumer that is still streaming or that unsubscribed
// itself, ErrSlowConsumer if it was dropped for falling behind, and
// ErrChannelClosed if the channel shut down.
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Channel is safe for concurrent use by any number of producers and
// consumers.
type Channel struct {
	mu        sync.Mutex
	ring      []Sample
	head      int // index of the oldest retained sample
	size      int
	queueSize int
	consumers map[uint64]*Consumer
	nextID    uint64
	closed    bool

	published atomic.Uint64
}

func New(opts Options) *Channel {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Channel{
		ring:      make([]Sample, opts.HistorySize),
		queueSize: opts.QueueSize,
		consumers: make(map[uint64]*Consumer),
	}
}

// Subscribe registers a new consumer and captures the current history as
// its initial burst. Capture and registration happen under the same lock as
// Publish, so no sample is both in the burst and in Updates, and none is
// missed between them.
func (ch *Channel) Subscribe() (*Consumer, error) {
	c := &Consumer{updates: make(chan Sample, ch.queueSize)}
	c.state.Store(int32(Connecting))

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		c.state.Store(int32(Disconnected))
		return nil, ErrChannelClosed
	}

	ch.nextID++
	c.id = ch.nextID
	c.history = ch.historyLocked()
	ch.consumers[c.id] = c
	c.state.Store(int32(Streaming))

	metrics.StreamConsumers.Inc()
	return c, nil
}

// Unsubscribe removes c from the fan-out set. It is safe to call more than
// once and after the channel dropped c on its own.
func (ch *Channel) Unsubscribe(c *Consumer) {
	if c == nil {
		return
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if _, ok := ch.consumers[c.id]; ok {
		ch.dropLocked(c, nil)
	}
}

// Publish appends s to the history, evicting the oldest sample when full,
// and hands it to every streaming consumer. A consumer whose queue is full
// is disconnected; delivery to the others is unaffected.
func (ch *Channel) Publish(s Sample) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return ErrChannelClosed
	}
	if ch.size > 0 && s.Timestamp < ch.newestLocked().Timestamp {
		return ErrStaleSample
	}

	ch.pushLocked(s)
	ch.published.Add(1)
	metrics.SamplesPublished.Inc()

	for _, c := range ch.consumers {
		select {
		case c.updates <- s:
		default:
			ch.dropLocked(c, ErrSlowConsumer)
			metrics.SlowConsumerDisconnects.Inc()
		}
	}
	return nil
}

// History returns a copy of the retained samples, oldest first.
func (ch *Channel) History() []Sample {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.historyLocked()
}

// Consumers returns the number of streaming consumers.
func (ch *Channel) Consumers() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.consumers)
}

// Published returns the total number of samples accepted since creation.
func (ch *Channel) Published() uint64 {
	return ch.published.Load()
}

// Close disconnects every consumer with ErrChannelClosed. Later Publish and
// Subscribe calls fail.
func (ch *Channel) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	ch.closed = true
	for _, c := range ch.consumers {
		ch.dropLocked(c, ErrChannelClosed)
	}
}

func (ch *Channel) dropLocked(c *Consumer, reason error) {
	delete(ch.consumers, c.id)
	c.mu.Lock()
	c.err = reason
	c.mu.Unlock()
	c.state.Store(int32(Disconnected))
	close(c.updates)
	metrics.StreamConsumers.Dec()
}

func (ch *Channel) pushLocked(s Sample) {
	capacity := len(ch.ring)
	if ch.size < capacity {
		ch.ring[(ch.head+ch.size)%capacity] = s
		ch.size++
		return
	}
	ch.ring[ch.head] = s
	ch.head = (ch.head + 1) % capacity
}

func (ch *Channel) newestLocked() Sample {
	return ch.ring[(ch.head+ch.size-1)%len(ch.ring)]
}

func (ch *Channel) historyLocked() []Sample {
	out := make([]Sample, ch.size)
	for i := 0; i < ch.size; i++ {
		out[i] = ch.ring[(ch.head+i)%len(ch.ring)]
	}
	return out
}
