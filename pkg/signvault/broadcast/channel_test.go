package broadcast

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func sample(ts int64) Sample {
	return Sample{X: float64(ts), Y: float64(ts) / 2, Z: -float64(ts), Timestamp: ts}
}

func TestHistoryBoundedAndOrdered(t *testing.T) {
	ch := New(DefaultOptions())
	defer ch.Close()

	for i := int64(1); i <= 150; i++ {
		if err := ch.Publish(sample(i)); err != nil {
			t.Fatalf("Publish(%d) failed: %v", i, err)
		}
	}

	c, err := ch.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	burst := c.History()
	if len(burst) != 100 {
		t.Fatalf("Expected burst of 100, got %d", len(burst))
	}
	for i, s := range burst {
		if want := int64(51 + i); s.Timestamp != want {
			t.Fatalf("burst[%d].Timestamp = %d, want %d", i, s.Timestamp, want)
		}
	}
	if ch.Published() != 150 {
		t.Errorf("Expected 150 published, got %d", ch.Published())
	}
}

func TestBurstThenLiveWithoutGapOrDuplicate(t *testing.T) {
	ch := New(Options{HistorySize: 10, QueueSize: 64})
	defer ch.Close()

	for i := int64(1); i <= 5; i++ {
		ch.Publish(sample(i))
	}
	c, _ := ch.Subscribe()
	if c.State() != Streaming {
		t.Fatalf("Expected Streaming, got %s", c.State())
	}
	for i := int64(6); i <= 8; i++ {
		ch.Publish(sample(i))
	}

	var got []int64
	for _, s := range c.History() {
		got = append(got, s.Timestamp)
	}
	for i := 0; i < 3; i++ {
		select {
		case s := <-c.Updates():
			got = append(got, s.Timestamp)
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for update")
		}
	}

	for i, ts := range got {
		if ts != int64(i+1) {
			t.Fatalf("Expected contiguous 1..8, got %v", got)
		}
	}
}

func TestFanOutToAllConsumers(t *testing.T) {
	ch := New(Options{HistorySize: 100, QueueSize: 1000})
	defer ch.Close()

	const consumers = 8
	const samples = 500

	subs := make([]*Consumer, consumers)
	for i := range subs {
		c, err := ch.Subscribe()
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		subs[i] = c
	}

	var wg sync.WaitGroup
	errs := make(chan error, consumers)
	for _, c := range subs {
		wg.Add(1)
		go func(c *Consumer) {
			defer wg.Done()
			next := int64(1)
			for s := range c.Updates() {
				if s.Timestamp != next {
					errs <- errors.New("out of order delivery")
					return
				}
				next++
				if next > samples {
					return
				}
			}
		}(c)
	}

	for i := int64(1); i <= samples; i++ {
		if err := ch.Publish(sample(i)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	ch := New(Options{HistorySize: 100, QueueSize: 2})
	defer ch.Close()

	slow, _ := ch.Subscribe()
	fast, _ := ch.Subscribe()

	received := make(chan int64, 16)
	go func() {
		for s := range fast.Updates() {
			received <- s.Timestamp
		}
	}()

	for i := int64(1); i <= 3; i++ {
		ch.Publish(sample(i))
		// Let the fast consumer drain between publishes.
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatalf("Fast consumer did not receive sample %d", i)
		}
	}

	if slow.State() != Disconnected {
		t.Fatalf("Expected slow consumer to be disconnected, got %s", slow.State())
	}
	if !errors.Is(slow.Err(), ErrSlowConsumer) {
		t.Errorf("Expected ErrSlowConsumer, got %v", slow.Err())
	}

	// The queued samples are still readable, then the channel is closed.
	n := 0
	for range slow.Updates() {
		n++
	}
	if n != 2 {
		t.Errorf("Expected 2 queued samples for slow consumer, got %d", n)
	}

	if fast.State() != Streaming {
		t.Errorf("Expected fast consumer to keep streaming, got %s", fast.State())
	}
	if ch.Consumers() != 1 {
		t.Errorf("Expected 1 consumer left, got %d", ch.Consumers())
	}
}

func TestUnsubscribe(t *testing.T) {
	ch := New(DefaultOptions())
	defer ch.Close()

	c, _ := ch.Subscribe()
	ch.Unsubscribe(c)
	ch.Unsubscribe(c)

	if _, ok := <-c.Updates(); ok {
		t.Error("Expected updates channel to be closed")
	}
	if c.Err() != nil {
		t.Errorf("Expected nil error after voluntary unsubscribe, got %v", c.Err())
	}
	if ch.Consumers() != 0 {
		t.Errorf("Expected 0 consumers, got %d", ch.Consumers())
	}

	// Publishing afterwards must not panic on the closed queue.
	if err := ch.Publish(sample(1)); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
}

func TestStaleSampleRejected(t *testing.T) {
	ch := New(DefaultOptions())
	defer ch.Close()

	ch.Publish(sample(10))
	if err := ch.Publish(sample(5)); !errors.Is(err, ErrStaleSample) {
		t.Errorf("Expected ErrStaleSample, got %v", err)
	}
	if err := ch.Publish(sample(10)); err != nil {
		t.Errorf("Expected equal timestamp to be accepted, got %v", err)
	}
	if got := len(ch.History()); got != 2 {
		t.Errorf("Expected 2 retained samples, got %d", got)
	}
}

func TestClose(t *testing.T) {
	ch := New(DefaultOptions())
	c, _ := ch.Subscribe()

	ch.Close()
	ch.Close()

	if !errors.Is(c.Err(), ErrChannelClosed) {
		t.Errorf("Expected ErrChannelClosed, got %v", c.Err())
	}
	if err := ch.Publish(sample(1)); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Expected Publish to fail after Close, got %v", err)
	}
	if _, err := ch.Subscribe(); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Expected Subscribe to fail after Close, got %v", err)
	}
}
