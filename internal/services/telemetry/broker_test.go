package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	b := NewBroker(4, logging.NewNop())
	defer b.Close()

	all := b.Subscribe(0, nil)
	hex2 := b.Subscribe(0, ForDevice("hex2"))
	require.NotEqual(t, all.ID(), hex2.ID())
	assert.Equal(t, 2, b.Subscribers())

	b.Publish(models.Event{Type: models.EventPosition, Device: "Hex1", Seq: 1})
	b.Publish(models.Event{Type: models.EventPosition, Device: "Hex2", Seq: 2})

	ev := <-all.Events()
	assert.Equal(t, uint64(1), ev.Seq)
	ev = <-all.Events()
	assert.Equal(t, uint64(2), ev.Seq)

	ev = <-hex2.Events()
	assert.Equal(t, "Hex2", ev.Device)
	assert.Len(t, hex2.Events(), 0)
	assert.Equal(t, uint64(2), b.Published())
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBroker(0, logging.NewNop())
	defer b.Close()

	slow := b.Subscribe(2, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(models.Event{Type: models.EventMotion, Seq: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, uint64(8), slow.Dropped())
	assert.Len(t, slow.Events(), 2)
}

func TestSubscriptionClose(t *testing.T) {
	b := NewBroker(4, logging.NewNop())
	sub := b.Subscribe(1, nil)
	sub.Close()
	sub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())

	b.Publish(models.Event{Type: models.EventState})
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker(4, logging.NewNop())
	sub := b.Subscribe(1, nil)

	b.Close()
	b.Close()
	_, ok := <-sub.Events()
	assert.False(t, ok)
	sub.Close()

	late := b.Subscribe(1, nil)
	_, ok = <-late.Events()
	assert.False(t, ok)

	b.Publish(models.Event{Type: models.EventState})
	assert.Equal(t, uint64(0), b.Published())
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	b := NewBroker(8, logging.NewNop())
	defer b.Close()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				b.Publish(models.Event{Type: models.EventPosition})
			}
		}()
	}
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub := b.Subscribe(1, nil)
				sub.Close()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(4000), b.Published())
}
