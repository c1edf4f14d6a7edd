package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingConn collects everything written to it; failAfter < 0 never fails.
type recordingConn struct {
	mu        sync.Mutex
	messages  []interface{}
	failAfter int
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAfter >= 0 && len(c.messages) >= c.failAfter {
		return errors.New("connection gone")
	}
	c.messages = append(c.messages, v)
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *recordingConn) snapshot() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.messages))
	copy(out, c.messages)
	return out
}

func newRecordingConn() *recordingConn {
	return &recordingConn{failAfter: -1}
}

func TestRegistryPublishReachesAllSubscribers(t *testing.T) {
	reg := NewChannelRegistry()
	a, b := newRecordingConn(), newRecordingConn()

	reg.Subscribe("battle_1", a)
	reg.Subscribe("battle_1", b)
	reg.Publish("battle_1", "hello", nil)

	require.Equal(t, 1, a.count())
	require.Equal(t, 1, b.count())
}

func TestRegistryPublishExcludesSender(t *testing.T) {
	reg := NewChannelRegistry()
	sender, other := newRecordingConn(), newRecordingConn()

	reg.Subscribe("battle_1", sender)
	reg.Subscribe("battle_1", other)
	reg.Publish("battle_1", "chat", sender)

	require.Equal(t, 0, sender.count())
	require.Equal(t, 1, other.count())
}

func TestRegistrySendFailureDropsConnection(t *testing.T) {
	reg := NewChannelRegistry()
	dead := &recordingConn{failAfter: 0}
	alive := newRecordingConn()

	reg.Subscribe("battle_1", dead)
	reg.Subscribe("battle_1", alive)
	require.Equal(t, 2, reg.Subscribers("battle_1"))

	reg.Publish("battle_1", "update", nil)

	// The failing connection is gone; the healthy one still got the message.
	require.Equal(t, 1, reg.Subscribers("battle_1"))
	require.Equal(t, 1, alive.count())

	// Subsequent publishes skip the dropped connection entirely.
	reg.Publish("battle_1", "update", nil)
	require.Equal(t, 2, alive.count())
}

func TestRegistryUnsubscribeLastDeletesChannel(t *testing.T) {
	reg := NewChannelRegistry()
	conn := newRecordingConn()

	reg.Subscribe("battle_1", conn)
	reg.Unsubscribe("battle_1", conn)

	require.Equal(t, 0, reg.Subscribers("battle_1"))
	// Publishing to an empty channel is a no-op, not a panic.
	reg.Publish("battle_1", "update", nil)
}

func TestRegistryDeliversInTicketOrder(t *testing.T) {
	reg := NewChannelRegistry()
	conn := newRecordingConn()
	reg.Subscribe("battle_1", conn)

	first := reg.Ticket("battle_1")
	second := reg.Ticket("battle_1")

	// The later ticket blocks until the earlier one has been delivered, no
	// matter which goroutine redeems it first.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reg.PublishAt("battle_1", second, "second", nil)
	}()
	reg.PublishAt("battle_1", first, "first", nil)
	wg.Wait()

	require.Equal(t, []interface{}{"first", "second"}, conn.snapshot())
}

func TestRegistryConcurrentChurn(t *testing.T) {
	reg := NewChannelRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := newRecordingConn()
			for j := 0; j < 50; j++ {
				reg.Subscribe("battle_1", conn)
				reg.Publish("battle_1", j, nil)
				reg.Unsubscribe("battle_1", conn)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 0, reg.Subscribers("battle_1"))
}
