// services/channel_registry.go
package services

import (
	"log"
	"sync"
)

// Connection is the write side of one subscribed client. *websocket.Conn
// satisfies it.
type Connection interface {
	WriteJSON(v interface{}) error
}

// ChannelRegistry maps an opaque channel key to the set of currently open
// connections. The registry exclusively owns the mapping; nothing else keeps a
// copy of a subscriber set.
//
// Delivery per key is strictly ordered: every publish occupies a ticket in the
// key's delivery sequence and messages reach subscribers one at a time in
// ticket order. Callers that must pin a message's position relative to their
// own critical section (battle snapshots against their mutation order) take
// the ticket themselves with Ticket and deliver it with PublishAt.
type ChannelRegistry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	channels map[string]map[Connection]struct{}
	order    map[string]*publishOrder
}

// publishOrder tracks the delivery sequence for one key.
type publishOrder struct {
	next    uint64 // next ticket to hand out
	serving uint64 // ticket currently cleared to deliver
}

func NewChannelRegistry() *ChannelRegistry {
	r := &ChannelRegistry{
		channels: make(map[string]map[Connection]struct{}),
		order:    make(map[string]*publishOrder),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *ChannelRegistry) Subscribe(key string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.channels[key]
	if !ok {
		subs = make(map[Connection]struct{})
		r.channels[key] = subs
	}
	subs[conn] = struct{}{}
	log.Printf("[Registry] subscribed to %s (%d connections)", key, len(subs))
}

// Unsubscribe removes conn from key; the last removal deletes the key entirely
// so empty channels never accumulate. The delivery sequence for the key is
// dropped with it once no ticket is outstanding.
func (r *ChannelRegistry) Unsubscribe(key string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.channels[key]
	if !ok {
		return
	}
	delete(subs, conn)
	if len(subs) == 0 {
		delete(r.channels, key)
		if o := r.order[key]; o != nil && o.serving == o.next {
			delete(r.order, key)
		}
		log.Printf("[Registry] no connections left for %s", key)
	}
}

// Ticket reserves the next slot in key's delivery order. Every ticket MUST be
// redeemed with PublishAt; an abandoned ticket stalls the key's deliveries.
func (r *ChannelRegistry) Ticket(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.order[key]
	if o == nil {
		o = &publishOrder{}
		r.order[key] = o
	}
	t := o.next
	o.next++
	return t
}

// Publish delivers message to every subscriber of key except exclude (nil
// means deliver to all), ordered by call time relative to other publishes on
// the key.
func (r *ChannelRegistry) Publish(key string, message interface{}, exclude Connection) {
	r.PublishAt(key, r.Ticket(key), message, exclude)
}

// PublishAt delivers message in the slot reserved by ticket. It blocks until
// every earlier ticket on the key has been delivered, then iterates a snapshot
// of the subscriber set taken under the lock. A send failure implicitly
// unsubscribes that connection and delivery continues. Sends for one key never
// interleave; only one message is in flight per key at a time.
func (r *ChannelRegistry) PublishAt(key string, ticket uint64, message interface{}, exclude Connection) {
	r.mu.Lock()
	o := r.order[key]
	for o.serving != ticket {
		r.cond.Wait()
	}
	subs := r.channels[key]
	snapshot := make([]Connection, 0, len(subs))
	for conn := range subs {
		if conn != exclude {
			snapshot = append(snapshot, conn)
		}
	}
	r.mu.Unlock()

	for _, conn := range snapshot {
		if err := conn.WriteJSON(message); err != nil {
			log.Printf("[Registry] send failed on %s, dropping connection: %v", key, err)
			r.Unsubscribe(key, conn)
		}
	}

	r.mu.Lock()
	o.serving++
	if o.serving == o.next && len(r.channels[key]) == 0 {
		delete(r.order, key)
	}
	r.cond.Broadcast()
	r.mu.Unlock()
}

// Subscribers reports the current subscriber count for key.
func (r *ChannelRegistry) Subscribers(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[key])
}
