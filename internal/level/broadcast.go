package level

import "sync"

// Broadcaster fans snapshots out to any listeners (WebSocket, MQTT,
// BLE). It keeps the most recent frame so a new subscriber gets an
// immediate value instead of waiting for the next tick.
type Broadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan Snapshot
	nextID   int
	last     Snapshot
	haveLast bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Snapshot)}
}

func (b *Broadcaster) Subscribe(buffer int) (int, <-chan Snapshot) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan Snapshot, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last, have := b.last, b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish never blocks: a subscriber that cannot keep up loses frames,
// not the pipeline.
func (b *Broadcaster) Publish(s Snapshot) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]chan Snapshot, 0, len(b.subs))
	for _, ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}
	b.mu.Lock()
	b.last = s
	b.haveLast = true
	b.mu.Unlock()
}
