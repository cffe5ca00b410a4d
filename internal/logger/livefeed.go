package logger

import "sync"

// LiveFeed fans out completed dispatch logs to in-process subscribers (the
// live trace endpoint). Delivery is best-effort: a subscriber whose channel
// is full misses the record rather than stalling the publisher.
type LiveFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan DispatchLog
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{subs: make(map[int]chan DispatchLog)}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (f *LiveFeed) Subscribe(buffer int) (<-chan DispatchLog, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan DispatchLog, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if existing, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(existing)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers entry to every subscriber that has room.
func (f *LiveFeed) Publish(entry DispatchLog) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (f *LiveFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
