package event

import (
	"sync"
	"time"

	"dragonvpn-app/internal/logger"

	"go.uber.org/zap"
)

type Handler func(Event)

type subscription struct {
	id      uint64
	kinds   map[Kind]struct{}
	handler Handler
}

func (s *subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Bus delivers events synchronously, in the publisher's goroutine, in
// subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for the given kinds, or for every kind when none
// are given. The returned func unsubscribes.
func (b *Bus) Subscribe(h Handler, kinds ...Kind) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, handler: h, kinds: make(map[Kind]struct{}, len(kinds))}
	for _, k := range kinds {
		sub.kinds[k] = struct{}{}
	}
	b.subs = append(b.subs, sub)

	id := sub.id
	return func() { b.unsubscribe(id) }
}

// Listen returns a buffered channel fed with matching events. A full
// channel drops the event instead of blocking the publisher.
func (b *Bus) Listen(buffer int, kinds ...Kind) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	var once sync.Once
	var closed bool
	var mu sync.Mutex

	unsubscribe := b.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			logger.L().Warn("event listener full, dropping event", zap.String("kind", string(e.Kind)))
		}
	}, kinds...)

	return ch, func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.wants(e.Kind) {
			b.deliver(s, e)
		}
	}
}

func (b *Bus) deliver(s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("event handler panicked",
				zap.String("kind", string(e.Kind)),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(e)
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
