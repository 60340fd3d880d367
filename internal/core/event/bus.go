// Package event carries world notifications between game-loop systems:
// players entering and leaving, drops spawning, changing and vanishing, and
// applied pickups. Everything runs on the game-loop goroutine.
package event

import (
	"reflect"
	"sync"
)

// Bus delays events by one tick. The PickupApplied and LootRemoved emitted
// while the pickup phase resolves tick N reach the audit sink and the
// spawner in the dispatch phase of tick N+1, after the client already has
// its S_INVENTORY and S_LOOT_REMOVE.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues event for the next dispatch. Game loop only.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.back[t] = append(b.back[t], event)
}

// Subscribe adds fn for every T. Wiring happens at boot, before the first
// tick; handlers run in subscription order.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers makes last tick's events dispatchable and starts an empty
// queue for this tick.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll hands each event queued last tick to every handler of its
// type. Events of one type keep emission order; unrelated types are visited
// in map order. A handler that emits queues into the next tick.
func (b *Bus) DispatchAll() {
	for t, events := range b.front {
		handlers := b.handlers[t]
		for _, ev := range events {
			for _, h := range handlers {
				callHandler(h, ev)
			}
		}
	}
}

// callHandler invokes a func(T) stored as any; Subscribe and Emit key both
// on T.
func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
