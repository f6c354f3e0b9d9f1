package events

import (
	"strings"
	"sync"
)

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// Bus is a per-player pub/sub event bus with support for global subscribers.
// Game code emits events; each subscriber (Descriptor, logger, etc.)
// decides how to render them.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	global      []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]Subscriber),
	}
}

func key(player string) string {
	return strings.ToLower(player)
}

// Subscribe registers a subscriber for a specific player's events.
func (b *Bus) Subscribe(player string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(player)
	b.subscribers[k] = append(b.subscribers[k], sub)
}

// Unsubscribe removes a subscriber for a specific player.
func (b *Bus) Unsubscribe(player string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(player)
	subs := b.subscribers[k]
	for i, s := range subs {
		if s == sub {
			b.subscribers[k] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[k]) == 0 {
		delete(b.subscribers, k)
	}
}

// SubscribeGlobal registers a subscriber that receives all events.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, sub)
}

// Emit sends an event to the player specified in ev.Player and all global subscribers.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs := b.subscribers[key(ev.Player)]
	globals := b.global
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// EmitToPlayer sends an event to a specific player (overriding ev.Player).
func (b *Bus) EmitToPlayer(player string, ev Event) {
	ev.Player = player
	b.Emit(ev)
}

// EmitToPlayers sends an event to each listed player except one.
// Global subscribers see the event once, with Player cleared.
func (b *Bus) EmitToPlayers(players []string, except string, ev Event) {
	b.mu.RLock()
	globals := b.global
	b.mu.RUnlock()

	seen := make(map[string]bool)
	for _, name := range players {
		k := key(name)
		if seen[k] || (except != "" && k == key(except)) {
			continue
		}
		seen[k] = true

		playerEv := ev
		playerEv.Player = name

		b.mu.RLock()
		subs := b.subscribers[k]
		b.mu.RUnlock()

		for _, s := range subs {
			if !s.Closed() {
				s.Receive(playerEv)
			}
		}
	}

	ev.Player = ""
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// Cleanup removes closed subscribers from all lists.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for player, subs := range b.subscribers {
		var active []Subscriber
		for _, s := range subs {
			if !s.Closed() {
				active = append(active, s)
			}
		}
		if len(active) == 0 {
			delete(b.subscribers, player)
		} else {
			b.subscribers[player] = active
		}
	}

	var activeGlobal []Subscriber
	for _, s := range b.global {
		if !s.Closed() {
			activeGlobal = append(activeGlobal, s)
		}
	}
	b.global = activeGlobal
}
