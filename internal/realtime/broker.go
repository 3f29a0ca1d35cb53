package realtime

import (
	"fmt"
	"log/slog"
	"sync"
)

// EventType mirrors the row-change kinds a channel can deliver.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// Event is a row-change notification published on a topic. Payload is the
// changed row; handlers type-assert it to the domain type the topic carries.
type Event struct {
	Type    EventType
	Topic   string
	Payload interface{}
}

// Handler receives events. Handlers run on the channel's delivery goroutine;
// they may block on their own I/O without stalling publishers.
type Handler func(Event)

// Topic builders keep topic strings in one place.
func ProjectMessagesTopic(projectID string) string {
	return fmt.Sprintf("project:%s:messages", projectID)
}

func UserNotificationsTopic(userID string) string {
	return fmt.Sprintf("user:%s:notifications", userID)
}

// Broker is an in-process realtime fan-out hub. Channels subscribe to a
// topic, optionally filtered by event type, and receive published events
// asynchronously in publish order.
type Broker struct {
	mu       sync.RWMutex
	channels map[string][]*Channel // topic -> subscribed channels
}

func NewBroker() *Broker {
	return &Broker{channels: make(map[string][]*Channel)}
}

// Channel creates an unsubscribed channel bound to topic. Call On to attach
// handlers, then Subscribe to start delivery.
func (b *Broker) Channel(topic string) *Channel {
	return &Channel{broker: b, topic: topic, queue: make(chan Event, 64)}
}

// Publish delivers an event to every subscribed channel on the topic.
// A channel whose queue is full has the event dropped with a warning rather
// than blocking the publisher.
func (b *Broker) Publish(topic string, typ EventType, payload interface{}) {
	b.mu.RLock()
	subs := b.channels[topic]
	b.mu.RUnlock()

	ev := Event{Type: typ, Topic: topic, Payload: payload}
	for _, ch := range subs {
		select {
		case ch.queue <- ev:
		default:
			slog.Warn("realtime queue full, dropping event", "topic", topic, "type", typ)
		}
	}
}

// RemoveChannel unsubscribes the channel and stops its delivery goroutine.
// Safe to call more than once.
func (b *Broker) RemoveChannel(ch *Channel) {
	if ch == nil {
		return
	}
	b.mu.Lock()
	subs := b.channels[ch.topic]
	for i, s := range subs {
		if s == ch {
			b.channels[ch.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	ch.closeOnce.Do(func() { close(ch.queue) })
}

// Channel is a single subscription to a topic.
type Channel struct {
	broker    *Broker
	topic     string
	queue     chan Event
	handlers  []filteredHandler
	closeOnce sync.Once
}

type filteredHandler struct {
	typ EventType // empty matches every event type
	fn  Handler
}

// On registers a handler for events of the given type. An empty type matches
// all events. Returns the channel for chaining.
func (c *Channel) On(typ EventType, fn Handler) *Channel {
	c.handlers = append(c.handlers, filteredHandler{typ: typ, fn: fn})
	return c
}

// Subscribe registers the channel with the broker and starts its delivery
// goroutine. Events published before Subscribe are not seen.
func (c *Channel) Subscribe() *Channel {
	c.broker.mu.Lock()
	c.broker.channels[c.topic] = append(c.broker.channels[c.topic], c)
	c.broker.mu.Unlock()

	go func() {
		for ev := range c.queue {
			for _, h := range c.handlers {
				if h.typ == "" || h.typ == ev.Type {
					h.fn(ev)
				}
			}
		}
	}()
	return c
}

// Topic returns the topic this channel is bound to.
func (c *Channel) Topic() string {
	return c.topic
}
