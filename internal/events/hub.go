package events

import (
	"sync"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

type Subscriber struct {
	ID      string
	EntryID string // empty = all entries
	Events  chan StatusEvent
}

// Hub fans status events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
	}
}

func (h *Hub) Subscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub.ID] = sub
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.Events)
		delete(h.subscribers, id)
	}
}

func (h *Hub) Publish(event StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.EntryID != "" && sub.EntryID != event.EntryID {
			continue
		}
		select {
		case sub.Events <- event:
		default:
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// EntryObserver publishes every result of one account as a StatusEvent.
type EntryObserver struct {
	hub         *Hub
	entryID     string
	serviceName string
	username    string
}

func (h *Hub) ForEntry(acct model.Account) *EntryObserver {
	return &EntryObserver{
		hub:         h,
		entryID:     acct.ID,
		serviceName: acct.ServiceName(),
		username:    acct.Username,
	}
}

func (o *EntryObserver) Observe(res model.Result) {
	o.hub.Publish(StatusEvent{
		Type:        StatusUpdateType,
		EntryID:     o.entryID,
		ServiceName: o.serviceName,
		Username:    o.username,
		Outcome:     res.Outcome,
		StatusCode:  res.StatusCode,
		Error:       res.Error,
		Timestamp:   res.At,
	})
}
