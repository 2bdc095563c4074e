package ws

import (
	"sync"

	"pokernight/internal/roster"
	"pokernight/pkg/logger"

	"go.uber.org/zap"
)

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

type feedKey struct {
	sessionID string
	table     int
}

// Hub fans table snapshots out to the websocket clients watching them.
// Clients only ever see tables of their own session.
type Hub struct {
	mu          sync.Mutex
	seq         int64
	nextID      uint64
	subscribers map[feedKey]map[uint64]chan OutgoingMessage
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[feedKey]map[uint64]chan OutgoingMessage),
	}
}

func (h *Hub) Subscribe(sessionID string, table int) (uint64, <-chan OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := feedKey{sessionID: sessionID, table: table}
	subs, ok := h.subscribers[key]
	if !ok {
		subs = make(map[uint64]chan OutgoingMessage)
		h.subscribers[key] = subs
	}
	h.nextID++
	ch := make(chan OutgoingMessage, 8)
	subs[h.nextID] = ch
	return h.nextID, ch
}

func (h *Hub) Unsubscribe(sessionID string, table int, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := feedKey{sessionID: sessionID, table: table}
	subs, ok := h.subscribers[key]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		delete(subs, id)
		close(ch)
	}
	if len(subs) == 0 {
		delete(h.subscribers, key)
	}
}

// PublishTable never blocks: a subscriber whose buffer is full misses the update.
func (h *Hub) PublishTable(sessionID string, table *roster.Table) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[feedKey{sessionID: sessionID, table: table.Number}]
	if len(subs) == 0 {
		return
	}
	h.seq++
	msg := OutgoingMessage{Type: "state", Seq: h.seq, Data: table.Clone()}
	for id, ch := range subs {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Uint64("subscriber", id),
				zap.Int("table", table.Number))
		}
	}
}

func (h *Hub) nextSeq() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return h.seq
}
