package ws

import (
	"context"
	"sync"
	"time"

	"github.com/airdroptracker/internal/logger"
)

// Hub держит живые соединения, сгруппированные по identity. Соединения разных
// пользователей никогда не получают чужие события.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	total      int
	maxConns   int
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	now        func() time.Time
}

func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Done закрывается после того, как Run завершил все соединения.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) shutdown() {
	// Сетевой I/O вне мьютекса.
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Warnf("ws connection limit reached (%d), rejecting identity=%s", h.maxConns, c.identity)
		c.Close()
		return
	}
	if _, ok := h.clients[c.identity]; !ok {
		h.clients[c.identity] = make(map[*Client]struct{})
	}
	h.clients[c.identity][c] = struct{}{}
	h.total++
	h.mu.Unlock()
	logger.Debugf("ws connected identity=%s session=%s", c.identity, logger.MaskSessionID(c.sessionID))
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.identity]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.identity)
	}
	h.mu.Unlock()

	c.Close()
}

// DisconnectSession закрывает соединения сессии sessionID под identity (выход из аккаунта).
// Возвращает число закрытых соединений.
func (h *Hub) DisconnectSession(identity, sessionID string) int {
	if identity == "" || sessionID == "" {
		return 0
	}
	h.mu.Lock()
	var closed []*Client
	for c := range h.clients[identity] {
		if c.sessionID == sessionID {
			closed = append(closed, c)
			delete(h.clients[identity], c)
			h.total--
		}
	}
	if len(h.clients[identity]) == 0 {
		delete(h.clients, identity)
	}
	h.mu.Unlock()

	for _, c := range closed {
		c.Close()
	}
	if len(closed) > 0 {
		logger.Debugf("ws session %s logged out, closed %d connections", logger.MaskSessionID(sessionID), len(closed))
	}
	return len(closed)
}

// Connections - число живых соединений identity.
func (h *Hub) Connections(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[identity])
}

// NotifyRecordsChanged рассылает records_changed всем соединениям identity, кроме
// соединений сессии, которая сама сохранила изменения.
func (h *Hub) NotifyRecordsChanged(identity, originSessionID string) {
	if identity == "" {
		return
	}
	msg := OutgoingMessage{
		Type:    EventRecordsChanged,
		Payload: RecordsChangedPayload{At: h.now().UTC().Format(time.RFC3339)},
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[identity]))
	for c := range h.clients[identity] {
		if originSessionID != "" && c.sessionID == originSessionID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		logger.Warnf("ws send buffer full, dropping identity=%s", c.identity)
		h.Unregister(c)
	}
}
