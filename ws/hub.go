package ws

import (
	"log"
	"sync"

	"github.com/Amit43verma/alumni-portal/models"
)

type subscription struct {
	client  *Client
	channel string
}

type outbound struct {
	channel string
	data    []byte
}

// Hub is the connection registry of the messaging gateway. It owns the
// channel attachment maps and the presence tracker; every mutation goes
// through its Run loop or is guarded by its mutex, never through ambient
// global state.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	channels map[string]map[*Client]bool

	presence *PresenceTracker

	register   chan *Client
	unregister chan *Client
	attach     chan subscription
	detach     chan subscription
	broadcast  chan outbound
}

func NewHub(presence *PresenceTracker) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		presence:   presence,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		attach:     make(chan subscription),
		detach:     make(chan subscription),
		broadcast:  make(chan outbound, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case sub := <-h.attach:
			h.attachClient(sub.client, sub.channel)
		case sub := <-h.detach:
			h.detachClient(sub.client, sub.channel)
		case out := <-h.broadcast:
			h.fanOut(out.channel, out.data)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	if h.presence.Connect(c.userID) {
		h.deliverAll(encodeFrame(EventUserOnline, c.userID))
	}
	log.Printf("Client %s connected. Total clients: %d", c.userID, total)
}

// removeClient detaches c from every channel, closes its send buffer and
// updates presence. Safe to call more than once per client.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for channel, clients := range h.channels {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
	// Signal shutdown rather than closing send: the client's own read
	// loop may still be emitting error frames.
	close(c.done)
	total := len(h.clients)
	h.mu.Unlock()

	if h.presence.Disconnect(c.userID) {
		h.deliverAll(encodeFrame(EventUserOffline, c.userID))
	}
	log.Printf("Client %s disconnected. Total clients: %d", c.userID, total)
}

func (h *Hub) attachClient(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][c] = true
	log.Printf("Client %s joined channel %s. Attached clients: %d", c.userID, channel, len(h.channels[channel]))
}

func (h *Hub) detachClient(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.channels, channel)
	}
}

// fanOut delivers data to every connection attached to channel, the
// sender's own included. Clients whose send buffer is full are dropped
// from the hub entirely; their pumps shut down on the closed channel.
func (h *Hub) fanOut(channel string, data []byte) {
	if data == nil {
		return
	}
	h.mu.RLock()
	var stuck []*Client
	for client := range h.channels[channel] {
		select {
		case client.send <- data:
		default:
			stuck = append(stuck, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stuck {
		log.Printf("Client %s send buffer full, dropping connection", client.userID)
		h.removeClient(client)
	}
}

// deliverAll sends data to every connected client regardless of channel
// attachment (presence events).
func (h *Hub) deliverAll(data []byte) {
	if data == nil {
		return
	}
	h.mu.RLock()
	var stuck []*Client
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			stuck = append(stuck, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stuck {
		log.Printf("Client %s send buffer full, dropping connection", client.userID)
		h.removeClient(client)
	}
}

// BroadcastMessage fans a persisted chat message out to its room channel.
// Called by the message service strictly after the write committed.
func (h *Hub) BroadcastMessage(msg models.Message) {
	h.broadcast <- outbound{
		channel: roomChannel(msg.RoomID.Hex()),
		data:    encodeFrame(EventNewMessage, msg),
	}
}

// CountAttached reports how many connections are attached to a room's
// channel, for diagnostics.
func (h *Hub) CountAttached(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[roomChannel(roomID)])
}
