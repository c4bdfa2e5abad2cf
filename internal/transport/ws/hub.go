package ws

import (
	"context"
	"log/slog"

	"github.com/vedran77/campusnet/internal/domain"
)

// Hub tracks connected clients by identity and routes events to them. One
// identity may hold several connections (tabs, devices).
type Hub struct {
	clients map[domain.Identity]map[*Client]struct{}
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	deliver    chan *delivery
}

type delivery struct {
	recipients []domain.Identity
	data       []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[domain.Identity]map[*Client]struct{}),
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *delivery, 256),
	}
}

// Run is the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = make(map[domain.Identity]map[*Client]struct{})
			return nil

		case client := <-h.register:
			set, ok := h.clients[client.identity]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.identity] = set
			}
			set[client] = struct{}{}
			h.logger.Debug("ws client connected", "identity", client.identity.String(), "connections", len(set))

		case client := <-h.unregister:
			h.drop(client)

		case d := <-h.deliver:
			for _, id := range d.recipients {
				for client := range h.clients[id] {
					select {
					case client.send <- d.data:
					default:
						// Client buffer full - disconnect
						h.logger.Warn("ws client too slow, dropping", "identity", id.String())
						h.drop(client)
					}
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	set, ok := h.clients[client.identity]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.identity)
	}
	close(client.send)
	h.logger.Debug("ws client disconnected", "identity", client.identity.String())
}

// Deliver queues an encoded event for every connection of the recipients.
// It never blocks the caller; when the queue is full the event is dropped.
func (h *Hub) Deliver(recipients []domain.Identity, data []byte) {
	select {
	case h.deliver <- &delivery{recipients: recipients, data: data}:
	default:
		h.logger.Warn("ws delivery queue full, event dropped", "recipients", len(recipients))
	}
}
