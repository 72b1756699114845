package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

const broadcastBuffer = 256

type envelope struct {
	topic string
	data  []byte
}

// Hub maintains the set of active clients and broadcasts listing messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages waiting to be fanned out.
	broadcast chan envelope

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// A map of category names to the clients following only that category.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:     make(chan envelope, broadcastBuffer),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			if client.Topic != "" {
				h.addSubscription(client, client.Topic)
			}
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues a listing message. Clients following every category always
// receive it; clients following a single category receive it when topic
// matches. Publish never blocks: when the queue is full the message is dropped.
func (h *Hub) Publish(topic, action string, payload interface{}) {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode feed message")
		return
	}

	select {
	case h.broadcast <- envelope{topic: topic, data: data}:
	default:
		log.Warn().Str("action", action).Str("topic", topic).Msg("Feed queue full, dropping message")
	}
}

func (h *Hub) deliver(msg envelope) {
	for client := range h.clients {
		if client.Topic == "" {
			h.send(client, msg.data)
		}
	}
	if msg.topic == "" {
		return
	}
	for client := range h.subscriptions[msg.topic] {
		h.send(client, msg.data)
	}
}

func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		// Slow consumer.
		h.drop(client)
	}
}

// join and leave give up once the hub has stopped.
func (h *Hub) join(client *Client) {
	select {
	case h.Register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for topic, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
}
