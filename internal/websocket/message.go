package websocket

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

// Actions clients may send or receive besides feed updates.
const (
	ActionPing  = "ping"
	ActionPong  = "pong"
	ActionError = "error"
)
