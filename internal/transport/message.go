package transport

import "encoding/json"

// Message is the wire envelope for inbound updates. Type selects exactly one
// registered handler; unknown types are logged and dropped.
type Message struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Ts      int64           `json:"ts,omitempty"`
}

// Handler processes one inbound message. Handlers are invoked synchronously
// in arrival order and must be cheap; heavy work belongs downstream.
type Handler func(msg Message)

// Well-known message types
const (
	TypePrice  = "price"
	TypeNews   = "news"
	TypeMarket = "market"
	TypePing   = "ping"
	TypePong   = "pong"
)
