package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Inbound is a message received from a client; the payload is decoded per action.
type Inbound struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// NewErrorMessage encodes an error notice for a single client.
func NewErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Action: "error", Payload: map[string]string{"message": text}})
	return b
}
