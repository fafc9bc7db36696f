package relay

import (
	"encoding/json"
	"time"
)

// Envelope is the published message body.
type Envelope struct {
	Channel    string          `json:"channel"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Encode builds the body for one event received on channel.
func Encode(channel, eventType string, data json.RawMessage, at time.Time) ([]byte, error) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return json.Marshal(Envelope{Channel: channel, Type: eventType, Data: data, ReceivedAt: at.UTC()})
}
