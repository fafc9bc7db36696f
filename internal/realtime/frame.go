package realtime

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Event types produced by the channel.
const (
	EventUserJoined  = "user_joined"
	EventChatMessage = "chat_message"
	EventEcho        = "echo"
)

// TimestampFormat is the ISO-8601 UTC form carried in synthetic events.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Frame is the inbound envelope.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handler receives the data of one event.
type Handler func(data json.RawMessage)

func timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

type mockUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

var mockPeer = mockUser{ID: 2, Username: "sarah_m"}

func userJoined(now time.Time) json.RawMessage {
	data, _ := json.Marshal(struct {
		User      mockUser `json:"user"`
		Timestamp string   `json:"timestamp"`
	}{mockPeer, timestamp(now)})
	return data
}

func chatMessage(now time.Time) json.RawMessage {
	data, _ := json.Marshal(struct {
		ID        int64    `json:"id"`
		User      mockUser `json:"user"`
		Message   string   `json:"message"`
		Timestamp string   `json:"timestamp"`
	}{now.UnixMilli(), mockPeer, "Hello from mock WebSocket!", timestamp(now)})
	return data
}

// echoData returns payload with a timestamp field set. Payloads that are not
// JSON objects are wrapped as {"payload": ..., "timestamp": ...}.
func echoData(payload []byte, now time.Time) (json.RawMessage, error) {
	ts := timestamp(now)
	if gjson.ParseBytes(payload).IsObject() {
		return sjson.SetBytes(payload, "timestamp", ts)
	}
	out, err := sjson.SetRawBytes([]byte(`{}`), "payload", payload)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "timestamp", ts)
}
