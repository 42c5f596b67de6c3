package presence

import (
	"encoding/json"
	"time"
)

// BuildFrame wraps an outbound payload in the wire envelope. data is
// marshaled as-is; callers pass maps or json.RawMessage.
func BuildFrame(event string, data any) []byte {
	b, err := json.Marshal(Envelope{Event: event, Data: mustRaw(data)})
	if err != nil {
		// payloads here are maps/raw JSON; marshal cannot realistically fail
		return nil
	}
	return b
}

func mustRaw(data any) json.RawMessage {
	switch v := data.(type) {
	case json.RawMessage:
		return v
	case []byte:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return json.RawMessage(`{}`)
		}
		return b
	}
}

// BuildConnectionAck is the handshake ack carrying the assigned
// connection id.
func BuildConnectionAck(connID string) []byte {
	return BuildFrame(EvtConnEstablished, map[string]any{"socketId": connID})
}

// BuildPong acknowledges a liveness signal with the server time.
func BuildPong(at time.Time) []byte {
	return BuildFrame(EvtPong, map[string]any{"timestamp": at.UnixMilli()})
}
