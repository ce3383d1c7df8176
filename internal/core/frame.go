package core

import "encoding/json"

// Envelope is the wire shape of every event: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame wraps data under event type t. A json.RawMessage is
// forwarded as-is.
func EncodeFrame(t string, data any) (Frame, error) {
	var raw json.RawMessage
	switch d := data.(type) {
	case nil:
	case json.RawMessage:
		raw = d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: t, Data: raw})
}

// DecodeFrame reads the envelope; Data is left undecoded.
func DecodeFrame(b []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(b, &env)
	return env, err
}
