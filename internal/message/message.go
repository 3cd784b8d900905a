// Package message defines the bubbleclip control protocol.
//
// All messages are newline-delimited JSON. Text payloads are base64-encoded
// so that arbitrary clipboard content is safe to embed in JSON strings.
// Each message is exactly one line: <json>\n
package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Type identifies the kind of message.
type Type string

const (
	TypeCapture        Type = "CAPTURE"
	TypeStatus         Type = "STATUS"
	TypeStatusResponse Type = "STATUS_RESPONSE"
	TypeTrim           Type = "TRIM"
	TypeMark           Type = "MARK"
	TypeOK             Type = "OK"
	TypeError          Type = "ERROR"
)

// Marker is the bubble operation carried by a MARK message.
type Marker string

const (
	MarkReplace Marker = "replace"
	MarkAppend  Marker = "append"
	MarkClear   Marker = "clear"
	MarkPin     Marker = "pin"
	MarkUnpin   Marker = "unpin"
)

// BubbleInfo describes one live bubble in a STATUS response.
type BubbleInfo struct {
	ID      string  `json:"id"`
	State   string  `json:"state"`
	Type    string  `json:"type,omitempty"`
	Pinned  bool    `json:"pinned,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Preview string  `json:"preview,omitempty"`
}

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type   Type   `json:"type"`
	Source string `json:"source,omitempty"`

	// CAPTURE: base64-encoded text
	Payload string `json:"payload,omitempty"`

	// MARK
	Bubble string `json:"bubble,omitempty"`
	Marker Marker `json:"marker,omitempty"`

	// STATUS_RESPONSE
	Bubbles  []BubbleInfo `json:"bubbles,omitempty"`
	Degraded bool         `json:"degraded,omitempty"`
	Mode     string       `json:"mode,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// NewCapture returns a CAPTURE message carrying text.
func NewCapture(source, text string) *Message {
	return &Message{
		Type:    TypeCapture,
		Source:  source,
		Payload: base64.StdEncoding.EncodeToString([]byte(text)),
	}
}

// NewError returns an ERROR message.
func NewError(err error) *Message {
	return &Message{Type: TypeError, Error: err.Error()}
}

// Text returns the decoded CAPTURE payload.
func (m *Message) Text() (string, error) {
	b, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return "", fmt.Errorf("payload decode: %w", err)
	}
	return string(b), nil
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message decode: missing type")
	}
	return &m, nil
}
