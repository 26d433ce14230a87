// Package core defines the domain of webclip: the message schema exchanged
// between execution contexts, capture payloads, outline content nodes and the
// collaborator interfaces a host workspace must satisfy.
//
// The package has no knowledge of transports or storage. Adapters live under
// pkg/adapters and the request/response machinery lives in pkg/bridge.
package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the closed set of message kinds crossing a context boundary.
type MessageType string

const (
	TypePing         MessageType = "PING"
	TypeCapture      MessageType = "CAPTURE"
	TypeSearch       MessageType = "SEARCH"
	TypeGetTags      MessageType = "GET_TAGS"
	TypeResponse     MessageType = "RESPONSE"
	TypeStatusUpdate MessageType = "STATUS_UPDATE"
)

// Known reports whether t is one of the declared message types.
func (t MessageType) Known() bool {
	switch t {
	case TypePing, TypeCapture, TypeSearch, TypeGetTags, TypeResponse, TypeStatusUpdate:
		return true
	}
	return false
}

// IsRequest reports whether t expects a correlated RESPONSE.
func (t MessageType) IsRequest() bool {
	switch t {
	case TypePing, TypeCapture, TypeSearch, TypeGetTags:
		return true
	}
	return false
}

// ContextTag identifies the sending side of a message.
type ContextTag string

const (
	// TagBridge marks messages sent by the capture (extension) side.
	TagBridge ContextTag = "extension-bridge"
	// TagHost marks messages sent by the host plugin side.
	TagHost ContextTag = "host-plugin"
)

// Counterpart returns the tag a context expects on inbound messages.
func (c ContextTag) Counterpart() ContextTag {
	if c == TagHost {
		return TagBridge
	}
	return TagHost
}

// Status is carried by STATUS_UPDATE messages.
type Status struct {
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

const (
	StatusReady   = "ready"
	StatusChanged = "changed"
	StatusStopped = "stopped"
)

// Message is the envelope exchanged across every context boundary.
type Message struct {
	Type          MessageType     `json:"type"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       *CapturePayload `json:"payload,omitempty"`
	Query         string          `json:"query,omitempty"`
	Response      *Result         `json:"response,omitempty"`
	Status        *Status         `json:"status,omitempty"`
	Source        ContextTag      `json:"source"`
}

// Validate checks the per-variant shape of a message.
// Unknown types yield ErrUnknownMessageType, malformed known types ErrInvalidMessage.
func (m Message) Validate() error {
	if !m.Type.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}

	switch m.Source {
	case TagBridge, TagHost:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidMessage, m.Source)
	}

	switch m.Type {
	case TypeCapture:
		if m.Payload == nil {
			return fmt.Errorf("%w: CAPTURE without payload", ErrInvalidMessage)
		}
		return m.Payload.Validate()
	case TypeResponse:
		if m.CorrelationID == "" {
			return fmt.Errorf("%w: RESPONSE without correlationId", ErrInvalidMessage)
		}
		if m.Response == nil {
			return fmt.Errorf("%w: RESPONSE without response", ErrInvalidMessage)
		}
	case TypeStatusUpdate:
		if m.Status == nil {
			return fmt.Errorf("%w: STATUS_UPDATE without status", ErrInvalidMessage)
		}
	}
	return nil
}

// DecodeMessage parses a wire message. Only JSON syntax is checked here;
// variant validation is left to the receiver so unknown types can still be
// answered with a correlated error.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return m, nil
}

// Reply builds the RESPONSE envelope for a request.
func (m Message) Reply(res Result, source ContextTag) Message {
	return Message{
		Type:          TypeResponse,
		CorrelationID: m.CorrelationID,
		Response:      &res,
		Source:        source,
	}
}
