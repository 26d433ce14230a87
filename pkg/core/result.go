package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode classifies a failed Result on the wire.
type ErrorCode string

const (
	CodeUnreachable         ErrorCode = "unreachable"
	CodeUnknownMessageType  ErrorCode = "unknown_message_type"
	CodeInvalidMessage      ErrorCode = "invalid_message"
	CodeDestinationNotFound ErrorCode = "destination_not_found"
	CodeNodeCreationFailed  ErrorCode = "node_creation_failed"
	CodeCollaborator        ErrorCode = "collaborator"
	CodeCanceled            ErrorCode = "canceled"
	CodeInternal            ErrorCode = "internal"
)

// UnknownMessageTypeText is the wire text for unrouted message types.
const UnknownMessageTypeText = "Unknown message type"

var codeSentinels = map[ErrorCode]error{
	CodeUnreachable:         ErrUnreachable,
	CodeUnknownMessageType:  ErrUnknownMessageType,
	CodeInvalidMessage:      ErrInvalidMessage,
	CodeDestinationNotFound: ErrDestinationNotFound,
	CodeNodeCreationFailed:  ErrNodeCreationFailed,
	CodeCanceled:            ErrCanceled,
}

// Result is the body of a RESPONSE: either handler data or an error.
// On the wire an error is {"error": "...", "code": "..."}; data is any JSON value.
type Result struct {
	Data  json.RawMessage
	Error string
	Code  ErrorCode
}

type wireError struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code,omitempty"`
}

// OK marshals v into a successful Result.
func OK(v any) (Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode result: %w", err)
	}
	return Result{Data: data}, nil
}

// Failure builds an error Result.
func Failure(code ErrorCode, msg string) Result {
	return Result{Error: msg, Code: code}
}

// ResultFromError maps an error to a wire Result, picking the code from the
// domain sentinels it wraps.
func ResultFromError(err error) Result {
	if err == nil {
		return Result{Data: json.RawMessage("null")}
	}
	if errors.Is(err, ErrUnknownMessageType) {
		return Failure(CodeUnknownMessageType, UnknownMessageTypeText)
	}
	for _, code := range []ErrorCode{
		CodeUnreachable,
		CodeInvalidMessage,
		CodeDestinationNotFound,
		CodeNodeCreationFailed,
		CodeCanceled,
	} {
		if errors.Is(err, codeSentinels[code]) {
			return Failure(code, err.Error())
		}
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return Failure(CodeCollaborator, err.Error())
	}
	return Failure(CodeInternal, err.Error())
}

// Failed reports whether the Result carries an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Err converts a failed Result back into an error matching the domain sentinels.
func (r Result) Err() error {
	if !r.Failed() {
		return nil
	}
	return &RemoteError{Code: r.Code, Message: r.Error}
}

// Decode unmarshals the Result data into v, or returns its error.
func (r Result) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(wireError{Error: r.Error, Code: r.Code})
	}
	if len(r.Data) == 0 {
		return []byte("null"), nil
	}
	return r.Data, nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	*r = Result{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe struct {
			Error *string   `json:"error"`
			Code  ErrorCode `json:"code"`
		}
		if err := json.Unmarshal(trimmed, &probe); err == nil && probe.Error != nil {
			r.Error = *probe.Error
			r.Code = probe.Code
			if r.Error == "" {
				r.Error = "unspecified error"
			}
			return nil
		}
	}
	r.Data = append(json.RawMessage(nil), trimmed...)
	return nil
}

// RemoteError is a failure reported by the other side of a boundary.
type RemoteError struct {
	Code    ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is matches the domain sentinel for the error's code.
func (e *RemoteError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}
