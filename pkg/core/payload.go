package core

import (
	"fmt"
	"strings"
)

// CaptureMode selects how a payload is laid out in the outline.
type CaptureMode string

const (
	ModeLink      CaptureMode = "link"
	ModeSelection CaptureMode = "selection"
	ModeFullPage  CaptureMode = "fullpage"
)

// DestinationType selects how the anchor record is located.
type DestinationType string

const (
	DestinationJournal DestinationType = "journal"
	DestinationPage    DestinationType = "page"
)

// DestinationRef points at the record a capture is inserted into.
type DestinationRef struct {
	Type     DestinationType `json:"type"`
	PageGUID string          `json:"pageGuid,omitempty"`
}

// CapturePayload is the unstructured excerpt handed over by the capture side.
type CapturePayload struct {
	Mode        CaptureMode    `json:"mode"`
	URL         string         `json:"url,omitempty"`
	Title       string         `json:"title,omitempty"`
	Content     string         `json:"content,omitempty"`
	Images      []string       `json:"images,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Destination DestinationRef `json:"destination"`
}

// Validate rejects unknown modes and destination types.
func (p CapturePayload) Validate() error {
	switch p.Mode {
	case ModeLink, ModeSelection, ModeFullPage:
	default:
		return fmt.Errorf("%w: unknown capture mode %q", ErrInvalidMessage, p.Mode)
	}
	switch p.Destination.Type {
	case DestinationJournal, DestinationPage:
	default:
		return fmt.Errorf("%w: unknown destination type %q", ErrInvalidMessage, p.Destination.Type)
	}
	return nil
}

// InferMode picks selection when there is content and link otherwise.
func InferMode(content string) CaptureMode {
	if strings.TrimSpace(content) != "" {
		return ModeSelection
	}
	return ModeLink
}

// IsInlineImage reports whether an image reference is an inline data URL.
func IsInlineImage(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}
