package core

import (
	"time"

	"github.com/google/uuid"
)

// JournalNameLayout is the name a journal entry is created with,
// e.g. "Monday, December 29, 2025".
const JournalNameLayout = "Monday, January 2, 2006"

// NewGUID returns a time-ordered guid.
func NewGUID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// RecordGUID returns a guid for a new record named name. Names that read as a
// journal date get that date appended as YYYYMMDD, which is how journal
// entries are recognized later.
func RecordGUID(name string) string {
	guid := NewGUID()
	if t, err := time.Parse(JournalNameLayout, name); err == nil {
		guid += "-" + t.Format("20060102")
	}
	return guid
}
