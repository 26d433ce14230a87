package capture

import (
	"regexp"
	"time"
)

// TimestampLayout renders the capture time appended to non-journal titles,
// e.g. "Dec 29, 2025, 3:04 PM".
const TimestampLayout = "Jan 2, 2006, 3:04 PM"

// journalDates holds the forms today's date takes in journal guids and names.
type journalDates struct {
	compact  string // 20251229
	monthDay string // December 29
	full     string // Monday, December 29, 2025
}

func datesFor(t time.Time) journalDates {
	return journalDates{
		compact:  t.Format("20060102"),
		monthDay: t.Format("January 2"),
		full:     t.Format("Monday, January 2, 2006"),
	}
}

var dateSuffix = regexp.MustCompile(`(\d{8})$`)

// guidDate extracts the trailing YYYYMMDD of a journal guid.
func guidDate(guid string) (string, bool) {
	m := dateSuffix.FindStringSubmatch(guid)
	if m == nil {
		return "", false
	}
	return m[1], true
}
