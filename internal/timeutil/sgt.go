package timeutil

import (
	"time"
)

// SGT is the Singapore Time location (UTC+8). Test dates and reference
// numbers are recorded in local workshop time.
var SGT *time.Location

func init() {
	var err error
	SGT, err = time.LoadLocation("Asia/Singapore")
	if err != nil {
		// Fallback: create fixed zone if Asia/Singapore not available
		SGT = time.FixedZone("SGT", 8*60*60)
	}
}

// Now returns the current time in SGT
func Now() time.Time {
	return time.Now().In(SGT)
}

// ToSGT converts any time to SGT
func ToSGT(t time.Time) time.Time {
	return t.In(SGT)
}

// ParseDate parses a YYYY-MM-DD date string in SGT
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, SGT)
}

// FormatDate formats a time as YYYY-MM-DD in SGT
func FormatDate(t time.Time) string {
	return t.In(SGT).Format(DateLayout)
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)
