package grammar

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var dateRe = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2}|\d{4})$`)

// yearPivot: two-digit years above it belong to the previous century.
const yearPivot = 50

// ParseDate converts an Italian day-first date into ISO form (2006-01-02).
func ParseDate(s string) (string, bool) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		if year > yearPivot {
			year += 1900
		} else {
			year += 2000
		}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// DateFromParts builds an ISO date from day, month and four-digit year strings.
func DateFromParts(day, month, year string) (string, bool) {
	return ParseDate(fmt.Sprintf("%s/%s/%s", day, month, year))
}
