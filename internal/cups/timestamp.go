package cups

import (
	"strings"
	"time"
)

// months are the abbreviations lpstat emits in job submission dates.
var months = map[string]bool{
	"Jan": true, "Feb": true, "Mar": true, "Apr": true,
	"May": true, "Jun": true, "Jul": true, "Aug": true,
	"Sep": true, "Oct": true, "Nov": true, "Dec": true,
}

// parseSubmittedAt recovers a submission time from the free-text tail of
// a job header line, best effort. It scans for a month abbreviation with
// a day token before it and year + time tokens after it, trying the
// seconds form before the minutes form, then folds a trailing AM/PM
// marker into 24-hour time. Any tail it cannot make sense of yields the
// zero time; an unrecognized date is an expected outcome here, not an
// error.
func parseSubmittedAt(rest string) time.Time {
	tokens := strings.Fields(rest)

	for i, tok := range tokens {
		if !months[tok] {
			continue
		}
		if i == 0 || i+2 >= len(tokens) {
			continue
		}

		day, year, clock := tokens[i-1], tokens[i+1], tokens[i+2]

		// A time token without a colon means this month word was a false
		// match (a filename, a user name).
		if !strings.Contains(clock, ":") {
			continue
		}

		candidate := day + " " + tok + " " + year + " " + clock
		ts, err := time.ParseInLocation("2 Jan 2006 15:04:05", candidate, time.Local)
		if err != nil {
			ts, err = time.ParseInLocation("2 Jan 2006 15:04", candidate, time.Local)
			if err != nil {
				continue
			}
		}

		if i+3 < len(tokens) {
			ts = foldMeridian(ts, tokens[i+3])
		}

		return ts
	}

	return time.Time{}
}

// foldMeridian converts a parsed hour to 24-hour form when the token
// after the time is an AM/PM marker: 12 AM means hour 0, 12 PM stays 12,
// any other PM hour gains 12.
func foldMeridian(ts time.Time, marker string) time.Time {
	hour := ts.Hour()
	switch marker {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return ts
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), hour, ts.Minute(), ts.Second(), 0, ts.Location())
}
