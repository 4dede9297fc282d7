package wizard

import "time"

// dateLayouts are the textual date shapes accepted from form clients, most
// specific first. Anything else is treated as unparseable.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateString parses a date or timestamp string in any accepted layout.
func ParseDateString(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
