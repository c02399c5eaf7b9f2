package clock

import "time"

// Parts is the wall-clock rendering of an absolute instant in some zone.
type Parts struct {
	Year    int
	Month   time.Month
	Day     int
	Hour    int
	Minute  int
	Second  int
	Weekday time.Weekday
}

// ZonedParts renders t as wall-clock components in loc.
func ZonedParts(t time.Time, loc *time.Location) Parts {
	local := t.In(loc)
	return Parts{
		Year:    local.Year(),
		Month:   local.Month(),
		Day:     local.Day(),
		Hour:    local.Hour(),
		Minute:  local.Minute(),
		Second:  local.Second(),
		Weekday: local.Weekday(),
	}
}

// FromParts maps wall-clock components in loc back to an absolute instant.
// Out-of-range components are normalized (Day 32 rolls into the next month),
// and an ambiguous local time around a DST jump resolves to whatever the
// zone database picks.
func FromParts(p Parts, loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second, 0, loc).UTC()
}

// Location resolves an IANA zone name like "America/Sao_Paulo".
func Location(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}
