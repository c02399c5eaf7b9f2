package window

import (
	"errors"
	"fmt"
	"time"

	"mailsched/internal/clock"
	"mailsched/internal/models"
)

var ErrInvalidTime = errors.New("invalid time")

const (
	openHour  = 9
	closeHour = 18

	// maxSteps bounds the forward walk in NextStart. Weekend days are crossed
	// one day per step, so the budget covers a full weekend with room to
	// spare; the walk never loops unbounded.
	maxSteps = 14
)

// Policy decides whether an instant falls inside the allowed sending window
// and, if not, where delivery should be pushed to.
type Policy struct {
	now func() time.Time
}

func NewPolicy() *Policy {
	return &Policy{now: time.Now}
}

// Within reports whether p falls inside the delivery window: weekdays from
// 09:00 up to and including exactly 18:00.
func Within(p clock.Parts) bool {
	if p.Weekday == time.Saturday || p.Weekday == time.Sunday {
		return false
	}
	if p.Hour >= openHour && p.Hour < closeHour {
		return true
	}
	return p.Hour == closeHour && p.Minute == 0
}

// NextStart returns t unchanged when it already sits inside the window.
// Otherwise it walks forward: weekends and after-hours evenings push to
// 09:00 local of the next day, early mornings snap to 09:00 of the same
// day. A snapped candidate is accepted when it is at or after "now"; a
// stale one keeps the walk going in one-hour steps. If the step budget
// runs out, t comes back unmodified - a degraded but safe default.
func (p *Policy) NextStart(t time.Time, loc *time.Location) time.Time {
	if Within(clock.ZonedParts(t, loc)) {
		return t
	}

	now := p.now()
	cand := t
	for i := 0; i < maxSteps; i++ {
		parts := clock.ZonedParts(cand, loc)
		switch {
		case parts.Weekday == time.Saturday || parts.Weekday == time.Sunday:
			cand = nextDayOpen(parts, loc)
		case parts.Hour < openHour:
			snapped := snapToOpen(parts, loc)
			if !snapped.Before(now) {
				return snapped
			}
			cand = snapped.Add(time.Hour)
		case !Within(parts):
			cand = nextDayOpen(parts, loc)
		default:
			if !cand.Before(now) {
				return cand
			}
			cand = cand.Add(time.Hour)
		}
	}
	return t
}

// Resolve parses the requested run time and applies the window policy for
// business-window jobs. Immediate jobs keep the parsed instant as-is, even
// when it is already in the past.
func (p *Policy) Resolve(runAt, timeZone string, sw models.SendWindow) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, runAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, runAt)
	}
	loc, err := clock.Location(timeZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unknown time zone %q", ErrInvalidTime, timeZone)
	}
	if sw == models.SendWindowBusiness {
		return p.NextStart(t.UTC(), loc), nil
	}
	return t.UTC(), nil
}

func snapToOpen(p clock.Parts, loc *time.Location) time.Time {
	p.Hour, p.Minute, p.Second = openHour, 0, 0
	return clock.FromParts(p, loc)
}

func nextDayOpen(p clock.Parts, loc *time.Location) time.Time {
	p.Day++
	return snapToOpen(p, loc)
}
