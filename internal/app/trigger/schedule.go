package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/syncfix/syncfix/internal/domain"
)

// Schedule is the wall-clock fire pattern of the scheduled trigger:
// one time of day on a set of weekdays, in local time.
type Schedule struct {
	spec  string
	sched cron.Schedule
	days  map[time.Weekday]bool
}

// NewSchedule builds a schedule firing at at on days (empty = daily).
func NewSchedule(at domain.TimeOfDay, days []time.Weekday) (*Schedule, error) {
	dow := "*"
	if len(days) > 0 {
		parts := make([]string, 0, len(days))
		for _, d := range days {
			parts = append(parts, strconv.Itoa(int(d)))
		}
		dow = strings.Join(parts, ",")
	}

	spec := fmt.Sprintf("%d %d * * %s", at.Minute, at.Hour, dow)
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("build schedule %q: %w", spec, err)
	}
	sc := &Schedule{spec: spec, sched: sched}
	if len(days) > 0 {
		sc.days = make(map[time.Weekday]bool, len(days))
		for _, d := range days {
			sc.days[d] = true
		}
	}
	return sc, nil
}

// String returns the cron expression.
func (s *Schedule) String() string { return s.spec }

// Match returns the fire slot lying within ±tol of now, if any. The
// weekday is that of now, so a window crossing midnight never fires on
// an unconfigured day.
func (s *Schedule) Match(now time.Time, tol time.Duration) (time.Time, bool) {
	if s.days != nil && !s.days[now.Weekday()] {
		return time.Time{}, false
	}
	// cron Next is strictly after its argument, at whole-minute precision.
	slot := s.sched.Next(now.Add(-tol - time.Second))
	if slot.IsZero() || slot.After(now.Add(tol)) {
		return time.Time{}, false
	}
	return slot, true
}

// Next returns the first fire slot after now.
func (s *Schedule) Next(now time.Time) time.Time {
	return s.sched.Next(now)
}
