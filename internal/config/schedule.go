package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a strict 24-hour "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, fmt.Errorf("time %q must be in HH:MM form", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Before(other Clock) bool {
	return c.Minutes() < other.Minutes()
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Location returns a fixed zone for the configured offset. Daylight saving is a
// flat extra hour, matching how the device feeds configTime.
func (t TimezoneConfig) Location() *time.Location {
	seconds := int(t.UTCOffsetHours * 3600)
	if t.UseDaylightSaving {
		seconds += 3600
	}
	sign := "+"
	abs := seconds
	if seconds < 0 {
		sign = "-"
		abs = -seconds
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, abs/3600, (abs%3600)/60)
	return time.FixedZone(name, seconds)
}

// InSession reports whether t falls within the class day [start, end) in the
// configured timezone. Unparseable times never match.
func (c *Config) InSession(t time.Time) bool {
	start, err := ParseClock(c.Classroom.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(c.Classroom.EndTime)
	if err != nil {
		return false
	}

	local := t.In(c.Timezone.Location())
	now := local.Hour()*60 + local.Minute()
	return now >= start.Minutes() && now < end.Minutes()
}
