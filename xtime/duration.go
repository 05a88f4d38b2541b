package xtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Calendar units. Months and years have a fixed length.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

var (
	calendarUnits = map[string]time.Duration{
		"d": Day, "D": Day,
		"w": Week, "W": Week,
		"M": Month,
		"y": Year, "Y": Year,
	}

	formatUnits = []struct {
		size   time.Duration
		suffix string
	}{
		{Year, "Y"}, {Month, "M"}, {Week, "w"}, {Day, "d"},
		{time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"},
		{time.Millisecond, "ms"}, {time.Microsecond, "µs"}, {time.Nanosecond, "ns"},
	}

	componentRx = regexp.MustCompile(`^(\d*\.\d+|\d+)([^\d.]*)`)
)

// ParseDuration parses a duration string. On top of the units supported by
// time.ParseDuration, it accepts "d"/"D" (days), "w"/"W" (weeks), "M" (months)
// and "y"/"Y" (years), e.g. "10d", "-1.5w" or "3Y4M5d12h".
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "-+")
	if s == "0" {
		return 0, nil
	}
	if s == "" {
		return 0, fmt.Errorf("invalid duration '%s'", orig)
	}

	var total time.Duration
	for s != "" {
		match := componentRx.FindStringSubmatch(s)
		if match == nil {
			return 0, fmt.Errorf("invalid duration '%s'", orig)
		}
		s = s[len(match[0]):]
		num, unit := match[1], match[2]

		if size, ok := calendarUnits[unit]; ok {
			n, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration '%s': %w", orig, err)
			}
			total += time.Duration(n * float64(size))
			continue
		}

		if unit == "" {
			return 0, fmt.Errorf("missing unit in duration '%s'", orig)
		}
		dur, err := time.ParseDuration(num + unit)
		if err != nil {
			return 0, fmt.Errorf("invalid duration '%s': unknown unit '%s'", orig, unit)
		}
		total += dur
	}

	if neg {
		total = -total
	}

	return total, nil
}

// FormatDuration formats a duration into a string with the units supported by
// ParseDuration, from years down to nanoseconds, e.g. "10d", "-1w2d" or
// "3Y4M5d". The duration is rounded to round, and units smaller than it are
// omitted. A zero duration is formatted as "0s".
func FormatDuration(d, round time.Duration) string {
	if round > 0 {
		d = d.Round(round)
	}

	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}

	for _, u := range formatUnits {
		if u.size < round {
			break
		}
		if n := d / u.size; n > 0 {
			fmt.Fprintf(&sb, "%d%s", n, u.suffix)
			d -= n * u.size
		}
	}

	if out := sb.String(); out != "" && out != "-" {
		return out
	}

	return "0s"
}
