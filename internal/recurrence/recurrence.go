// Package recurrence maps intervals to recurrence labels.
//
// A label names how often a scheduled event repeats. Three labels ship with
// the host (hourly, twicedaily, daily); any other interval gets a
// synthesized label of the form every_<seconds>_seconds which a registrar
// contributes to the host through a schedule filter.
package recurrence

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Canonical labels provided by the host.
const (
	Hourly     = "hourly"
	TwiceDaily = "twicedaily"
	Daily      = "daily"
)

// canonical lists the built-in labels in resolution order.
var canonical = []string{Hourly, TwiceDaily, Daily}

// Schedule describes one recurrence.
type Schedule struct {
	Interval int64  `json:"interval"`
	Display  string `json:"display"`
}

// Schedules maps a recurrence label to its schedule.
type Schedules map[string]Schedule

// Filter receives the current schedules and returns a possibly augmented set.
type Filter func(Schedules) Schedules

// Builtin returns a fresh copy of the host's built-in schedules.
func Builtin() Schedules {
	return Schedules{
		Hourly:     {Interval: 3600, Display: "Once Hourly"},
		TwiceDaily: {Interval: 43200, Display: "Twice Daily"},
		Daily:      {Interval: 86400, Display: "Once Daily"},
	}
}

// Canonical returns the built-in labels in resolution order.
func Canonical() []string {
	return append([]string(nil), canonical...)
}

// IsCanonical reports whether label is one of the built-in labels.
func IsCanonical(label string) bool {
	for _, c := range canonical {
		if c == label {
			return true
		}
	}
	return false
}

// Resolve returns the label for seconds. Only the canonical entries of
// builtin are consulted, in canonical order; the first whose interval
// equals seconds wins. Otherwise the synthesized label is returned.
func Resolve(builtin Schedules, seconds int64) string {
	for _, label := range canonical {
		s, ok := builtin[label]
		if ok && s.Interval == seconds {
			return label
		}
	}
	return Label(seconds)
}

// Label synthesizes the custom label for seconds.
func Label(seconds int64) string {
	return fmt.Sprintf("every_%d_seconds", seconds)
}

// Display returns the human readable text of a custom schedule.
func Display(seconds int64) string {
	return fmt.Sprintf("Every %d seconds", seconds)
}

// Seconds coerces v to a non-negative number of seconds. Strings go through
// ParseSeconds, numbers are truncated. Anything non-numeric or negative
// yields 0.
func Seconds(v any) int64 {
	var n int64
	if s, ok := v.(string); ok {
		n, _ = ParseSeconds(s)
	} else {
		var err error
		if n, err = cast.ToInt64E(v); err != nil {
			return 0
		}
	}
	return max(n, 0)
}

// ParseSeconds reads s as a decimal count of seconds after trimming spaces.
// A leading zero does not switch to octal and base prefixes are rejected.
// Fractions are truncated. The bool reports whether s was numeric.
func ParseSeconds(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if strings.ContainsAny(s, "xXoObBpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Clone returns a shallow copy of s. A nil s yields an empty map.
func (s Schedules) Clone() Schedules {
	out := make(Schedules, len(s))
	maps.Copy(out, s)
	return out
}

// Apply runs filters over a copy of base in order. A filter returning nil
// leaves the previous result in place.
func Apply(base Schedules, filters ...Filter) Schedules {
	out := base.Clone()
	for _, f := range filters {
		if next := f(out); next != nil {
			out = next
		}
	}
	return out
}
