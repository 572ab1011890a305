package render

import (
	"fmt"
	"math"
	"time"
)

// Ago describes t relative to now in a single rounded unit, such as
// "3 days ago" or "in 2 hours"
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	var n float64
	var unit string
	switch {
	case d < time.Minute:
		n, unit = d.Seconds(), "second"
	case d < time.Hour:
		n, unit = d.Minutes(), "minute"
	case d < 24*time.Hour:
		n, unit = d.Hours(), "hour"
	case d < 30*24*time.Hour:
		n, unit = d.Hours()/24, "day"
	case d < 365*24*time.Hour:
		n, unit = d.Hours()/(24*30), "month"
	default:
		n, unit = d.Hours()/(24*365), "year"
	}

	count := int(math.Round(n))
	if count != 1 {
		unit += "s"
	}
	if future {
		return fmt.Sprintf("in %d %s", count, unit)
	}
	return fmt.Sprintf("%d %s ago", count, unit)
}
