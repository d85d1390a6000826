package patient

import (
	"time"
	_ "time/tzdata"
)

// EasternZone is the zone whose local midnight defines "today".
const EasternZone = "US/Eastern"

var eastern = mustLoadLocation(EasternZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("load location " + name + ": " + err.Error())
	}
	return loc
}

// TodayIn returns the calendar date of now in US/Eastern.
func TodayIn(now time.Time) Date {
	return DateOf(now.In(eastern))
}

// IsTodayAt reports whether d is the US/Eastern calendar date at instant now.
func IsTodayAt(d Date, now time.Time) bool {
	return d == TodayIn(now)
}

// IsToday reports whether d is today's date in US/Eastern.
func IsToday(d Date) bool {
	return IsTodayAt(d, time.Now())
}
