package core

import (
	"log"
	"math"
	"time"
)

// All day-counting (access expiration, deadlines shown to students) happens
// in a single fixed civil timezone, not UTC.
const civilTimezone = "Asia/Karachi"

var (
	NowFunc = time.Now // mockable

	civilLoc *time.Location
)

func init() {
	var err error
	if civilLoc, err = time.LoadLocation(civilTimezone); err != nil {
		log.Fatalf("clock.LoadLocation(%s): %v", civilTimezone, err)
	}
}

// CivilLocation returns the fixed civil timezone used for day-counting.
func CivilLocation() *time.Location { return civilLoc }

// CivilNow returns the current time in the civil timezone.
func CivilNow() time.Time { return NowFunc().In(civilLoc) }

// FloorDays truncates a duration to whole 24h days, rounding toward
// negative infinity so that an expiration one hour away counts as 0 days
// and one hour past counts as -1.
func FloorDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}
