package services

import (
	"fmt"
	"time"

	"github.com/edusys/activityhub/internal/models"
)

// DateOnly collapses t to midnight UTC so two submissions of the same
// calendar date compare equal regardless of the wall-clock or zone they
// arrived with.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseTimeOfDay converts "HH:MM" to minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatTimeOfDay renders minutes since midnight as "HH:MM".
func FormatTimeOfDay(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// activitiesOverlap reports whether two activities collide: their date ranges
// intersect AND their time-of-day ranges intersect. Date intersection is
// inclusive on both ends, time intersection is strict (back-to-back slots on
// the same day do not collide).
func activitiesOverlap(a, b *models.Activity) bool {
	datesOverlap := !a.StartDate.After(b.EndDate) && !a.EndDate.Before(b.StartDate)
	if !datesOverlap {
		return false
	}
	return a.StartTime < b.EndTime && a.EndTime > b.StartTime
}

// AgeOn computes whole years between birth and on, decrementing when the
// birthday has not yet occurred that year.
func AgeOn(birth, on time.Time) int {
	birth, on = DateOnly(birth), DateOnly(on)
	age := on.Year() - birth.Year()
	if birth.AddDate(age, 0, 0).After(on) {
		age--
	}
	return age
}
