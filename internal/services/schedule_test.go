package services

import (
	"testing"
	"time"

	"github.com/edusys/activityhub/internal/models"
)

func act(startDate, endDate string, startMin, endMin int) *models.Activity {
	sd, _ := parseDate(startDate)
	ed, _ := parseDate(endDate)
	return &models.Activity{StartDate: sd, EndDate: ed, StartTime: startMin, EndTime: endMin}
}

func TestActivitiesOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b *models.Activity
		want bool
	}{
		{
			name: "same window collides",
			a:    act("2026-09-01", "2026-09-05", 540, 660),
			b:    act("2026-09-01", "2026-09-05", 540, 660),
			want: true,
		},
		{
			name: "disjoint dates never collide",
			a:    act("2026-09-01", "2026-09-05", 540, 660),
			b:    act("2026-09-06", "2026-09-10", 540, 660),
			want: false,
		},
		{
			name: "shared dates but back-to-back times do not collide",
			a:    act("2026-09-01", "2026-09-05", 540, 660),
			b:    act("2026-09-01", "2026-09-05", 660, 780),
			want: false,
		},
		{
			name: "shared dates with one minute of time overlap collides",
			a:    act("2026-09-01", "2026-09-05", 540, 661),
			b:    act("2026-09-01", "2026-09-05", 660, 780),
			want: true,
		},
		{
			name: "touching date ranges with overlapping times collide",
			a:    act("2026-09-01", "2026-09-05", 540, 660),
			b:    act("2026-09-05", "2026-09-09", 600, 720),
			want: true,
		},
		{
			name: "nested date range with disjoint times does not collide",
			a:    act("2026-09-02", "2026-09-03", 480, 540),
			b:    act("2026-09-01", "2026-09-10", 600, 720),
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := activitiesOverlap(tc.a, tc.b); got != tc.want {
				t.Errorf("activitiesOverlap = %v, want %v", got, tc.want)
			}
			// The rule is symmetric.
			if got := activitiesOverlap(tc.b, tc.a); got != tc.want {
				t.Errorf("activitiesOverlap (swapped) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAgeOn(t *testing.T) {
	on := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	birthdayPassed := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := AgeOn(birthdayPassed, on); got != 10 {
		t.Errorf("birthday passed: age = %d, want 10", got)
	}

	birthdayPending := time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC)
	if got := AgeOn(birthdayPending, on); got != 9 {
		t.Errorf("birthday pending: age = %d, want 9", got)
	}

	birthdayToday := time.Date(2016, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := AgeOn(birthdayToday, on); got != 10 {
		t.Errorf("birthday today: age = %d, want 10", got)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	if min, err := ParseTimeOfDay("09:30"); err != nil || min != 570 {
		t.Errorf("ParseTimeOfDay(09:30) = %d, %v; want 570, nil", min, err)
	}
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Error("ParseTimeOfDay(25:00) should fail")
	}
	if got := FormatTimeOfDay(570); got != "09:30" {
		t.Errorf("FormatTimeOfDay(570) = %q, want 09:30", got)
	}
}

func TestDateOnlyIgnoresZoneAndClock(t *testing.T) {
	zone := time.FixedZone("ICT", 7*3600)
	local := time.Date(2026, 9, 1, 23, 45, 0, 0, zone) // 16:45 UTC the same day
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if got := DateOnly(local); !got.Equal(want) {
		t.Errorf("DateOnly = %v, want %v", got, want)
	}
}
