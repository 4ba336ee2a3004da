package rules

import (
	"testing"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
)

func atHour(h int) time.Time {
	return time.Date(2026, 3, 14, h, 15, 0, 0, time.UTC)
}

func TestInQuietHoursDisabled(t *testing.T) {
	qh := model.QuietHours{Enabled: false, StartHour: 0, EndHour: 23}
	if InQuietHours(qh, atHour(12)) {
		t.Error("disabled quiet hours never suppress")
	}
}

func TestInQuietHoursSimpleWindow(t *testing.T) {
	qh := model.QuietHours{Enabled: true, StartHour: 9, EndHour: 17}

	cases := []struct {
		hour int
		want bool
	}{
		{8, false},
		{9, true},  // start is inclusive
		{16, true},
		{17, false}, // end is exclusive
		{23, false},
	}
	for _, tc := range cases {
		if got := InQuietHours(qh, atHour(tc.hour)); got != tc.want {
			t.Errorf("hour %d: InQuietHours = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	qh := model.QuietHours{Enabled: true, StartHour: 22, EndHour: 6}

	cases := []struct {
		hour int
		want bool
	}{
		{23, true},
		{0, true},
		{5, true},
		{6, false},
		{12, false},
		{21, false},
		{22, true},
	}
	for _, tc := range cases {
		if got := InQuietHours(qh, atHour(tc.hour)); got != tc.want {
			t.Errorf("hour %d: InQuietHours = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestInQuietHoursAlwaysQuiet(t *testing.T) {
	qh := model.QuietHours{Enabled: true, StartHour: 8, EndHour: 8}
	for hour := 0; hour < 24; hour++ {
		if !InQuietHours(qh, atHour(hour)) {
			t.Errorf("hour %d: start==end means always quiet", hour)
		}
	}
}
