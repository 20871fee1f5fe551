package domain

import (
	"testing"
	"time"
)

func quietWindow(start, end string) QuietHours {
	return QuietHours{
		Enabled:    true,
		StartLocal: start,
		EndLocal:   end,
		Timezone:   "UTC",
	}
}

func atClock(t *testing.T, clock string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2024-03-15 "+clock)
	if err != nil {
		t.Fatalf("failed to parse clock %q: %v", clock, err)
	}
	return parsed.UTC()
}

func TestQuietHoursSuppressedAt(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		window     QuietHours
		clock      string
		suppressed bool
	}{
		{name: "overnight window suppresses late evening", window: quietWindow("22:00", "08:00"), clock: "23:30", suppressed: true},
		{name: "overnight window suppresses early morning", window: quietWindow("22:00", "08:00"), clock: "07:00", suppressed: true},
		{name: "overnight window releases after end", window: quietWindow("22:00", "08:00"), clock: "09:00", suppressed: false},
		{name: "same day window suppresses inside", window: quietWindow("08:00", "22:00"), clock: "09:00", suppressed: true},
		{name: "same day window releases outside", window: quietWindow("08:00", "22:00"), clock: "23:00", suppressed: false},
		{name: "same day window releases before start", window: quietWindow("08:00", "22:00"), clock: "07:59", suppressed: false},
		{name: "boundary start is suppressed", window: quietWindow("08:00", "22:00"), clock: "08:00", suppressed: true},
		{name: "boundary end is suppressed", window: quietWindow("08:00", "22:00"), clock: "22:00", suppressed: true},
		{name: "disabled window never suppresses", window: QuietHours{Enabled: false}, clock: "23:30", suppressed: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			suppressed, err := tc.window.SuppressedAt(atClock(t, tc.clock))
			if err != nil {
				t.Fatalf("SuppressedAt() error = %v", err)
			}
			if suppressed != tc.suppressed {
				t.Fatalf("SuppressedAt(%s) = %v, want %v", tc.clock, suppressed, tc.suppressed)
			}
		})
	}
}

func TestQuietHoursTimezoneConversion(t *testing.T) {
	t.Parallel()

	window := QuietHours{
		Enabled:    true,
		StartLocal: "22:00",
		EndLocal:   "08:00",
		Timezone:   "America/New_York",
	}

	// 03:30 UTC is 22:30 or 23:30 in New York depending on DST; either way
	// it falls inside the overnight window.
	suppressed, err := window.SuppressedAt(time.Date(2024, 3, 15, 3, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SuppressedAt() error = %v", err)
	}
	if !suppressed {
		t.Fatal("03:30 UTC should be suppressed for a New York 22:00-08:00 window")
	}

	// 16:00 UTC is late morning / noon in New York.
	suppressed, err = window.SuppressedAt(time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SuppressedAt() error = %v", err)
	}
	if suppressed {
		t.Fatal("16:00 UTC should not be suppressed for a New York 22:00-08:00 window")
	}
}

func TestQuietHoursInvalidInputs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		window QuietHours
	}{
		{name: "bad timezone", window: QuietHours{Enabled: true, StartLocal: "22:00", EndLocal: "08:00", Timezone: "Mars/Olympus"}},
		{name: "bad start clock", window: QuietHours{Enabled: true, StartLocal: "25:00", EndLocal: "08:00", Timezone: "UTC"}},
		{name: "unparseable end clock", window: QuietHours{Enabled: true, StartLocal: "22:00", EndLocal: "soon", Timezone: "UTC"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := tc.window.SuppressedAt(time.Now()); err == nil {
				t.Fatal("SuppressedAt() expected error")
			}
		})
	}
}
