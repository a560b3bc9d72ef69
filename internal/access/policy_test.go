package access

import (
	"testing"
	"time"
)

func TestRemainingTime_FailsClosed(t *testing.T) {
	now := time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC)
	exit := now.Add(-time.Hour)

	cases := []struct {
		name string
		rec  AccessRecord
	}{
		{"revoked", AccessRecord{Status: StatusRevoked, EntryTime: now.Add(-time.Minute)}},
		{"denied", AccessRecord{Status: StatusDenied, EntryTime: now.Add(-time.Minute)}},
		{"revoked with future entry", AccessRecord{Status: StatusRevoked, EntryTime: now.Add(time.Hour)}},
		{"exited", AccessRecord{Status: StatusGranted, EntryTime: now.Add(-time.Minute), ExitTime: &exit}},
		{"checked out", AccessRecord{Status: StatusCheckedOut, EntryTime: now.Add(-time.Minute), ExitTime: &exit}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := RemainingTime(tc.rec, now, DefaultWindow); ok {
				t.Errorf("expected expired for %s", tc.name)
			}
		})
	}
}

func TestRemainingTime_SevenHoursIn(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	rec := AccessRecord{Status: StatusGranted, EntryTime: now.Add(-7 * time.Hour)}

	d, ok := RemainingTime(rec, now, 8*time.Hour)
	if !ok {
		t.Fatal("expected record to still be within its window")
	}
	if d != time.Hour {
		t.Errorf("expected 1h remaining, got %s", d)
	}
	if got := FormatRemaining(d, ok); got != "1h 0m" {
		t.Errorf("expected %q, got %q", "1h 0m", got)
	}
}

func TestRemainingTime_WindowLapsed(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	rec := AccessRecord{Status: StatusGranted, EntryTime: now.Add(-9 * time.Hour)}

	if _, ok := RemainingTime(rec, now, 8*time.Hour); ok {
		t.Error("expected expired after the window lapsed")
	}
	if got := FormatRemaining(0, false); got != "Expired" {
		t.Errorf("expected %q, got %q", "Expired", got)
	}
}

func TestRemainingTime_FloorsToWholeMinutes(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	rec := AccessRecord{Status: StatusGranted, EntryTime: now.Add(-6*time.Hour - 30*time.Second)}

	d, ok := RemainingTime(rec, now, 8*time.Hour)
	if !ok {
		t.Fatal("expected remaining time")
	}
	if d != time.Hour+59*time.Minute {
		t.Errorf("expected 1h59m floored, got %s", d)
	}
}

func TestRemainingTime_DefaultWindowApplied(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	rec := AccessRecord{Status: StatusGranted, EntryTime: now.Add(-7 * time.Hour)}

	d, ok := RemainingTime(rec, now, 0)
	if !ok || d != time.Hour {
		t.Errorf("expected default 8h window, got %s ok=%v", d, ok)
	}
}
