package window

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/djlord-it/easy-announce/internal/testutil"
)

func TestParse_ZoneAbbreviationIsLocalized(t *testing.T) {
	now := testutil.Date(2025, time.April, 1)
	res, err := Parse("MON, APR 14, 2025, 3:00 PM PDT", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.ParseSucceeded {
		t.Fatal("ParseSucceeded = false")
	}
	want := time.Date(2025, time.April, 14, 22, 0, 0, 0, time.UTC)
	if !res.Instant.Equal(want) {
		t.Errorf("Instant = %v, want %v", res.Instant.UTC(), want)
	}
	if res.Instant.Location().String() != "America/Los_Angeles" {
		t.Errorf("Location = %s, want America/Los_Angeles", res.Instant.Location())
	}
}

func TestParse_Formats(t *testing.T) {
	now := testutil.Date(2025, time.April, 1)
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "mixed case with EST",
			raw:  "Tue, Apr 15, 2025, 7:30 PM EDT",
			want: time.Date(2025, time.April, 15, 23, 30, 0, 0, time.UTC),
		},
		{
			name: "extra whitespace",
			raw:  "  Mon,  Apr 14, 2025,   3:00 PM   PDT ",
			want: time.Date(2025, time.April, 14, 22, 0, 0, 0, time.UTC),
		},
		{
			name: "yearless card format",
			raw:  "Mon, Apr 14 · 3:00 PM PDT",
			want: time.Date(2025, time.April, 14, 22, 0, 0, 0, time.UTC),
		},
		{
			name: "iso with offset",
			raw:  "2025-04-14T15:00:00-07:00",
			want: time.Date(2025, time.April, 14, 22, 0, 0, 0, time.UTC),
		},
		{
			name: "date only without zone is UTC",
			raw:  "2025-04-19",
			want: time.Date(2025, time.April, 19, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.raw, now)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if !res.Instant.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, res.Instant.UTC(), tt.want)
			}
			if res.SourceText != tt.raw {
				t.Errorf("SourceText = %q, want %q", res.SourceText, tt.raw)
			}
		})
	}
}

func TestParse_YearlessDateRollsIntoNextYear(t *testing.T) {
	now := testutil.Date(2025, time.December, 20)
	res, err := Parse("Thu, Jan 8 · 7:00 PM EST", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Instant.Year() != 2026 {
		t.Errorf("year = %d, want 2026", res.Instant.Year())
	}
}

func TestParse_YearlessRecentPastAcrossNewYearLandsNextDecember(t *testing.T) {
	clock := testutil.NewFakeClock(testutil.Date(2026, time.January, 5))
	f := New(DefaultDays, clock.Now)

	res, inside := f.Resolve("Sat, Dec 20 · 7:00 PM EST")
	if !res.ParseSucceeded {
		t.Fatal("ParseSucceeded = false")
	}
	if res.Instant.Year() != 2026 || res.Instant.Month() != time.December {
		t.Errorf("instant = %v, want December 2026", res.Instant)
	}
	if inside {
		t.Error("Dec 20 seen on Jan 5 should resolve eleven months ahead and be outside the window")
	}
}

func TestFilter_Boundary(t *testing.T) {
	clock := testutil.NewFakeClock(testutil.Date(2025, time.April, 1))
	f := New(DefaultDays, clock.Now)

	tests := []struct {
		raw  string
		want bool
	}{
		{"2025-04-19", true},
		{"2025-04-20", false},
		{"2025-04-19 23:59:00", true},
		{"2025-04-01", true},
		{"2025-03-01", true},
		{"2024-12-25", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := f.IsWithinWindow(tt.raw); got != tt.want {
				t.Errorf("IsWithinWindow(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFilter_NowIsComparedInEventZone(t *testing.T) {
	// 2025-04-01 05:00 UTC is still March 31 in Los Angeles; the instant
	// difference is what counts, not the calendar date.
	clock := testutil.NewFakeClock(time.Date(2025, time.April, 1, 5, 0, 0, 0, time.UTC))
	f := New(18, clock.Now)

	res, in := f.Resolve("Sat, Apr 19, 2025, 9:00 PM PDT")
	if !res.ParseSucceeded {
		t.Fatal("expected parse to succeed")
	}
	// 2025-04-20 04:00 UTC minus 2025-04-01 05:00 UTC = 18d 23h.
	if !in {
		t.Error("event 18d23h ahead should be inside the window")
	}
}

func TestFilter_UnparseableIsInside(t *testing.T) {
	f := New(DefaultDays, testutil.NewFakeClock(testutil.Date(2025, time.April, 1)).Now)

	for _, raw := range []string{"", "TBD", "soon-ish", "Date to be announced"} {
		res, in := f.Resolve(raw)
		if !in {
			t.Errorf("Resolve(%q) excluded an unparseable date", raw)
		}
		if res.ParseSucceeded {
			t.Errorf("Resolve(%q) reported parse success", raw)
		}
	}
}

func TestFilter_UnparseableIsInside_Property(t *testing.T) {
	f := New(DefaultDays, testutil.NewFakeClock(testutil.Date(2025, time.April, 1)).Now)

	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.StringMatching(`[qxz!?#]{0,24}`).Draw(rt, "raw")
		res, in := f.Resolve(raw)
		if res.ParseSucceeded {
			return
		}
		if !in {
			rt.Fatalf("Resolve(%q) = outside, want inside for unparseable text", raw)
		}
	})
}

func TestFilter_WindowRule_Property(t *testing.T) {
	now := testutil.Date(2025, time.April, 1)
	f := New(DefaultDays, func() time.Time { return now })

	rapid.Check(t, func(rt *rapid.T) {
		offset := time.Duration(rapid.Int64Range(int64(-400*24*time.Hour), int64(400*24*time.Hour)).Draw(rt, "offset"))
		event := now.Add(offset)
		want := offset < time.Duration(DefaultDays+1)*24*time.Hour
		if got := f.Contains(event); got != want {
			rt.Fatalf("Contains(now%+v) = %v, want %v", offset, got, want)
		}
	})
}

func TestDaysUntil_Floors(t *testing.T) {
	now := testutil.Date(2025, time.April, 1)
	if d := DaysUntil(now, now.Add(-time.Second)); d != -1 {
		t.Errorf("DaysUntil(-1s) = %d, want -1", d)
	}
	if d := DaysUntil(now, now.Add(18*24*time.Hour+23*time.Hour)); d != 18 {
		t.Errorf("DaysUntil(18d23h) = %d, want 18", d)
	}
}
