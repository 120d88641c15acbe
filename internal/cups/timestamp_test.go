package cups

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSubmittedAt_RoundTrip(t *testing.T) {
	want := time.Date(2025, time.March, 7, 9, 41, 23, 0, time.Local)
	tail := fmt.Sprintf("1024 %s", want.Format("2 Jan 2006 15:04:05"))

	got := parseSubmittedAt(tail)
	assert.Equal(t, want, got)
}

func TestParseSubmittedAt_WithoutSeconds(t *testing.T) {
	got := parseSubmittedAt("2048 15 Nov 2024 23:05")
	want := time.Date(2024, time.November, 15, 23, 5, 0, 0, time.Local)
	assert.Equal(t, want, got)
}

func TestParseSubmittedAt_Meridian(t *testing.T) {
	cases := []struct {
		tail     string
		wantHour int
	}{
		{"512 2 Jun 2025 12:00:00 AM", 0},
		{"512 2 Jun 2025 12:00:00 PM", 12},
		{"512 2 Jun 2025 3:30:00 PM", 15},
		{"512 2 Jun 2025 3:30:00 AM", 3},
		{"512 2 Jun 2025 11:59:00 PM", 23},
	}

	for _, tc := range cases {
		got := parseSubmittedAt(tc.tail)
		assert.Equalf(t, tc.wantHour, got.Hour(), "tail %q", tc.tail)
	}
}

func TestParseSubmittedAt_RejectsUnparsableTails(t *testing.T) {
	tails := []string{
		"",
		"no date here at all",
		// Month word as the first token has no day before it.
		"Jun 2025 10:00:00",
		// Time token without a colon guards against false month matches.
		"1 May 2025 100000",
		// Month word with nothing usable after it.
		"report Dec",
		// A month-named file should not produce a timestamp.
		"summary-Apr-final.pdf 9000",
		// Calendar rejection: nonsense day/year still fails cleanly.
		"99 Feb banana 10:00:00",
	}

	for _, tail := range tails {
		got := parseSubmittedAt(tail)
		assert.Truef(t, got.IsZero(), "tail %q: expected zero time, got %v", tail, got)
	}
}

func TestParseSubmittedAt_FirstValidCandidateWins(t *testing.T) {
	got := parseSubmittedAt("4 Jan 2024 08:00:00 then 9 Feb 2025 09:30:00")
	want := time.Date(2024, time.January, 4, 8, 0, 0, 0, time.Local)
	assert.Equal(t, want, got)
}
