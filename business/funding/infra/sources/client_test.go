package sources

import (
	"io"
	"testing"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func TestDec(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", "0.0001", "0.0001", true},
		{"negative", "-0.025", "-0.025", true},
		{"whitespace", "  1.5 ", "1.5", true},
		{"scientific", "1.2e-5", "0.000012", true},
		{"empty", "", "", false},
		{"not a number", "N/A", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dec(tt.input)
			if ok != tt.ok {
				t.Fatalf("dec(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got.String() != tt.want {
				t.Errorf("dec(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecPtrDropsNonPositive(t *testing.T) {
	if got := decPtr("0"); got != nil {
		t.Errorf("decPtr(0) = %s, want nil", got)
	}
	if got := decPtr("-5"); got != nil {
		t.Errorf("decPtr(-5) = %s, want nil", got)
	}
	if got := decPtr("garbage"); got != nil {
		t.Errorf("decPtr(garbage) = %s, want nil", got)
	}
	if got := decPtr("42000.5"); got == nil || got.String() != "42000.5" {
		t.Errorf("decPtr(42000.5) = %v, want 42000.5", got)
	}
}

func TestParseUnixTime(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  time.Time
	}{
		{"seconds", 1_700_000_000, time.Unix(1_700_000_000, 0).UTC()},
		{"milliseconds", 1_700_000_000_000, time.UnixMilli(1_700_000_000_000).UTC()},
		{"zero", 0, time.Time{}},
		{"negative", -1, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseUnixTime(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseUnixTime(%d) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNextFundingOrSchedule(t *testing.T) {
	future := time.Now().UTC().Add(2 * time.Hour)
	if got := nextFundingOrSchedule(future, domain.IntervalEightHourly); !got.Equal(future) {
		t.Errorf("future published time should win, got %v", got)
	}

	past := time.Now().UTC().Add(-time.Hour)
	got := nextFundingOrSchedule(past, domain.IntervalEightHourly)
	if !got.After(time.Now().UTC()) {
		t.Errorf("past published time should fall back to the schedule, got %v", got)
	}

	got = nextFundingOrSchedule(time.Time{}, domain.IntervalHourly)
	if !got.After(time.Now().UTC()) {
		t.Errorf("zero published time should fall back to the schedule, got %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("0123456789abcdef", 10); got != "0123456789..." {
		t.Errorf("truncate long = %q", got)
	}
}
