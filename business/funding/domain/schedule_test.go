package domain

import (
	"testing"
	"time"
)

func TestNextFundingTime(t *testing.T) {
	tests := []struct {
		name     string
		now      string
		interval int
		want     string
	}{
		{
			name:     "eight hour interval mid window",
			now:      "2024-03-15T10:30:00Z",
			interval: 8,
			want:     "2024-03-15T16:00:00Z",
		},
		{
			name:     "eight hour interval exactly on boundary rolls forward",
			now:      "2024-03-15T08:00:00Z",
			interval: 8,
			want:     "2024-03-15T16:00:00Z",
		},
		{
			name:     "one hour interval",
			now:      "2024-03-15T10:30:00Z",
			interval: 1,
			want:     "2024-03-15T11:00:00Z",
		},
		{
			name:     "four hour interval near midnight wraps to next day",
			now:      "2024-03-15T23:10:00Z",
			interval: 4,
			want:     "2024-03-16T00:00:00Z",
		},
		{
			name:     "unknown interval defaults to eight hours",
			now:      "2024-03-15T01:00:00Z",
			interval: 0,
			want:     "2024-03-15T08:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, err := time.Parse(time.RFC3339, tt.now)
			if err != nil {
				t.Fatalf("parse now: %v", err)
			}
			want, err := time.Parse(time.RFC3339, tt.want)
			if err != nil {
				t.Fatalf("parse want: %v", err)
			}

			got := NextFundingTime(now, tt.interval)
			if !got.Equal(want) {
				t.Errorf("NextFundingTime(%s, %d) = %s, want %s", tt.now, tt.interval, got, want)
			}
		})
	}
}

func TestTimeToFundingHours(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	if got := TimeToFundingHours(now, now.Add(90*time.Minute)); got != 1.5 {
		t.Errorf("future funding: got %v, want 1.5", got)
	}
	if got := TimeToFundingHours(now, now.Add(-time.Hour)); got != 0 {
		t.Errorf("past funding: got %v, want 0", got)
	}
}
