package domain

import (
	"testing"
	"time"
)

func TestSession_IsExpired(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 20 * time.Minute
	s := &Session{StartedAt: t0, LastRefreshedAt: t0, IsActive: true}

	testCases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just created", t0, false},
		{"one second before window", t0.Add(window - time.Second), false},
		{"exactly window", t0.Add(window), false},
		{"one second after window", t0.Add(window + time.Second), true},
		{"long after", t0.Add(24 * time.Hour), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.IsExpired(tc.now, window); got != tc.want {
				t.Errorf("IsExpired = %v, want %v", got, tc.want)
			}
		})
	}

	if got := s.IdleDeadline(window); !got.Equal(t0.Add(window)) {
		t.Errorf("IdleDeadline = %v", got)
	}
}
