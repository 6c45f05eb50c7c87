package migrate

import (
	"errors"
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, "up")
		if err == nil {
			t.Fatalf("Run(%q) should return error", dsn)
		}
		if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
			t.Errorf("error message = %q", err.Error())
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "invalid", "sideways", "UP", "Down"} {
		t.Run(direction, func(t *testing.T) {
			err := Run("postgres://localhost/test", direction)
			if err == nil {
				t.Fatalf("Run with direction %q should return error", direction)
			}
			if !strings.Contains(err.Error(), "direction must be up or down") {
				t.Errorf("error = %q, want direction error", err.Error())
			}
		})
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	testCases := []struct {
		name string
		dsn  string
	}{
		{"no scheme", "invalid-dsn"},
		{"missing driver", "://localhost/test"},
		{"unknown driver", "mongodb://localhost/test"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Run(tc.dsn, "up")
			if err == nil {
				t.Fatalf("Run with invalid DSN %q should return error", tc.dsn)
			}
			if errors.Is(err, ErrNoChange) {
				t.Error("Run should never surface ErrNoChange")
			}
		})
	}
}

func TestMigrationFS_HasPairedMigrations(t *testing.T) {
	entries, err := migrationEntries()
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	ups, downs := 0, 0
	for _, name := range entries {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups++
		case strings.HasSuffix(name, ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("migrations: %d up, %d down", ups, downs)
	}
}
