package migrate

import (
	"io/fs"

	"mini-iam/backend/internal/db"
)

func migrationEntries() ([]string, error) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
