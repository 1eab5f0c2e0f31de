package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// RunMigrations applies every *.sql file in dir in lexical order, each inside its
// own transaction. Scripts must be idempotent.
func RunMigrations(db *sqlx.DB, dir string, logger *logrus.Logger) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return 0, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		tx, err := db.Beginx()
		if err != nil {
			return applied, fmt.Errorf("failed to begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("migration %s failed: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %s: %w", file, err)
		}

		applied++
		logger.WithField("file", filepath.Base(file)).Info("Migration applied")
	}
	return applied, nil
}
