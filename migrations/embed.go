// Package migrations embeds the SQL schema files so the binary is
// self-contained and can run with an unpredictable working directory where
// ./migrations/ does not exist.
package migrations

import (
	"embed"
	"fmt"
)

// FS contains all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS

// Schema returns the initial schema for the given database driver
// ("sqlite" or "postgres").
func Schema(driver string) (string, error) {
	data, err := FS.ReadFile(fmt.Sprintf("001_initial_%s.sql", driver))
	if err != nil {
		return "", fmt.Errorf("no schema for driver %q: %w", driver, err)
	}
	return string(data), nil
}
