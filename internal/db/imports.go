package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Import is one row of public.static_data_imports on the meta database.
type Import struct {
	Dataset    string
	DBName     string
	Version    string
	ImportedAt time.Time
}

const latestImportQuery = `
SELECT db_name, COALESCE(version, ''), imported_at
FROM public.static_data_imports
WHERE dataset = $1 AND succeeded
ORDER BY imported_at DESC, db_name DESC
LIMIT 1`

// ResolveLatestDataset returns the newest successful import of dataset.
func ResolveLatestDataset(ctx context.Context, meta *sql.DB, dataset string) (Import, error) {
	imp := Import{Dataset: strings.TrimSpace(dataset)}
	if imp.Dataset == "" {
		return imp, fmt.Errorf("dataset is required")
	}
	var dbName sql.NullString
	err := meta.QueryRowContext(ctx, latestImportQuery, imp.Dataset).Scan(&dbName, &imp.Version, &imp.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return imp, fmt.Errorf("no successful import for dataset %q", imp.Dataset)
	}
	if err != nil {
		return imp, err
	}
	imp.DBName = dbName.String
	return imp, imp.check()
}

// check rejects rows that cannot be connected to.
func (i Import) check() error {
	switch {
	case i.DBName == "":
		return fmt.Errorf("import of dataset %q has no db_name", i.Dataset)
	case strings.ContainsAny(i.DBName, "/?#"):
		return fmt.Errorf("import of dataset %q has invalid db_name %q", i.Dataset, i.DBName)
	}
	return nil
}

// Age reports how long ago the import finished.
func (i Import) Age(now time.Time) time.Duration {
	if i.ImportedAt.IsZero() {
		return 0
	}
	return now.Sub(i.ImportedAt)
}
