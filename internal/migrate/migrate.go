package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrations embed.FS

// Apply runs the embedded SQL migrations for the given dialect in file-name
// order. Statements are idempotent (CREATE TABLE IF NOT EXISTS) so re-running
// at every startup is safe.
func Apply(ctx context.Context, db *sql.DB, dialect string) error {
	if db == nil {
		return fmt.Errorf("nil db")
	}
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	if dialect == "" {
		return fmt.Errorf("empty dialect")
	}
	base := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(migrations, base)
	if err != nil {
		return fmt.Errorf("unknown dialect %s: %w", dialect, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, path.Join(base, e.Name()))
	}
	sort.Strings(files)
	for _, p := range files {
		sqlBytes, err := fs.ReadFile(migrations, p)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply %s: %w", p, err)
		}
	}
	return nil
}
