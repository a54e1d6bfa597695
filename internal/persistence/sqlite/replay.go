package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"

	"github.com/example/migration-sequencer/internal/migration"
)

const settingsTableSQL = `CREATE TABLE IF NOT EXISTS settings_json_schema (
	id TEXT PRIMARY KEY NOT NULL,
	value JSON NOT NULL CHECK (json_valid(value))
)`

// createsSettingsTable matches a CREATE TABLE statement for the settings
// table, quoted or not.
var createsSettingsTable = regexp.MustCompile("(?is)\\bcreate\\s+table\\s+(?:if\\s+not\\s+exists\\s+)?[\"`\\[]?" + migration.SettingsTable + "\\b")

// ReplayError identifies the script that failed during a replay
type ReplayError struct {
	Sequence int
	Role     migration.Role
	Name     string
	Err      error
}

// Error implements the error interface
func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay %s %03d (%s): %v", e.Role, e.Sequence, e.Name, e.Err)
}

// Unwrap returns the underlying error
func (e *ReplayError) Unwrap() error {
	return e.Err
}

// ReplayReport summarises a replay.
type ReplayReport struct {
	Applied  int // Redo scripts executed
	Reverted int // Undo scripts executed
	Skipped  int // Empty scripts

	// Residue lists objects still present after every undo ran. A clean
	// history leaves nothing behind except the empty settings table.
	Residue []string
}

// Clean reports whether the undo scripts fully reverted the redo scripts.
func (r *ReplayReport) Clean() bool {
	return r != nil && len(r.Residue) == 0
}

// Replayer proves that a catalog's scripts parse and invert each other by
// running them against a scratch database.
type Replayer struct {
	pool   *ConnectionPool
	logger *slog.Logger
}

// NewReplayer creates a Replayer on pool. pool should be a scratch database;
// the replay leaves whatever the scripts create behind.
func NewReplayer(pool *ConnectionPool, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{pool: pool, logger: logger.With("component", "replay")}
}

// Replay applies every redo script in ascending order, then every undo
// script in descending order, each in its own transaction. It stops at the
// first failing script.
func (r *Replayer) Replay(ctx context.Context, fsys fs.FS, catalog *migration.Catalog) (*ReplayReport, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	pairs := catalog.Pairs()

	// The settings table is seeded unless the history creates it itself.
	seeded, err := r.seedSettingsTable(ctx, fsys, pairs)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{}

	for _, p := range pairs {
		ran, err := r.run(ctx, fsys, p.Redo)
		if err != nil {
			return report, err
		}
		if ran {
			report.Applied++
		} else if p.Redo != nil {
			report.Skipped++
		}
	}

	for i := len(pairs) - 1; i >= 0; i-- {
		ran, err := r.run(ctx, fsys, pairs[i].Undo)
		if err != nil {
			return report, err
		}
		if ran {
			report.Reverted++
		} else if pairs[i].Undo != nil {
			report.Skipped++
		}
	}

	residue, err := r.residue(ctx, seeded)
	if err != nil {
		return report, err
	}
	report.Residue = residue

	r.logger.Info("replay finished", "applied", report.Applied, "reverted", report.Reverted, "skipped", report.Skipped, "residue", len(residue))
	return report, nil
}

func (r *Replayer) seedSettingsTable(ctx context.Context, fsys fs.FS, pairs []*migration.Pair) (bool, error) {
	for _, p := range pairs {
		if p.Redo == nil {
			continue
		}
		content, err := fs.ReadFile(fsys, p.Redo.Path)
		if err != nil {
			return false, &ReplayError{Sequence: p.Sequence, Role: migration.RoleRedo, Name: p.Redo.Name, Err: err}
		}
		if createsSettingsTable.Match(content) {
			r.logger.Debug("settings table created by history", "file", p.Redo.Name)
			return false, nil
		}
	}

	if _, err := r.pool.DB().ExecContext(ctx, settingsTableSQL); err != nil {
		return false, fmt.Errorf("create settings table: %w", err)
	}
	return true, nil
}

// run executes the script behind d. It returns false for a missing
// descriptor or an empty script.
func (r *Replayer) run(ctx context.Context, fsys fs.FS, d *migration.Descriptor) (bool, error) {
	if d == nil {
		return false, nil
	}
	content, err := fs.ReadFile(fsys, d.Path)
	if err != nil {
		return false, &ReplayError{Sequence: d.Sequence, Role: d.Role, Name: d.Name, Err: err}
	}
	script := strings.TrimSpace(string(content))
	if script == "" {
		r.logger.Debug("skipping empty script", "file", d.Name)
		return false, nil
	}

	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, script)
		return err
	})
	if err != nil {
		return false, &ReplayError{Sequence: d.Sequence, Role: d.Role, Name: d.Name, Err: err}
	}
	r.logger.Debug("script executed", "file", d.Name, "role", d.Role.String())
	return true, nil
}

func (r *Replayer) residue(ctx context.Context, seeded bool) ([]string, error) {
	// A seeded settings table is expected to survive; one created by the
	// history must be dropped by it.
	ignore := ""
	if seeded {
		ignore = migration.SettingsTable
	}
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT type, name FROM sqlite_master WHERE name NOT LIKE 'sqlite_%' AND name != ? ORDER BY type, name`,
		ignore)
	if err != nil {
		return nil, fmt.Errorf("list schema objects: %w", err)
	}
	defer rows.Close()

	var residue []string
	for rows.Next() {
		var typ, name string
		if err := rows.Scan(&typ, &name); err != nil {
			return nil, fmt.Errorf("scan schema object: %w", err)
		}
		residue = append(residue, typ+" "+name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema objects: %w", err)
	}

	var tables int
	if err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		migration.SettingsTable).Scan(&tables); err != nil {
		return nil, fmt.Errorf("look up settings table: %w", err)
	}
	if tables == 0 {
		return residue, nil
	}

	var settings int
	if err := r.pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+migration.SettingsTable).Scan(&settings); err != nil {
		return nil, fmt.Errorf("count settings entries: %w", err)
	}
	if settings > 0 {
		residue = append(residue, fmt.Sprintf("%d %s row(s)", settings, migration.SettingsTable))
	}
	return residue, nil
}
