package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
)

// ScanOptions controls how a Scanner treats files that are not clean
// migration scripts.
type ScanOptions struct {
	// Strict rejects any file that is not a migration script. By default such
	// files are ignored and reported through Catalog.Foreign.
	Strict bool

	// AllowOverwrite lets a later file silently replace an earlier one that
	// claimed the same role for the same sequence. By default this is a
	// conflict.
	AllowOverwrite bool

	Logger *slog.Logger
}

// Scanner builds catalogs from directory snapshots.
type Scanner struct {
	opts   ScanOptions
	logger *slog.Logger
}

// NewScanner creates a Scanner with the given options
func NewScanner(opts ScanOptions) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		opts:   opts,
		logger: logger.With("component", "catalog"),
	}
}

// Scan reads dir from fsys and groups every migration script into a catalog.
// Grouping is keyed by sequence, so the order in which entries are listed
// does not matter. Any error aborts the scan and no catalog is returned.
func (s *Scanner) Scan(fsys fs.FS, dir string) (*Catalog, error) {
	if dir == "" {
		dir = "."
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewFileSystemError(dir, "scan directory", fmt.Errorf("migrations directory does not exist: %w", err))
		}
		return nil, NewFileSystemError(dir, "read directory", err)
	}

	catalog := newCatalog(dir)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		switch classifyName(name) {
		case nameForeign:
			if s.opts.Strict {
				return nil, NewMigrationError(-1, name, "parse",
					fmt.Errorf("%w: %q is not a migration script", ErrMalformedName, name))
			}
			s.logger.Debug("ignoring foreign file", "file", name, "dir", dir)
			catalog.foreign = append(catalog.foreign, name)
			continue
		case nameAmbiguous:
			return nil, NewMigrationError(-1, name, "parse",
				fmt.Errorf("%w: %q looks like a migration but does not match '{sequence}[.data][.undo].sql'", ErrMalformedName, name))
		}

		d, err := ParseName(name, dir)
		if err != nil {
			return nil, NewMigrationError(-1, name, "parse", err)
		}
		if err := catalog.add(d, s.opts.AllowOverwrite); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("catalog built", "dir", dir, "pairs", catalog.Len(), "max_sequence", catalog.Max(), "foreign", len(catalog.foreign))
	return catalog, nil
}
