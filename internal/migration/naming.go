package migration

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const (
	// Extension is the file extension of every migration script.
	Extension = ".sql"

	dataInfix = ".data"
	undoInfix = ".undo"
)

// migrationNamePattern matches: {digits}[.anything].sql
var migrationNamePattern = regexp.MustCompile(`^(\d+)(\..*)?\.sql$`)

type nameClass int

const (
	nameForeign nameClass = iota
	nameMigration
	nameAmbiguous
)

// classifyName sorts a directory entry name into migration, foreign or
// ambiguous. Ambiguous names look like migrations (leading digits, .sql
// extension) but do not follow the convention, e.g. "001_add_users.sql".
func classifyName(name string) nameClass {
	if name == "" || strings.HasPrefix(name, ".") {
		return nameForeign
	}
	if !strings.HasSuffix(name, Extension) || name[0] < '0' || name[0] > '9' {
		return nameForeign
	}
	if migrationNamePattern.MatchString(name) {
		return nameMigration
	}
	return nameAmbiguous
}

// ParseName turns a migration file name into a Descriptor. dir is joined to
// the name to form the descriptor path and may be empty.
func ParseName(name, dir string) (Descriptor, error) {
	matches := migrationNamePattern.FindStringSubmatch(name)
	if matches == nil {
		return Descriptor{}, fmt.Errorf("%w: %q does not match '{sequence}[.data][.undo].sql'", ErrMalformedName, name)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: sequence %q in %q is not a valid number", ErrMalformedName, matches[1], name)
	}

	d := Descriptor{
		Sequence: sequence,
		Role:     RoleRedo,
		Kind:     KindSchema,
		Name:     name,
		Path:     path.Join(dir, name),
	}
	if strings.Contains(name, "data") {
		d.Kind = KindData
	}
	if strings.Contains(name, "undo") {
		d.Role = RoleUndo
	}
	return d, nil
}

// RenderName returns the canonical file name for a migration script. The
// sequence is zero padded to at least three digits.
func RenderName(sequence int, kind Kind, role Role) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%03d", sequence)
	if kind == KindData {
		b.WriteString(dataInfix)
	}
	if role == RoleUndo {
		b.WriteString(undoInfix)
	}
	b.WriteString(Extension)
	return b.String()
}
