package migration

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ProblemCode classifies a finding of Check.
type ProblemCode string

const (
	ProblemIncompletePair        ProblemCode = "incomplete-pair"
	ProblemKindMismatch          ProblemCode = "kind-mismatch"
	ProblemSequenceGap           ProblemCode = "sequence-gap"
	ProblemInvalidSettingsSchema ProblemCode = "invalid-settings-schema"

	// ProblemMissingSettingsDefinition marks a settings schema without a
	// named definition under $defs, such as an untouched "{}" seed.
	ProblemMissingSettingsDefinition ProblemCode = "missing-settings-definition"
)

// Problem is one inconsistency found in the migration tree.
type Problem struct {
	Code     ProblemCode
	Sequence int // -1 when the problem is not tied to a sequence
	Path     string
	Detail   string
}

func (p Problem) String() string {
	var b strings.Builder
	b.WriteString(string(p.Code))
	if p.Sequence >= 0 {
		fmt.Fprintf(&b, " %03d", p.Sequence)
	}
	if p.Path != "" {
		fmt.Fprintf(&b, " (%s)", p.Path)
	}
	if p.Detail != "" {
		b.WriteString(": ")
		b.WriteString(p.Detail)
	}
	return b.String()
}

// Report collects the findings of Check.
type Report struct {
	Pairs           int
	SettingsSchemas int
	Problems        []Problem
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return r != nil && len(r.Problems) == 0
}

// Check verifies that every sequence has both scripts of the same kind, that
// numbering has no holes, and that every settings seed document in
// settingsDir compiles as a JSON schema. A missing settings directory is not
// a problem.
func Check(catalog *Catalog, fsys fs.FS, settingsDir string) (*Report, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}

	report := &Report{Pairs: catalog.Len()}
	pairs := catalog.Pairs()

	for i, p := range pairs {
		switch {
		case p.Redo == nil:
			report.Problems = append(report.Problems, Problem{
				Code: ProblemIncompletePair, Sequence: p.Sequence, Path: p.Undo.Path,
				Detail: "undo script has no redo script",
			})
		case p.Undo == nil:
			report.Problems = append(report.Problems, Problem{
				Code: ProblemIncompletePair, Sequence: p.Sequence, Path: p.Redo.Path,
				Detail: "redo script has no undo script",
			})
		case p.Redo.Kind != p.Undo.Kind:
			report.Problems = append(report.Problems, Problem{
				Code: ProblemKindMismatch, Sequence: p.Sequence, Path: p.Redo.Path,
				Detail: fmt.Sprintf("redo %s is a %s migration but undo %s is a %s migration", p.Redo.Name, p.Redo.Kind, p.Undo.Name, p.Undo.Kind),
			})
		}

		if i == 0 {
			continue
		}
		for missing := pairs[i-1].Sequence + 1; missing < p.Sequence; missing++ {
			report.Problems = append(report.Problems, Problem{
				Code: ProblemSequenceGap, Sequence: missing,
				Detail: fmt.Sprintf("no scripts between %03d and %03d", pairs[i-1].Sequence, p.Sequence),
			})
		}
	}

	if settingsDir != "" && fsys != nil {
		problems, count, err := checkSettingsSchemas(fsys, settingsDir)
		if err != nil {
			return nil, err
		}
		report.SettingsSchemas = count
		report.Problems = append(report.Problems, problems...)
	}
	return report, nil
}

func checkSettingsSchemas(fsys fs.FS, dir string) ([]Problem, int, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, NewFileSystemError(dir, "read directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), settingsExtension) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var problems []Problem
	for _, name := range names {
		p := path.Join(dir, name)
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, 0, NewFileSystemError(p, "read file", err)
		}
		doc, err := compileSchema(p, content)
		if err != nil {
			problems = append(problems, Problem{
				Code: ProblemInvalidSettingsSchema, Sequence: -1, Path: p, Detail: err.Error(),
			})
			continue
		}
		if !hasDefinitions(doc) {
			problems = append(problems, Problem{
				Code: ProblemMissingSettingsDefinition, Sequence: -1, Path: p,
				Detail: "$defs must be an object naming at least one settings definition",
			})
		}
	}
	return problems, len(names), nil
}

func compileSchema(p string, content []byte) (any, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	url := "file:///" + strings.TrimPrefix(p, "/")
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if _, err := compiler.Compile(url); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return doc, nil
}

// hasDefinitions reports whether doc carries a non-empty $defs object. The
// first key names the settings record the schema describes.
func hasDefinitions(doc any) bool {
	root, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	defs, ok := root["$defs"].(map[string]any)
	return ok && len(defs) > 0
}
