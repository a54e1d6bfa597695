package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Layout names the directories the generator writes into, relative to the
// generator root.
type Layout struct {
	MigrationsDir string
	SettingsDir   string
}

// DefaultLayout returns the conventional directory names.
func DefaultLayout() Layout {
	return Layout{
		MigrationsDir: "migrations",
		SettingsDir:   "settings_json_schemas",
	}
}

// Request describes the migration the operator wants next.
type Request struct {
	Kind Kind

	// Settings asks for a settings-schema entry to be registered alongside
	// the pair. Name is required when it is set.
	Settings bool
	Name     string
}

// Validate reports operator input problems as *UsageError.
func (r Request) Validate() error {
	if !r.Settings {
		return nil
	}
	_, err := validateSettingsName(r.Name)
	return err
}

// Artifact is one file the generator will create.
type Artifact struct {
	Path    string // Relative to the generator root
	Content []byte
}

// Plan holds every artifact of the next migration, staged in memory.
type Plan struct {
	Sequence   int
	Kind       Kind
	RedoName   string
	UndoName   string
	SettingsID string
	Artifacts  []Artifact
}

// NewPlan computes the next sequence from catalog and renders the artifacts
// for req. Nothing is written.
func NewPlan(catalog *Catalog, req Request, layout Layout) (*Plan, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	next := catalog.Next()
	plan := &Plan{
		Sequence: next,
		Kind:     req.Kind,
		RedoName: RenderName(next, req.Kind, RoleRedo),
		UndoName: RenderName(next, req.Kind, RoleUndo),
	}

	var redo, undo []byte
	if req.Settings {
		id, _ := validateSettingsName(req.Name)
		plan.SettingsID = id
		redo = []byte(UpsertSettingsSQL(id, EmptySettingsValue))
		undo = []byte(DeleteSettingsSQL(id))
		plan.Artifacts = append(plan.Artifacts, Artifact{
			Path:    filepath.Join(layout.SettingsDir, SettingsFileName(id)),
			Content: []byte(EmptySettingsValue),
		})
	}

	plan.Artifacts = append(plan.Artifacts,
		Artifact{Path: filepath.Join(layout.MigrationsDir, plan.RedoName), Content: redo},
		Artifact{Path: filepath.Join(layout.MigrationsDir, plan.UndoName), Content: undo},
	)
	return plan, nil
}

// Result reports what a generator run did, or would have done.
type Result struct {
	Sequence     int
	Kind         Kind
	RedoName     string
	UndoName     string
	SettingsFile string
	Created      []string
	DryRun       bool
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	// CreateDirs creates missing target directories before writing.
	CreateDirs bool
	Logger     *slog.Logger
}

// Generator writes planned artifacts below a root directory.
type Generator struct {
	root       string
	createDirs bool
	logger     *slog.Logger
	newID      func() string
}

// NewGenerator creates a Generator rooted at root.
func NewGenerator(root string, opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = "."
	}
	return &Generator{
		root:       root,
		createDirs: opts.CreateDirs,
		logger:     logger.With("component", "generator"),
		newID:      uuid.NewString,
	}
}

// Apply creates every artifact of plan with exclusive-create semantics. A
// pre-existing target is a collision. If any artifact fails, the ones
// already created by this call are removed again. In dry-run mode nothing
// is written.
func (g *Generator) Apply(plan *Plan, dryRun bool) (*Result, error) {
	if plan == nil {
		return nil, errors.New("plan is required")
	}

	res := &Result{
		Sequence: plan.Sequence,
		Kind:     plan.Kind,
		RedoName: plan.RedoName,
		UndoName: plan.UndoName,
		DryRun:   dryRun,
	}
	if plan.SettingsID != "" && len(plan.Artifacts) > 0 {
		res.SettingsFile = plan.Artifacts[0].Path
	}

	logger := g.logger.With("sequence", plan.Sequence, "redo", plan.RedoName, "undo", plan.UndoName)
	if dryRun {
		logger.Info("dry run, no files written")
		return res, nil
	}

	for _, a := range plan.Artifacts {
		target := g.target(a.Path)
		if _, err := os.Lstat(target); err == nil {
			return nil, &CollisionError{Path: target}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, NewFileSystemError(target, "stat", err)
		}
	}
	if g.createDirs {
		for _, a := range plan.Artifacts {
			dir := filepath.Dir(g.target(a.Path))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, NewFileSystemError(dir, "create directory", err)
			}
		}
	}

	created := make([]string, 0, len(plan.Artifacts))
	for _, a := range plan.Artifacts {
		target := g.target(a.Path)
		if err := g.publish(target, a.Content); err != nil {
			if rbErr := g.rollback(created); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			logger.Error("migration generation failed", "error", err, "error_kind", ErrorKind(err))
			return nil, err
		}
		created = append(created, target)
	}

	for _, target := range created {
		rel, err := filepath.Rel(g.root, target)
		if err != nil {
			rel = target
		}
		res.Created = append(res.Created, rel)
	}
	logger.Info("migration pair created", "files", len(created))
	return res, nil
}

func (g *Generator) target(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.root, p)
}

// publish writes content to a staging file next to target and links it into
// place. The link fails if target exists, so a concurrent writer turns into a
// collision instead of an overwrite, and target is never seen half written.
func (g *Generator) publish(target string, content []byte) (err error) {
	staging := filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.%s.tmp", filepath.Base(target), g.newID()))

	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return NewFileSystemError(staging, "create staging file", err)
	}
	defer func() {
		if rmErr := os.Remove(staging); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = NewFileSystemError(staging, "remove staging file", rmErr)
		}
	}()

	if _, err := f.Write(content); err != nil {
		f.Close()
		return NewFileSystemError(staging, "write", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return NewFileSystemError(staging, "sync", err)
	}
	if err := f.Close(); err != nil {
		return NewFileSystemError(staging, "close", err)
	}

	if err := os.Link(staging, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &CollisionError{Path: target, Err: err}
		}
		return NewFileSystemError(target, "create", err)
	}
	return nil
}

func (g *Generator) rollback(created []string) error {
	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		if err := os.Remove(created[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, NewFileSystemError(created[i], "remove after failure", err))
			continue
		}
		g.logger.Warn("removed partially generated artifact", "file", created[i])
	}
	return errors.Join(errs...)
}
