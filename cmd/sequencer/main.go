package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/migration-sequencer/internal/config"
	"github.com/example/migration-sequencer/internal/logging"
	"github.com/example/migration-sequencer/internal/migration"
)

var version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// command runs one subcommand. Output meant for the operator goes to out;
// logs and diagnostics go to errOut.
type command func(ctx context.Context, args []string, out, errOut io.Writer) error

var commands = map[string]command{
	"new":    runNew,
	"list":   runList,
	"check":  runCheck,
	"verify": runVerify,
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `sequencer - numbered migration pairs (version %s)

Usage:
  sequencer [command] [options]

Commands:
  new      Create the next redo/undo pair (default)
  list     List migration pairs and the next sequence number
  check    Report incomplete pairs, numbering gaps and invalid settings schemas
  verify   Replay every script against a scratch SQLite database

Run 'sequencer <command> -h' for command-specific help.
`, version)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	name := "new"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}

	switch name {
	case "help":
		usage(out)
		return exitOK
	case "version":
		fmt.Fprintln(out, version)
		return exitOK
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(errOut, "unknown command: %s\n\n", name)
		usage(errOut)
		return exitUsage
	}

	err := cmd(ctx, args, out, errOut)
	code := exitCode(err)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case migration.IsUsageError(err):
		return exitUsage
	default:
		return exitError
	}
}

// newFlagSet creates a flag set carrying the options shared by every
// command.
func newFlagSet(name, summary string, errOut io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "Path to a YAML configuration file (default .sequencer.yaml)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: sequencer %s [options]\n\n%s\n\nOptions:\n", name, summary)
		fs.PrintDefaults()
	}
	return fs, configPath
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &migration.UsageError{Field: "flags", Err: err}
	}
	if fs.NArg() > 0 {
		return &migration.UsageError{Field: "flags", Err: fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}
	return nil
}

// setup loads the configuration and attaches a logger to ctx.
func setup(ctx context.Context, configPath string, errOut io.Writer) (context.Context, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return ctx, config.Config{}, &migration.UsageError{Field: "config", Err: err}
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, errOut)
	if err != nil {
		return ctx, config.Config{}, &migration.UsageError{Field: "config", Err: err}
	}
	logger = logger.With("version", version)
	return logging.ContextWithLogger(ctx, logger), cfg, nil
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return logging.Discard()
}

// scanCatalog reads the migrations directory. With allowMissing a directory
// that does not exist yet yields an empty catalog.
func scanCatalog(ctx context.Context, cfg config.Config, allowMissing bool) (*migration.Catalog, error) {
	logger := loggerFrom(ctx)
	scanner := migration.NewScanner(migration.ScanOptions{
		Strict:         cfg.Strict,
		AllowOverwrite: cfg.AllowOverwrite,
		Logger:         logger,
	})

	catalog, err := scanner.Scan(os.DirFS(cfg.MigrationsDir), ".")
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			logger.Debug("migrations directory missing, starting from an empty catalog", "dir", cfg.MigrationsDir)
			return migration.NewCatalog("."), nil
		}
		logger.Error("failed to scan migrations", "dir", cfg.MigrationsDir, "error", err, "error_kind", migration.ErrorKind(err))
		return nil, fmt.Errorf("scan %s: %w", cfg.MigrationsDir, err)
	}
	return catalog, nil
}

func runNew(ctx context.Context, args []string, out, errOut io.Writer) error {
	fs, configPath := newFlagSet("new", "Create the next redo/undo migration pair.", errOut)
	data := fs.Bool("data", false, "Create a data migration instead of a schema migration")
	settings := fs.Bool("settings", false, "Register a settings JSON schema alongside the pair (requires --name)")
	name := fs.String("name", "", "Identifier of the settings JSON schema")
	dryRun := fs.Bool("dry-run", false, "Print the names that would be created without writing anything")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	kind := migration.KindSchema
	if *data {
		kind = migration.KindData
	}
	req := migration.Request{Kind: kind, Settings: *settings, Name: *name}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cfg, err := setup(ctx, *configPath, errOut)
	if err != nil {
		return err
	}

	catalog, err := scanCatalog(ctx, cfg, cfg.CreateDirs || *dryRun)
	if err != nil {
		return err
	}

	plan, err := migration.NewPlan(catalog, req, migration.Layout{
		MigrationsDir: cfg.MigrationsDir,
		SettingsDir:   cfg.SettingsDir,
	})
	if err != nil {
		return err
	}

	gen := migration.NewGenerator(".", migration.GeneratorOptions{
		CreateDirs: cfg.CreateDirs,
		Logger:     loggerFrom(ctx),
	})
	res, err := gen.Apply(plan, *dryRun)
	if err != nil {
		return err
	}

	if res.DryRun {
		fmt.Fprintf(out, "Would create %s and %s.\n", res.RedoName, res.UndoName)
		return nil
	}
	fmt.Fprintf(out, "Created %s and %s.\n", res.RedoName, res.UndoName)
	return nil
}

func runList(ctx context.Context, args []string, out, errOut io.Writer) error {
	fs, configPath := newFlagSet("list", "List migration pairs, the next sequence number and ignored files.", errOut)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ctx, cfg, err := setup(ctx, *configPath, errOut)
	if err != nil {
		return err
	}

	fsys := os.DirFS(cfg.MigrationsDir)
	catalog, err := scanCatalog(ctx, cfg, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Migrations in %s:\n", cfg.MigrationsDir)
	if catalog.Len() == 0 {
		fmt.Fprintln(out, "  none")
	}
	for _, p := range catalog.Pairs() {
		fmt.Fprintf(out, "  %03d  %-6s  %-24s  %s\n", p.Sequence, pairKind(p), scriptName(p.Redo), scriptName(p.Undo))
	}
	fmt.Fprintf(out, "Next sequence: %03d\n", catalog.Next())

	if foreign := catalog.Foreign(); len(foreign) > 0 {
		fmt.Fprintf(out, "Ignored: %s\n", strings.Join(foreign, ", "))
	}

	fingerprint, err := catalog.Fingerprint(fsys)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Fingerprint: %s\n", fingerprint)
	return nil
}

func pairKind(p *migration.Pair) string {
	if p.Redo != nil {
		return p.Redo.Kind.String()
	}
	return p.Undo.Kind.String()
}

func scriptName(d *migration.Descriptor) string {
	if d == nil {
		return "-"
	}
	return d.Name
}

var errProblemsFound = errors.New("migration tree is inconsistent")

func runCheck(ctx context.Context, args []string, out, errOut io.Writer) error {
	fs, configPath := newFlagSet("check", "Report incomplete pairs, numbering gaps and settings schemas that do not compile.", errOut)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ctx, cfg, err := setup(ctx, *configPath, errOut)
	if err != nil {
		return err
	}

	catalog, err := scanCatalog(ctx, cfg, false)
	if err != nil {
		return err
	}
	report, err := migration.Check(catalog, os.DirFS(cfg.SettingsDir), ".")
	if err != nil {
		return err
	}

	if report.OK() {
		fmt.Fprintf(out, "Checked %d pair(s) and %d settings schema(s): no problems.\n", report.Pairs, report.SettingsSchemas)
		return nil
	}

	fmt.Fprintf(out, "Problems in %s and %s:\n", cfg.MigrationsDir, cfg.SettingsDir)
	for _, p := range report.Problems {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return fmt.Errorf("%w: %d problem(s)", errProblemsFound, len(report.Problems))
}
