package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/migration-sequencer/internal/persistence/sqlite"
)

var errResidue = errors.New("undo scripts left objects behind")

func runVerify(ctx context.Context, args []string, out, errOut io.Writer) error {
	fs, configPath := newFlagSet("verify", "Apply every redo script, then every undo script in reverse, against a scratch in-memory SQLite database.", errOut)
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

	pool, err := sqlite.OpenScratch(ctx)
	if err != nil {
		return fmt.Errorf("open scratch database: %w", err)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			loggerFrom(ctx).Error("failed to close scratch database", "error", cerr)
		}
	}()

	report, err := sqlite.NewReplayer(pool, loggerFrom(ctx)).Replay(ctx, os.DirFS(cfg.MigrationsDir), catalog)
	if report != nil {
		fmt.Fprintf(out, "Applied %d redo and %d undo script(s), skipped %d empty script(s).\n", report.Applied, report.Reverted, report.Skipped)
	}
	if err != nil {
		return err
	}

	if !report.Clean() {
		fmt.Fprintln(out, "Left behind after undo:")
		for _, r := range report.Residue {
			fmt.Fprintf(out, "  %s\n", r)
		}
		return errResidue
	}
	fmt.Fprintln(out, "History replays cleanly.")
	return nil
}
