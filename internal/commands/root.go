// Package commands wires the CLI surface. Subcommands stay thin: they load
// configuration, open the store, call one component, and render its report.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/buildinfo"
	"github.com/reckon-dev/reckon/internal/config"
	"github.com/reckon-dev/reckon/internal/store"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "reckon",
		Short:   "Reconciliation and ledger engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newDedupeCommand())
	rootCmd.AddCommand(newLedgerCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newStatsCommand())

	return rootCmd
}

// newLogger builds the structured logger for command output. Reports go to
// stdout; operational logging goes to stderr.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openProject loads the project config and opens the store. The caller
// closes the returned store.
func openProject(dir string) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return nil, nil, err
	}

	sc := cfg.StoreConfig()
	if !filepath.IsAbs(sc.Path) && sc.Path != ":memory:" {
		sc.Path = filepath.Join(dir, sc.Path)
	}
	db, err := store.Open(sc)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store.New(db), nil
}

// finishRun closes out the audit row for a mutating command.
func finishRun(st *store.Store, runID string, runErr error, summary string) {
	if runErr != nil {
		if err := st.Runs.Abort(runID, runErr.Error()); err != nil {
			newLogger().Error("aborting run", "run", runID, "error", err)
		}
		return
	}
	if err := st.Runs.Commit(runID, summary); err != nil {
		newLogger().Error("committing run", "run", runID, "error", err)
	}
}
