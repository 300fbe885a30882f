package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/config"
	"github.com/reckon-dev/reckon/internal/store"
)

func newInitCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new reconciliation project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(absDir, dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database file (default reckon.db in the project directory)")

	return cmd
}

func runInit(dir, dbPath string) error {
	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"export",
		"legacy-export",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Open once so the schema exists before the first command runs.
	sc := cfg.StoreConfig()
	if !filepath.IsAbs(sc.Path) {
		sc.Path = filepath.Join(dir, sc.Path)
	}
	db, err := store.Open(sc)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Printf("Initialized reconciliation project at %s\n", dir)
	return nil
}
