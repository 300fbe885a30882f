package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/legacy"
	"github.com/reckon-dev/reckon/internal/syncer"
)

func newSyncCommand() *cobra.Command {
	var dir string
	var entities []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull changed rows from the legacy export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runSync(cmd, absDir, entities)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringSliceVar(&entities, "entity", nil, "entity types to sync (default from config)")

	return cmd
}

func runSync(cmd *cobra.Command, dir string, entities []string) error {
	log := newLogger()

	cfg, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(entities) == 0 {
		entities = cfg.Sync.Entities
	}
	if len(entities) == 0 {
		return fmt.Errorf("no entity types configured; set sync.entities or pass --entity")
	}

	exportDir := cfg.Sync.ExportDir
	if !filepath.IsAbs(exportDir) {
		exportDir = filepath.Join(dir, exportDir)
	}
	source := legacy.NewCSVSource(exportDir, cfg.Sync.PageSize)
	orch := syncer.New(source, st)

	run, err := st.Runs.Start("sync")
	if err != nil {
		return err
	}

	var lines []string
	syncErr := func() error {
		for _, entity := range entities {
			report, err := orch.Sync(cmd.Context(), entity)
			if err != nil {
				return fmt.Errorf("syncing %s: %w", entity, err)
			}
			if report.Skipped {
				log.Warn("source unavailable, skipping", "entity", entity)
			}
			lines = append(lines, report.Summary())
		}
		return nil
	}()

	summary := strings.Join(lines, "; ")
	finishRun(st, run.ID, syncErr, summary)
	if syncErr != nil {
		return syncErr
	}

	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
