package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/importer"
	"github.com/reckon-dev/reckon/internal/store"
)

func newIngestCommand() *cobra.Command {
	var dir string
	var format string
	var account string
	var keep bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest CSV files from the import directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runIngest(absDir, format, account, keep)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringVar(&format, "format", "generic", "CSV format (generic, pos)")
	cmd.Flags().StringVar(&account, "account", "", "account ref for rows that carry none")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave files in import/ instead of moving them to processed/")

	return cmd
}

func runIngest(dir, format, account string, keep bool) error {
	log := newLogger()

	cfg, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	parser := importer.DefaultRegistry().Get(format)
	if parser == nil {
		return fmt.Errorf("unknown format %q", format)
	}
	if gp, ok := parser.(*importer.GenericParser); ok {
		gp.YearHint = cfg.Import.YearHint
	}

	files, err := importer.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("Nothing to ingest.")
		return nil
	}

	run, err := st.Runs.Start("ingest")
	if err != nil {
		return err
	}

	var ingested, quarantined int
	ingestErr := func() error {
		for _, f := range files {
			log.Info("ingesting", "file", f.Name, "format", format)
			n, q, err := ingestFile(st, parser, f.Path, account)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			ingested += n
			quarantined += q
			if !keep {
				if err := importer.MarkProcessed(dir, f.Name); err != nil {
					return err
				}
			}
		}
		return nil
	}()

	summary := fmt.Sprintf("files=%d ingested=%d quarantined=%d", len(files), ingested, quarantined)
	finishRun(st, run.ID, ingestErr, summary)
	if ingestErr != nil {
		return ingestErr
	}

	fmt.Println(summary)
	return nil
}

func ingestFile(st *store.Store, parser importer.Parser, path, account string) (ingested, quarantined int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	res, err := parser.Parse(f)
	if err != nil {
		return 0, 0, err
	}

	for _, rec := range res.Records {
		if rec.AccountRef == "" {
			rec.AccountRef = account
		}
		if _, err := st.Records.Ingest(rec); err != nil {
			return ingested, quarantined, err
		}
		ingested++
	}
	for _, rec := range res.Quarantine {
		// Rows quarantined for a missing natural key still need a unique one.
		if rec.ExternalID == "" {
			rec.ExternalID = "quarantine-" + uuid.NewString()
		}
		if _, err := st.Records.Ingest(rec); err != nil {
			return ingested, quarantined, err
		}
		quarantined++
	}
	return ingested, quarantined, nil
}
