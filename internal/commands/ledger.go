package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/dedup"
	"github.com/reckon-dev/reckon/internal/ledger"
	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/store"
)

func newLedgerCommand() *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Entity ledger operations",
	}
	ledgerCmd.AddCommand(newLedgerRebuildCommand())
	ledgerCmd.AddCommand(newLedgerShowCommand())
	ledgerCmd.AddCommand(newLedgerExportCommand())
	return ledgerCmd
}

func newLedgerRebuildCommand() *cobra.Command {
	var dir string
	var entity string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild entity ledgers from active records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runLedgerRebuild(absDir, entity)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringVar(&entity, "entity", "", "rebuild only this entity (default all)")

	return cmd
}

func runLedgerRebuild(dir, only string) error {
	log := newLogger()

	_, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.Records.Active(time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	groups, err := st.Groups.All()
	if err != nil {
		return err
	}
	// Flagged duplicates stay queryable but must not double-count.
	records = dedup.CanonicalOnly(records, groups)

	run, err := st.Runs.Start("ledger-rebuild")
	if err != nil {
		return err
	}

	var entities, entryCount, skipped int
	rebuildErr := func() error {
		byEntity := map[string][]model.TransactionRecord{}
		for _, rec := range records {
			if rec.AccountRef == "" {
				skipped++
				continue
			}
			if only != "" && rec.AccountRef != only {
				continue
			}
			byEntity[rec.AccountRef] = append(byEntity[rec.AccountRef], rec)
		}

		refs := make([]string, 0, len(byEntity))
		for ref := range byEntity {
			refs = append(refs, ref)
		}
		sort.Strings(refs)

		for _, ref := range refs {
			entries, err := buildEntityLedger(ref, byEntity[ref])
			if err != nil {
				return err
			}
			if err := st.Ledgers.Rebuild(ref, entries); err != nil {
				return err
			}
			entities++
			entryCount += len(entries)
		}
		return nil
	}()

	if skipped > 0 {
		log.Warn("records without account ref excluded from ledgers", "count", skipped)
	}
	summary := fmt.Sprintf("entities=%d entries=%d skipped=%d", entities, entryCount, skipped)
	finishRun(st, run.ID, rebuildErr, summary)
	if rebuildErr != nil {
		return rebuildErr
	}

	fmt.Println(summary)
	return nil
}

// buildEntityLedger splits an entity's records by sign: positive amounts
// are charges against the entity, negative amounts are payments.
func buildEntityLedger(ref string, records []model.TransactionRecord) ([]model.LedgerEntry, error) {
	var charges, payments []ledger.Item
	for _, rec := range records {
		item := ledger.Item{
			Date:        rec.Day(),
			Amount:      rec.Amount.Abs(),
			Description: rec.CounterpartyText,
			SourceRef:   rec.SourceSystem + "/" + rec.ExternalID,
		}
		if rec.Amount.IsNegative() {
			payments = append(payments, item)
		} else {
			charges = append(charges, item)
		}
	}
	return ledger.Build(ref, charges, payments)
}

func newLedgerShowCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show <entity>",
		Short: "Print an entity's ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runLedgerShow(absDir, args[0])
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")

	return cmd
}

func runLedgerShow(dir, entityRef string) error {
	_, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.Ledgers.Entries(entityRef)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No ledger for %s. Run `reckon ledger rebuild` first.\n", entityRef)
		return nil
	}

	fmt.Printf("Ledger for %s\n", entityRef)
	for _, e := range entries {
		fmt.Printf("  %s  %-7s  %10s  %10s  %s\n",
			e.Date.Format("2006-01-02"), e.Type,
			e.Amount.StringFixed(2), e.RunningBalance.StringFixed(2), e.Description)
	}
	return nil
}

func newLedgerExportCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <entity>",
		Short: "Export an entity's ledger as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runLedgerExport(absDir, args[0])
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")

	return cmd
}

func runLedgerExport(dir, entityRef string) error {
	_, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	return exportLedgerCSV(st, dir, entityRef)
}

func exportLedgerCSV(st *store.Store, dir, entityRef string) error {
	outDir := filepath.Join(dir, "export")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	outPath := filepath.Join(outDir, "ledger-"+entityRef+".csv")
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := st.Ledgers.ExportCSV(f, entityRef); err != nil {
		return err
	}
	fmt.Printf("Exported %s\n", outPath)
	return nil
}
