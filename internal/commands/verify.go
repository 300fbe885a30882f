package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/store"
	"github.com/reckon-dev/reckon/internal/verify"
)

func newVerifyCommand() *cobra.Command {
	var dir string
	var fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit stored data for discrepancies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			from, err := parseDateFlag(fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to, err := parseDateFlag(toStr)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			return runVerify(absDir, from, to)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringVar(&fromStr, "from", "", "start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&toStr, "to", "", "end date (YYYY-MM-DD, inclusive)")

	return cmd
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func runVerify(dir string, from, to time.Time) error {
	cfg, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	v := verify.New(&storeReader{st: st}, cfg.VerifierOptions())
	report, err := v.Run(from, to)
	if err != nil {
		return err
	}

	fmt.Print(report.Human())
	if report.Total() > 0 {
		return fmt.Errorf("%d discrepancies found", report.Total())
	}
	return nil
}

// storeReader adapts the store to the verifier's read-only view.
type storeReader struct {
	st *store.Store
}

func (r *storeReader) Active(from, to time.Time) ([]model.TransactionRecord, error) {
	return r.st.Records.Active(from, to)
}

func (r *storeReader) Groups() ([]model.DuplicateGroup, error) {
	return r.st.Groups.All()
}

func (r *storeReader) ConfirmedLinks() ([]model.MatchLink, error) {
	return r.st.Links.Confirmed()
}

func (r *storeReader) LedgerEntities() ([]string, error) {
	return r.st.Ledgers.Entities()
}

func (r *storeReader) LedgerEntries(entityRef string) ([]model.LedgerEntry, error) {
	return r.st.Ledgers.Entries(entityRef)
}
