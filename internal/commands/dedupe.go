package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/dedup"
)

func newDedupeCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "dedupe <source>",
		Short: "Flag same-day duplicate records within a source system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runDedupe(absDir, args[0])
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")

	return cmd
}

func runDedupe(dir, source string) error {
	_, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.Records.BySource(source)
	if err != nil {
		return err
	}

	run, err := st.Runs.Start("dedupe")
	if err != nil {
		return err
	}

	groups := dedup.Groups(records)
	storeErr := st.Groups.Replace(source, groups)

	flagged := 0
	for _, g := range groups {
		flagged += len(g.Members) - 1
	}
	total := dedup.Total(records, groups)
	summary := fmt.Sprintf("source=%s groups=%d flagged=%d canonical_total=%s",
		source, len(groups), flagged, total.StringFixed(2))

	finishRun(st, run.ID, storeErr, summary)
	if storeErr != nil {
		return storeErr
	}

	fmt.Println(summary)
	return nil
}
