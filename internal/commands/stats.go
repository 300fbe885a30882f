package commands

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts, watermarks, and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runStats(absDir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")

	return cmd
}

func runStats(dir string) error {
	_, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.Records.CountBySource()
	if err != nil {
		return err
	}
	fmt.Println("Records by source:")
	sources := make([]string, 0, len(counts))
	for s := range counts {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		fmt.Printf("  %-16s %d\n", s, counts[s])
	}

	quarantined, err := st.Records.Quarantined()
	if err != nil {
		return err
	}
	fmt.Printf("Quarantined: %d\n", len(quarantined))

	watermarks, err := st.Watermarks.All()
	if err != nil {
		return err
	}
	if len(watermarks) > 0 {
		fmt.Println("Watermarks:")
		for _, w := range watermarks {
			fmt.Printf("  %-16s %s\n", w.EntityType, w.LastApplied.Format("2006-01-02 15:04:05"))
		}
	}

	runs, err := st.Runs.Last()
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println("Last runs:")
		for _, r := range runs {
			fmt.Printf("  %-16s %-10s %s\n", r.Component, r.Status, r.Summary)
		}
	}

	return nil
}
