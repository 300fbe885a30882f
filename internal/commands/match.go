package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/match"
	"github.com/reckon-dev/reckon/internal/model"
)

func newMatchCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "match <source-a> <source-b>",
		Short: "Match records between two source systems",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runMatch(absDir, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")

	return cmd
}

func runMatch(dir, sourceA, sourceB string) error {
	log := newLogger()

	cfg, st, err := openProject(dir)
	if err != nil {
		return err
	}
	defer st.Close()

	mc, err := cfg.MatcherConfig()
	if err != nil {
		return err
	}

	recsA, err := st.Records.BySource(sourceA)
	if err != nil {
		return err
	}
	recsB, err := st.Records.BySource(sourceB)
	if err != nil {
		return err
	}

	run, err := st.Runs.Start("match")
	if err != nil {
		return err
	}

	result := match.Run(recsA, recsB, mc)
	for _, amb := range result.Ambiguous {
		log.Warn("ambiguous match resolved by external id",
			"rule", string(amb.Rule),
			"a", amb.A.ExternalID,
			"chosen", amb.Chosen.ExternalID,
			"other", amb.Other.ExternalID)
	}

	links := make([]model.MatchLink, 0, len(result.Links))
	now := time.Now().UTC()
	for _, l := range result.Links {
		links = append(links, model.MatchLink{
			RecordA:    l.A.ID,
			RecordB:    l.B.ID,
			Confidence: l.Confidence,
			Rule:       l.Rule,
			Status:     model.LinkConfirmed,
			CreatedAt:  now,
		})
	}

	storeErr := st.Links.ReplacePair(run.ID, sourceA, sourceB, links)
	summary := result.Summary()
	finishRun(st, run.ID, storeErr, summary)
	if storeErr != nil {
		return storeErr
	}

	fmt.Println(summary)
	return nil
}
