package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/entity"
	"github.com/spigell/hh-matcher/internal/matching"
	"github.com/spigell/hh-matcher/internal/store"
)

const (
	PromptYes  = "Yes"
	PromptNo   = "No"
	PromptBack = "back"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match candidate|job [id]",
	Short: "Rank jobs for a candidate or candidates for a job",
	Long: "Rank jobs for a candidate or candidates for a job and store the results.\n" +
		"Without an id an interactive picker lists the stored entities.",
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, args)
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches candidate|job id",
	Short: "Show stored match results of a candidate or a job",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMatches(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(matchesCmd)

	matchCmd.Flags().IntP("top-k", "k", 10, "maximum number of results (1-100)")
	matchCmd.Flags().Float64P("min-similarity", "m", 0.5, "minimum cosine similarity (0-1)")
	matchCmd.Flags().Duration("timeout", 0, "abort the query after this long (default from match.timeout)")

	viper.BindPFlag("match.top-k", matchCmd.Flags().Lookup("top-k"))
	viper.BindPFlag("match.min-similarity", matchCmd.Flags().Lookup("min-similarity"))
	viper.BindPFlag("match.timeout", matchCmd.Flags().Lookup("timeout"))
}

func runMatch(cmd *cobra.Command, args []string) {
	kind, err := entity.ParseKind(args[0])
	if err != nil {
		cobra.CheckErr(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d := setup(ctx, true, true)
	defer d.close()

	id := ""
	if len(args) == 2 {
		id = strings.TrimSpace(args[1])
	}
	if id == "" {
		id, err = pickEntity(ctx, d.store, kind)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			d.logger.Fatal("choosing an entity", zap.Error(err))
		}
	}

	cfg := d.config.Match
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ranker := matching.NewRanker(d.store, d.store, d.modelName(), d.logger)

	var result any
	switch kind {
	case entity.KindCandidate:
		result, err = ranker.MatchCandidateToJobs(ctx, id, cfg.TopK, cfg.MinSimilarity)
	case entity.KindJob:
		result, err = ranker.MatchJobToCandidates(ctx, id, cfg.TopK, cfg.MinSimilarity)
	}
	if err != nil {
		d.logger.Fatal("matching failed", zap.Error(err))
	}

	if err := printJSON(result); err != nil {
		d.logger.Fatal("printing results", zap.Error(err))
	}
}

func runMatches(cmd *cobra.Command, args []string) {
	kind, err := entity.ParseKind(args[0])
	if err != nil {
		cobra.CheckErr(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d := setup(ctx, true, false)
	defer d.close()

	results, err := d.store.ListMatches(ctx, kind, args[1])
	if err != nil {
		d.logger.Fatal("listing stored matches", zap.Error(err))
	}

	d.logger.Info("stored matches", zap.String("kind", string(kind)), zap.String("id", args[1]), zap.Int("count", len(results)))

	if err := printJSON(results); err != nil {
		d.logger.Fatal("printing results", zap.Error(err))
	}
}

// pickEntity lets the user choose a candidate or a job from the store.
func pickEntity(ctx context.Context, s *store.Store, kind entity.Kind) (string, error) {
	var items []string
	switch kind {
	case entity.KindCandidate:
		candidates, err := s.ListCandidates(ctx)
		if err != nil {
			return "", err
		}
		for _, c := range candidates {
			items = append(items, fmt.Sprintf("%s %s / %s", c.ID, c.Name, strings.Join(c.Skills, ", ")))
		}
	case entity.KindJob:
		jobs, err := s.ListJobs(ctx)
		if err != nil {
			return "", err
		}
		for _, j := range jobs {
			items = append(items, fmt.Sprintf("%s %s / %s / %s", j.ID, j.Title, j.Company, j.Location))
		}
	}

	if len(items) == 0 {
		return "", fmt.Errorf("there are no stored %ss, ingest some first", kind)
	}

	selectPrompt := promptui.Select{
		Label: fmt.Sprintf("Choose a %s and press ENTER", kind),
		Items: append(items, PromptBack),
		Size:  10,
	}

	_, selected, err := selectPrompt.Run()
	if err != nil {
		return "", err
	}
	if selected == PromptBack {
		return "", errExit
	}

	return strings.Split(selected, " ")[0], nil
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(pretty))
	return err
}
