package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/entity"
	"github.com/spigell/hh-matcher/internal/ingest"
	"github.com/spigell/hh-matcher/internal/skills"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest candidate|job -f file",
	Short: "Store candidates or jobs from a YAML or JSON file and embed them",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIngest(cmd, args)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store a small built-in sample of candidates and jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		runSeed(cmd)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(seedCmd)

	ingestCmd.Flags().StringP("file", "f", "", "file with one record or a list of records")
	_ = ingestCmd.MarkFlagRequired("file")
}

func newIngester(d *deps) *ingest.Ingester {
	return ingest.New(skills.New(d.config.ExtraSkills...), d.provider, d.store, d.logger)
}

func runIngest(cmd *cobra.Command, args []string) {
	kind, err := entity.ParseKind(args[0])
	if err != nil {
		cobra.CheckErr(err)
	}
	file, _ := cmd.Flags().GetString("file")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d := setup(ctx, true, true)
	defer d.close()

	ingester := newIngester(d)

	stored := 0
	switch kind {
	case entity.KindCandidate:
		records, err := ingest.LoadCandidates(file)
		if err != nil {
			d.logger.Fatal("loading candidates", zap.Error(err))
		}
		for _, record := range records {
			if _, err := ingester.IngestCandidate(ctx, record); err != nil {
				d.logger.Fatal("ingesting a candidate", zap.Error(err), zap.Int("stored", stored))
			}
			stored++
		}
	case entity.KindJob:
		records, err := ingest.LoadJobs(file)
		if err != nil {
			d.logger.Fatal("loading jobs", zap.Error(err))
		}
		for _, record := range records {
			if _, err := ingester.IngestJob(ctx, record); err != nil {
				d.logger.Fatal("ingesting a job", zap.Error(err), zap.Int("stored", stored))
			}
			stored++
		}
	}

	d.logger.Info("ingest finished", zap.String("kind", string(kind)), zap.String("file", file), zap.Int("stored", stored))
}

func runSeed(cmd *cobra.Command) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d := setup(ctx, true, true)
	defer d.close()

	candidates, jobs, err := newIngester(d).Seed(ctx)
	if err != nil {
		d.logger.Fatal("seeding sample data", zap.Error(err))
	}

	d.logger.Info("sample data stored", zap.Int("candidates", candidates), zap.Int("jobs", jobs))
}
