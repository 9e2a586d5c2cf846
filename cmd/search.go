package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/entity"
	"github.com/spigell/hh-matcher/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search candidate|job",
	Short: "Filter stored candidates or jobs by their fields",
	Long: "Filter stored candidates or jobs by their fields.\n" +
		"Text filters are case-insensitive substring matches, every given skill must be present.\n" +
		"--title, --company, --location, --job-type, --seniority and --domain apply to jobs only, --name to candidates only.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	flags := searchCmd.Flags()
	flags.String("name", "", "candidate name contains")
	flags.String("title", "", "job title contains")
	flags.String("company", "", "job company contains")
	flags.String("location", "", "job location contains")
	flags.String("job-type", "", "job type, e.g. full-time or contract")
	flags.String("seniority", "", "job seniority level: junior, mid or senior")
	flags.String("domain", "", "job domain, e.g. technology or finance")
	flags.StringSlice("skills", nil, "comma separated skills that all must be present")
	flags.Float64("min-experience", 0, "minimum years of experience")
	flags.Float64("max-experience", 0, "maximum years of experience")
	flags.IntP("limit", "l", store.DefaultSearchLimit, "maximum number of results (1-200)")
}

func runSearch(cmd *cobra.Command, args []string) {
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

	flags := cmd.Flags()
	skills, _ := flags.GetStringSlice("skills")
	limit, _ := flags.GetInt("limit")
	minExp := optionalFloat(flags, "min-experience")
	maxExp := optionalFloat(flags, "max-experience")

	var result any
	switch kind {
	case entity.KindCandidate:
		name, _ := flags.GetString("name")
		result, err = d.store.SearchCandidates(ctx, store.CandidateFilter{
			Name:          name,
			Skills:        skills,
			MinExperience: minExp,
			MaxExperience: maxExp,
			Limit:         limit,
		})
	case entity.KindJob:
		f := store.JobFilter{
			Skills:        skills,
			MinExperience: minExp,
			MaxExperience: maxExp,
			Limit:         limit,
		}
		f.Title, _ = flags.GetString("title")
		f.Company, _ = flags.GetString("company")
		f.Location, _ = flags.GetString("location")
		f.JobType, _ = flags.GetString("job-type")
		f.SeniorityLevel, _ = flags.GetString("seniority")
		f.Domain, _ = flags.GetString("domain")
		result, err = d.store.SearchJobs(ctx, f)
	}
	if err != nil {
		d.logger.Fatal("searching", zap.String("kind", string(kind)), zap.Error(err))
	}

	if err := printJSON(result); err != nil {
		d.logger.Fatal("printing results", zap.Error(err))
	}
}

// optionalFloat is nil unless the flag was given on the command line.
func optionalFloat(flags *pflag.FlagSet, name string) *float64 {
	if !flags.Changed(name) {
		return nil
	}
	v, err := flags.GetFloat64(name)
	if err != nil {
		return nil
	}
	return &v
}
