package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Stone-IT-Cloud/devreport"
	"github.com/Stone-IT-Cloud/devreport/internal/config"
	"github.com/Stone-IT-Cloud/devreport/internal/log"
	"github.com/Stone-IT-Cloud/devreport/pkg/csvreport"
	"github.com/Stone-IT-Cloud/devreport/pkg/daterange"
)

// flags holds every command-line value; one instance per command tree so tests
// can build fresh trees.
type flags struct {
	name       string
	aliases    string
	repos      []string
	output     string
	lastMonth  bool
	dates      []string
	configFile string
	backend    string
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "devreport",
		Short: "Summarize a developer's commits into a CSV report with Gemini",
		Long: `devreport reads one developer's commits and diffs from one or more git
repositories over a date window, asks Gemini to summarize the work, and appends
the summary as a row to a CSV report.`,
		Example: `  devreport --name "Jane Doe" --aliases "jdoe,jane@example.com" --last-month
  devreport --name "Jane Doe" --aliases jdoe --repos ./api,./web --dates 2024-01-01,2024-02-01
  devreport --name "Jane Doe" --aliases jdoe --dates 2024-01-01 2024-02-01`,
		Args:          datesArgs(f),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if f.debug {
				log.SetDebugMode(true)
				log.Debug("Debug mode enabled")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f.dates = append(f.dates, args...)
			return runReport(cmd.Context(), f)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringSliceVar(&f.repos, "repos", []string{"."}, "Repository paths (comma-separated or repeated)")
	pf.BoolVar(&f.lastMonth, "last-month", false, "Use the previous calendar month")
	pf.StringSliceVar(&f.dates, "dates", nil, "Explicit window as START,END or START END (YYYY-MM-DD, end exclusive)")
	pf.StringVar(&f.configFile, "config", "", "YAML config file")
	pf.BoolVar(&f.debug, "debug", false, "Enable debug output")
	rootCmd.MarkFlagsMutuallyExclusive("last-month", "dates")
	rootCmd.MarkFlagsOneRequired("last-month", "dates")

	rootCmd.Flags().StringVar(&f.name, "name", "", "Display name for the report")
	rootCmd.Flags().StringVar(&f.aliases, "aliases", "", "Author aliases (comma-separated)")
	rootCmd.Flags().StringVar(&f.output, "output", csvreport.DefaultOutput, "Output CSV path")
	rootCmd.Flags().StringVar(&f.backend, "backend", "", "AI backend: cli or api (overrides config)")
	_ = rootCmd.MarkFlagRequired("name")
	_ = rootCmd.MarkFlagRequired("aliases")

	rootCmd.AddCommand(newAuthorsCmd(f))
	return rootCmd
}

// datesArgs accepts the space-separated form "--dates START END", where END
// arrives as the single positional argument. Anything else is rejected.
func datesArgs(f *flags) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && len(f.dates) == 1 {
			return nil
		}
		return cobra.NoArgs(cmd, args)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.backend != "" {
		cfg.Backend = f.backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	log.Debug("Config: backend=%s model=%s git_timeout=%s ai_timeout=%s retries=%d",
		cfg.Backend, cfg.GeminiModel, cfg.GitTimeoutDuration(), cfg.AITimeoutDuration(), cfg.RetryAttempts)
	return cfg, nil
}

func resolveRange(f *flags) (daterange.DateRange, error) {
	r, err := daterange.Resolve(daterange.Options{LastMonth: f.lastMonth, Dates: f.dates})
	if err != nil {
		return daterange.DateRange{}, err
	}
	log.Debug("Git window: --since=%q --until=%q", r.GitSince(), r.GitUntil())
	return r, nil
}

func runReport(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	r, err := resolveRange(f)
	if err != nil {
		return err
	}

	summarizer, closeSummarizer, err := devreport.NewSummarizer(ctx, cfg, devreport.CredentialsFromEnv(cfg))
	if err != nil {
		return err
	}
	defer closeSummarizer()
	log.Debug("Using %s backend", summarizer.Name())

	opts := devreport.Options{
		Name:    f.name,
		Aliases: f.aliases,
		Repos:   f.repos,
		Output:  f.output,
		Range:   r,
	}
	extractor := devreport.NewExtractor(ctx, cfg, opts, os.Getenv(config.GitHubTokenEnvVar))

	outcome, err := devreport.Run(ctx, opts, extractor, summarizer)
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}
	log.Debug("Run finished: %s", outcome)
	return nil
}
