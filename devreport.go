// Package devreport produces a monthly developer report: it extracts one
// author's commits and diffs from a set of repositories, asks a Gemini model to
// summarize them, and appends the summary as a row to a CSV report.
package devreport

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Stone-IT-Cloud/devreport/internal/config"
	"github.com/Stone-IT-Cloud/devreport/internal/log"
	"github.com/Stone-IT-Cloud/devreport/internal/summary"
	"github.com/Stone-IT-Cloud/devreport/pkg/csvreport"
	"github.com/Stone-IT-Cloud/devreport/pkg/daterange"
	"github.com/Stone-IT-Cloud/devreport/pkg/gitlogs"
	"github.com/Stone-IT-Cloud/devreport/pkg/gitproviders"
)

// Options describes one report run.
type Options struct {
	// Name is the display name written to the report.
	Name string
	// Aliases is the comma-separated list of git author names or emails.
	Aliases string
	Repos   []string
	Output  string
	Range   daterange.DateRange
}

// Extractor collects the per-repository extracts for a run.
type Extractor interface {
	ExtractAll(ctx context.Context, repoPaths []string) []*gitlogs.RepositoryExtract
}

// Outcome tells which step a run stopped at.
type Outcome int

const (
	// OutcomeNoCommits means no repository had matching commits; nothing was sent or written.
	OutcomeNoCommits Outcome = iota
	// OutcomeNoResult means the backend produced no usable summary; nothing was written.
	OutcomeNoResult
	// OutcomeWriteFailed means the summary could not be appended to the report.
	OutcomeWriteFailed
	// OutcomeWritten means one row was appended.
	OutcomeWritten
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoCommits:
		return "no commits"
	case OutcomeNoResult:
		return "no result"
	case OutcomeWriteFailed:
		return "write failed"
	case OutcomeWritten:
		return "written"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Run executes the pipeline. Missing repositories, empty logs, unusable AI
// replies and report write failures are logged and reflected in the Outcome;
// only failures that make the whole run pointless are returned as errors.
func Run(ctx context.Context, opts Options, extractor Extractor, summarizer summary.Summarizer) (Outcome, error) {
	log.Info("Range: %s", opts.Range)

	extracts := extractor.ExtractAll(ctx, opts.Repos)
	if len(extracts) == 0 {
		log.Info("No commits found.")
		return OutcomeNoCommits, nil
	}

	contextPath, cleanup, err := gitlogs.WriteContextFile(gitlogs.Aggregate(extracts))
	if err != nil {
		log.Warn("Cannot write context file, report not updated: %v", err)
		return OutcomeNoResult, nil
	}
	defer cleanup()
	log.Debug("Context for %d repositories written to %s", len(extracts), contextPath)

	result, err := summarizer.Summarize(ctx, contextPath)
	if err != nil {
		if errors.Is(err, summary.ErrNoResult) {
			log.Warn("No summary produced, report not updated: %v", err)
			return OutcomeNoResult, nil
		}
		return OutcomeNoResult, err
	}
	if result.IsEmpty() {
		log.Warn("Empty summary, report not updated.")
		return OutcomeNoResult, nil
	}

	row := csvreport.NewRow(opts.Range.Label, opts.Name, result.Projects,
		string(result.CompletedSummary), string(result.NextSteps))
	if err := csvreport.Append(opts.Output, row); err != nil {
		log.Error("Error writing to file: %v", err)
		return OutcomeWriteFailed, nil
	}

	log.Success("Success! Report appended to: %s", opts.Output)
	return OutcomeWritten, nil
}

// NewSummarizer builds the backend selected by cfg. The returned close function
// releases it. A backend that cannot work at all (missing tool, missing
// credential) is reported here, before any repository is read.
func NewSummarizer(ctx context.Context, cfg *config.Config, creds summary.Credentials) (summary.Summarizer, func(), error) {
	retry := summary.DefaultRetryConfig()
	retry.Attempts = cfg.RetryAttempts
	retry.Timeout = cfg.AITimeoutDuration()

	switch cfg.Backend {
	case config.BackendAPI:
		backend, err := summary.NewGeminiBackend(ctx, creds, cfg.GeminiModel, cfg.MaxContextChars, retry)
		if err != nil {
			return nil, func() {}, err
		}
		return backend, func() { _ = backend.Close() }, nil
	case config.BackendCLI:
		backend, err := summary.NewCLIBackend(cfg.CLITool, retry)
		if err != nil {
			return nil, func() {}, err
		}
		return backend, func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("%w: unknown backend %q", config.ErrConfiguration, cfg.Backend)
	}
}

// NewExtractor builds the git extractor for opts. With GitHub lookups enabled
// and a token present, each extract also carries the hosted repository's
// description; a failing GitHub login only disables that.
func NewExtractor(ctx context.Context, cfg *config.Config, opts Options, githubToken string) *gitlogs.Extractor {
	extractOpts := gitlogs.Options{
		Aliases:       opts.Aliases,
		Range:         opts.Range,
		ExtraExcludes: cfg.ExtraExcludes,
		Timeout:       cfg.GitTimeoutDuration(),
	}

	if !cfg.GitHub.Enabled {
		return gitlogs.NewExtractor(extractOpts, nil)
	}
	if githubToken == "" {
		log.Warn("GitHub lookups are enabled but %s is not set, skipping descriptions", config.GitHubTokenEnvVar)
		return gitlogs.NewExtractor(extractOpts, nil)
	}
	client, err := gitproviders.NewGitHubClient(ctx, githubToken)
	if err != nil {
		log.Warn("GitHub lookups disabled: %v", err)
		return gitlogs.NewExtractor(extractOpts, nil)
	}
	return gitlogs.NewExtractor(extractOpts, gitproviders.NewDescriber(client))
}

// CredentialsFromEnv collects the API backend credentials from the config file
// and the process environment.
func CredentialsFromEnv(cfg *config.Config) summary.Credentials {
	creds := summary.Credentials{
		APIKey:          os.Getenv(config.APIKeyEnvVar),
		CredentialsFile: cfg.CredentialsFile,
	}
	if creds.CredentialsFile == "" {
		creds.CredentialsFile = os.Getenv(config.CredentialsFileEnvVar)
	}
	return creds
}
