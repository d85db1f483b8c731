package gitlogs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Stone-IT-Cloud/devreport/internal/log"
	"github.com/Stone-IT-Cloud/devreport/pkg/daterange"
)

// IgnoredFiles are pathspecs excluded from every diff.
var IgnoredFiles = []string{
	"package-lock.json",
	"yarn.lock",
	"composer.lock",
	"*.svg",
	"*.png",
	"dist/*",
	"build/*",
	"*.min.js",
}

const (
	commitFormat = "--pretty=format:===COMMIT_START===%nAuthor: %an%nMessage: %s%n"
	markerFormat = "--- REPOSITORY: %s ---"
)

// Options configures an Extractor.
type Options struct {
	// Aliases is the comma-separated list of author names or emails to match.
	Aliases string
	Range   daterange.DateRange
	// ExtraExcludes are appended to IgnoredFiles.
	ExtraExcludes []string
	// Timeout bounds one git invocation. Zero means no bound.
	Timeout time.Duration
}

// Describer returns a short description of the project checked out at repoPath.
type Describer interface {
	Describe(ctx context.Context, repoPath string) (string, error)
}

// RepositoryExtract is the commit log and patches one repository contributed.
type RepositoryExtract struct {
	RepoName string
	Text     string
}

// Extractor pulls patch-inclusive logs out of local repositories.
type Extractor struct {
	opts      Options
	describer Describer
}

// NewExtractor creates an Extractor. describer may be nil.
func NewExtractor(opts Options, describer Describer) *Extractor {
	return &Extractor{opts: opts, describer: describer}
}

// Marker is the first line of every extract, naming the repository it came from.
func Marker(repoName string) string {
	return fmt.Sprintf(markerFormat, repoName)
}

// SplitAliases turns "a, b,,c" into [a b c].
func SplitAliases(aliases string) []string {
	var out []string
	for _, a := range strings.Split(aliases, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// LogArgs builds the git arguments for one repository. Merge commits are left out and
// every alias becomes its own --author, which git ORs together.
func (e *Extractor) LogArgs() []string {
	args := []string{
		"log",
		"-p",
		"--no-color",
		"--since=" + e.opts.Range.GitSince(),
		"--until=" + e.opts.Range.GitUntil(),
		commitFormat,
		"--no-merges",
	}
	for _, alias := range SplitAliases(e.opts.Aliases) {
		args = append(args, "--author="+alias)
	}

	args = append(args, "--")
	for _, ignore := range IgnoredFiles {
		args = append(args, ":(exclude)"+ignore)
	}
	for _, ignore := range e.opts.ExtraExcludes {
		args = append(args, ":(exclude)"+ignore)
	}
	return args
}

// Extract returns the extract for repoPath, or nil when the path is missing, git
// fails, or nothing matched. None of those stop the run, so they are only logged.
func (e *Extractor) Extract(ctx context.Context, repoPath string) *RepositoryExtract {
	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		log.Warn("Cannot resolve path %s: %v", repoPath, err)
		return nil
	}
	if _, err := os.Stat(absRepoPath); err != nil {
		log.Warn("Path %s not found.", repoPath)
		return nil
	}
	repoName := filepath.Base(absRepoPath)

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	args := e.LogArgs()
	log.DebugCommand(absRepoPath, "git", args)
	started := time.Now()

	cmd := exec.CommandContext(ctx, "git", args...) // #nosec G204
	cmd.Dir = absRepoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("git log in %s timed out after %s, skipping", repoName, e.opts.Timeout)
			return nil
		}
		log.Debug("git log in %s failed: %v\nstderr: %s", repoName, err, strings.TrimSpace(stderr.String()))
		return nil
	}
	log.DebugDuration("git log "+repoName, time.Since(started))

	rawOutput := strings.TrimSpace(stdout.String())
	if rawOutput == "" {
		log.Debug("No matching commits in %s", repoName)
		return nil
	}

	var b strings.Builder
	b.WriteString(Marker(repoName))
	b.WriteString("\n")
	if e.describer != nil {
		if desc, err := e.describer.Describe(ctx, absRepoPath); err != nil {
			log.Debug("No description for %s: %v", repoName, err)
		} else if desc != "" {
			b.WriteString("Description: " + desc + "\n")
		}
	}
	b.WriteString(rawOutput)

	return &RepositoryExtract{RepoName: repoName, Text: b.String()}
}

// ExtractAll runs Extract over repoPaths in order and keeps the non-nil results.
func (e *Extractor) ExtractAll(ctx context.Context, repoPaths []string) []*RepositoryExtract {
	var extracts []*RepositoryExtract
	for _, repo := range repoPaths {
		if ex := e.Extract(ctx, repo); ex != nil {
			log.Info("Extracted data from %s...", repo)
			extracts = append(extracts, ex)
		}
	}
	return extracts
}
