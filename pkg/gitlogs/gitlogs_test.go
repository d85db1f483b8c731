package gitlogs_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stone-IT-Cloud/devreport/pkg/daterange"
	"github.com/Stone-IT-Cloud/devreport/pkg/gitlogs"
)

const (
	author1Name  = "John Doe"
	author1Email = "jdoe@example.com"
	author2Name  = "Bob Bravo"
	author2Email = "bob@example.com"
)

var january = daterange.DateRange{Start: "2024-01-01", End: "2024-02-01", Label: "2024-01-01"}

// --- Test Helpers ---

func setupGitRepo(t *testing.T) string {
	t.Helper()
	repoPath := filepath.Join(t.TempDir(), "billing-service")
	require.NoError(t, os.MkdirAll(repoPath, 0o755))
	runGitCommand(t, repoPath, "init", "-b", "main")
	runGitCommand(t, repoPath, "config", "user.name", "Test User")
	runGitCommand(t, repoPath, "config", "user.email", "test@example.com")
	runGitCommand(t, repoPath, "commit", "--allow-empty", "-m", "Initial commit")
	return repoPath
}

func runGitCommand(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git command failed (args: %v): %v\nOutput:\n%s", args, err, string(output))
	}
}

func commitEnv(authorName, authorEmail string, commitDate time.Time) []string {
	isoDate := commitDate.Format(time.RFC3339)
	return append(os.Environ(),
		"GIT_AUTHOR_NAME="+authorName,
		"GIT_AUTHOR_EMAIL="+authorEmail,
		"GIT_AUTHOR_DATE="+isoDate,
		"GIT_COMMITTER_NAME="+authorName,
		"GIT_COMMITTER_EMAIL="+authorEmail,
		"GIT_COMMITTER_DATE="+isoDate,
	)
}

func gitCommit(t *testing.T, repoPath, message, authorName, authorEmail string, commitDate time.Time, files map[string]string) {
	t.Helper()
	for file, content := range files {
		filePath := filepath.Join(repoPath, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
		runGitCommand(t, repoPath, "add", file)
	}

	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = repoPath
	cmd.Env = commitEnv(authorName, authorEmail, commitDate)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git commit failed for %q: %v\nOutput: %s", message, err, string(output))
	}
}

func testTime(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func newExtractor(aliases string) *gitlogs.Extractor {
	return gitlogs.NewExtractor(gitlogs.Options{Aliases: aliases, Range: january, Timeout: time.Minute}, nil)
}

type staticDescriber struct {
	desc string
	err  error
}

func (d staticDescriber) Describe(context.Context, string) (string, error) { return d.desc, d.err }

// --- Test Cases ---

func TestLogArgs(t *testing.T) {
	e := gitlogs.NewExtractor(gitlogs.Options{
		Aliases:       " jdoe , John Doe,,",
		Range:         january,
		ExtraExcludes: []string{"vendor/**"},
	}, nil)

	want := []string{
		"log", "-p", "--no-color",
		"--since=2024-01-01 00:00:00", "--until=2024-01-31 23:59:59",
		"--pretty=format:===COMMIT_START===%nAuthor: %an%nMessage: %s%n",
		"--no-merges",
		"--author=jdoe", "--author=John Doe",
		"--",
		":(exclude)package-lock.json", ":(exclude)yarn.lock", ":(exclude)composer.lock",
		":(exclude)*.svg", ":(exclude)*.png", ":(exclude)dist/*", ":(exclude)build/*",
		":(exclude)*.min.js",
		":(exclude)vendor/**",
	}
	assert.Equal(t, want, e.LogArgs())
}

func TestSplitAliases(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, gitlogs.SplitAliases(" a,b c ,, d "))
	assert.Nil(t, gitlogs.SplitAliases(" , "))
}

func TestExtractMissingPaths(t *testing.T) {
	e := newExtractor("jdoe")
	ctx := context.Background()

	assert.Nil(t, e.Extract(ctx, filepath.Join(os.TempDir(), fmt.Sprintf("nonexistent-%d", time.Now().UnixNano()))))
	// A plain directory makes git exit non-zero, which is swallowed.
	assert.Nil(t, e.Extract(ctx, t.TempDir()))
}

func TestExtractMatchingCommits(t *testing.T) {
	repoPath := setupGitRepo(t)
	gitCommit(t, repoPath, "feat: add invoice export", author1Name, author1Email, testTime(2024, 1, 10, 10), map[string]string{"export.go": "package export\n"})
	gitCommit(t, repoPath, "fix: rounding in totals", author1Name, author1Email, testTime(2024, 1, 20, 15), map[string]string{"totals.go": "package totals\n"})
	gitCommit(t, repoPath, "chore: someone else", author2Name, author2Email, testTime(2024, 1, 15, 9), map[string]string{"other.go": "package other\n"})
	gitCommit(t, repoPath, "feat: too late", author1Name, author1Email, testTime(2024, 2, 15, 9), map[string]string{"late.go": "package late\n"})

	ex := newExtractor("jdoe").Extract(context.Background(), repoPath)
	require.NotNil(t, ex)

	assert.Equal(t, "billing-service", ex.RepoName)
	assert.True(t, strings.HasPrefix(ex.Text, "--- REPOSITORY: billing-service ---\n"), ex.Text)
	assert.Equal(t, 2, strings.Count(ex.Text, "===COMMIT_START==="))
	assert.Contains(t, ex.Text, "Author: John Doe")
	assert.Contains(t, ex.Text, "Message: feat: add invoice export")
	assert.Contains(t, ex.Text, "Message: fix: rounding in totals")
	assert.Contains(t, ex.Text, "+package export")
	assert.NotContains(t, ex.Text, "someone else")
	assert.NotContains(t, ex.Text, "too late")
	assert.NotContains(t, ex.Text, "\x1b[", "diff must not carry color codes")
}

func TestExtractWindowIsEndExclusive(t *testing.T) {
	// git reads bare dates in the local zone; pin it so the UTC commit dates line up.
	t.Setenv("TZ", "UTC")
	repoPath := setupGitRepo(t)
	commits := []struct {
		message string
		when    time.Time
	}{
		{"dec-last-second", time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"jan-midnight", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"jan-first", time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)},
		{"jan-last-second", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)},
		{"feb-midnight", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"feb-first", time.Date(2024, 2, 1, 0, 0, 1, 0, time.UTC)},
	}
	for i, c := range commits {
		gitCommit(t, repoPath, c.message, author1Name, author1Email, c.when, map[string]string{fmt.Sprintf("f%d.go", i): c.message})
	}

	ex := newExtractor("jdoe").Extract(context.Background(), repoPath)
	require.NotNil(t, ex)
	assert.Equal(t, 3, strings.Count(ex.Text, "===COMMIT_START==="), ex.Text)
	assert.Contains(t, ex.Text, "Message: jan-midnight")
	assert.Contains(t, ex.Text, "Message: jan-first")
	assert.Contains(t, ex.Text, "Message: jan-last-second")
	assert.NotContains(t, ex.Text, "dec-last-second")
	assert.NotContains(t, ex.Text, "feb-midnight")
	assert.NotContains(t, ex.Text, "feb-first")
}

func TestExtractMultipleAliases(t *testing.T) {
	repoPath := setupGitRepo(t)
	gitCommit(t, repoPath, "work by john", author1Name, author1Email, testTime(2024, 1, 10, 10), map[string]string{"a.go": "a"})
	gitCommit(t, repoPath, "work by bob", author2Name, author2Email, testTime(2024, 1, 11, 10), map[string]string{"b.go": "b"})

	ex := newExtractor("jdoe, bob@example.com").Extract(context.Background(), repoPath)
	require.NotNil(t, ex)
	assert.Contains(t, ex.Text, "work by john")
	assert.Contains(t, ex.Text, "work by bob")
}

func TestExtractNoMatches(t *testing.T) {
	repoPath := setupGitRepo(t)
	gitCommit(t, repoPath, "outside window", author1Name, author1Email, testTime(2023, 6, 1, 10), map[string]string{"a.go": "a"})
	gitCommit(t, repoPath, "wrong author", author2Name, author2Email, testTime(2024, 1, 12, 10), map[string]string{"b.go": "b"})

	assert.Nil(t, newExtractor("jdoe").Extract(context.Background(), repoPath))
}

func TestExtractExcludesNoisyPaths(t *testing.T) {
	repoPath := setupGitRepo(t)
	gitCommit(t, repoPath, "bump deps and build", author1Name, author1Email, testTime(2024, 1, 10, 10), map[string]string{
		"package-lock.json": `{"lockfileVersion": 3}`,
		"dist/bundle.js":    "var bundled = 1;",
		"app.min.js":        "var minified=1;",
		"logo.svg":          "<svg/>",
		"src/app.js":        "export const app = 1;",
	})

	ex := newExtractor("jdoe").Extract(context.Background(), repoPath)
	require.NotNil(t, ex)
	assert.Contains(t, ex.Text, "src/app.js")
	for _, noisy := range []string{"package-lock.json", "dist/bundle.js", "app.min.js", "logo.svg"} {
		assert.NotContains(t, ex.Text, "b/"+noisy, "%s should be excluded", noisy)
	}
}

func TestExtractSkipsMergeCommits(t *testing.T) {
	repoPath := setupGitRepo(t)
	gitCommit(t, repoPath, "C1 main", author1Name, author1Email, testTime(2024, 1, 5, 10), map[string]string{"main.txt": "m1"})
	runGitCommand(t, repoPath, "checkout", "-b", "feat")
	gitCommit(t, repoPath, "C2 feat", author1Name, author1Email, testTime(2024, 1, 6, 10), map[string]string{"feat.txt": "f1"})
	runGitCommand(t, repoPath, "checkout", "main")
	gitCommit(t, repoPath, "C3 main", author1Name, author1Email, testTime(2024, 1, 7, 10), map[string]string{"main2.txt": "m2"})

	cmd := exec.Command("git", "merge", "--no-ff", "-m", "Merge branch 'feat'", "feat")
	cmd.Dir = repoPath
	cmd.Env = commitEnv(author1Name, author1Email, testTime(2024, 1, 8, 10))
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	ex := newExtractor("jdoe").Extract(context.Background(), repoPath)
	require.NotNil(t, ex)
	assert.Equal(t, 3, strings.Count(ex.Text, "===COMMIT_START==="))
	assert.NotContains(t, ex.Text, "Merge branch")
}

func TestExtractWithDescriber(t *testing.T) {
	repoPath := setupGitRepo(t)
	gitCommit(t, repoPath, "feat: x", author1Name, author1Email, testTime(2024, 1, 10, 10), map[string]string{"x.go": "x"})

	e := gitlogs.NewExtractor(gitlogs.Options{Aliases: "jdoe", Range: january}, staticDescriber{desc: "Invoices and payments"})
	ex := e.Extract(context.Background(), repoPath)
	require.NotNil(t, ex)
	assert.True(t, strings.HasPrefix(ex.Text, "--- REPOSITORY: billing-service ---\nDescription: Invoices and payments\n"), ex.Text)

	e = gitlogs.NewExtractor(gitlogs.Options{Aliases: "jdoe", Range: january}, staticDescriber{err: errors.New("no remote")})
	ex = e.Extract(context.Background(), repoPath)
	require.NotNil(t, ex)
	assert.NotContains(t, ex.Text, "Description:")
}

func TestExtractAllKeepsOrderAndSkipsMissing(t *testing.T) {
	first := setupGitRepo(t)
	gitCommit(t, first, "first repo work", author1Name, author1Email, testTime(2024, 1, 10, 10), map[string]string{"a.go": "a"})

	second := filepath.Join(t.TempDir(), "web-frontend")
	require.NoError(t, os.MkdirAll(second, 0o755))
	runGitCommand(t, second, "init", "-b", "main")
	gitCommit(t, second, "second repo work", author1Name, author1Email, testTime(2024, 1, 11, 10), map[string]string{"b.go": "b"})

	missing := filepath.Join(t.TempDir(), "gone")
	extracts := newExtractor("jdoe").ExtractAll(context.Background(), []string{second, missing, first})
	require.Len(t, extracts, 2)
	assert.Equal(t, "web-frontend", extracts[0].RepoName)
	assert.Equal(t, "billing-service", extracts[1].RepoName)
}
