package gitcontributors

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Stone-IT-Cloud/devreport/internal/log"
	"github.com/Stone-IT-Cloud/devreport/pkg/daterange"
)

// Contributor holds the commits one author made inside the window.
type Contributor struct {
	Name            string
	Email           string
	Commits         int
	FirstCommitDate time.Time
	LastCommitDate  time.Time
}

// Identity is the "Name <email>" string git matches --author patterns against.
func (c Contributor) Identity() string {
	return fmt.Sprintf("%s <%s>", c.Name, c.Email)
}

// MatchesAny reports whether any alias would select this author in git log.
// Aliases are regular expressions to git; one that does not compile is matched
// as a plain substring instead.
func (c Contributor) MatchesAny(aliases []string) bool {
	identity := c.Identity()
	for _, alias := range aliases {
		re, err := regexp.Compile(alias)
		if err != nil {
			if strings.Contains(identity, alias) {
				return true
			}
			continue
		}
		if re.MatchString(identity) {
			return true
		}
	}
	return false
}

// GetContributors lists the non-merge commit authors of repoPath inside r,
// sorted by name then email.
func GetContributors(ctx context.Context, repoPath string, r daterange.DateRange) ([]Contributor, error) {
	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %q: %w", repoPath, err)
	}

	const separator = "|"
	args := []string{
		"log",
		"--pretty=format:%aN|%aE|%aI",
		"--since=" + r.GitSince(),
		"--until=" + r.GitUntil(),
		"--no-merges",
		"--",
	}
	log.DebugCommand(absRepoPath, "git", args)

	cmd := exec.CommandContext(ctx, "git", args...) // #nosec G204
	cmd.Dir = absRepoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := stderr.String()
		if strings.Contains(stderrStr, "does not have any commits") ||
			strings.Contains(stderrStr, "bad default revision 'HEAD'") {
			return []Contributor{}, nil
		}
		return nil, fmt.Errorf("git log command failed (path: %q): %w\nstderr: %s", absRepoPath, err, stderrStr)
	}

	byIdentity := make(map[string]*Contributor)
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), separator, 3)
		if len(parts) != 3 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		email := strings.TrimSpace(parts[1])
		commitDate, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[2]))
		if err != nil || (name == "" && email == "") {
			continue
		}
		commitDate = commitDate.UTC()

		key := strings.ToLower(name + "<" + email + ">")
		c, ok := byIdentity[key]
		if !ok {
			byIdentity[key] = &Contributor{Name: name, Email: email, Commits: 1, FirstCommitDate: commitDate, LastCommitDate: commitDate}
			continue
		}
		c.Commits++
		if commitDate.Before(c.FirstCommitDate) {
			c.FirstCommitDate = commitDate
		}
		if commitDate.After(c.LastCommitDate) {
			c.LastCommitDate = commitDate
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading git log output: %w", err)
	}

	contributors := make([]Contributor, 0, len(byIdentity))
	for _, c := range byIdentity {
		contributors = append(contributors, *c)
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		nameI, nameJ := strings.ToLower(contributors[i].Name), strings.ToLower(contributors[j].Name)
		if nameI != nameJ {
			return nameI < nameJ
		}
		return strings.ToLower(contributors[i].Email) < strings.ToLower(contributors[j].Email)
	})
	return contributors, nil
}
