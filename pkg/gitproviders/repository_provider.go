package gitproviders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
)

// Repository represents a code repository hosted on a Git provider.
type Repository struct {
	ID          string
	Name        string
	Owner       string
	Description string
	CreatedAt   time.Time
}

// RepoMetadata identifies a hosted repository by owner and name.
type RepoMetadata struct {
	Owner    string
	RepoName string
}

// GitServiceProvider is the slice of a hosting service's API the report needs.
type GitServiceProvider interface {
	GetRepository(ctx context.Context, owner, repo string) (Repository, error)
}

// Describer resolves the hosted repository behind a local checkout and returns
// its description, so the AI sees what each project is about.
type Describer struct {
	provider GitServiceProvider
}

// NewDescriber wraps provider.
func NewDescriber(provider GitServiceProvider) *Describer {
	return &Describer{provider: provider}
}

// Describe returns the hosted description of the repository checked out at repoPath.
func (d *Describer) Describe(ctx context.Context, repoPath string) (string, error) {
	metadata, err := ExtractRepoMetadata(repoPath)
	if err != nil {
		return "", err
	}
	repo, err := d.provider.GetRepository(ctx, metadata.Owner, metadata.RepoName)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(repo.Description), nil
}

// ExtractRepoMetadata reads the origin remote of the repository at repoPath and
// parses owner and name out of it.
func ExtractRepoMetadata(repoPath string) (RepoMetadata, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return RepoMetadata{}, fmt.Errorf("failed to open git repository %s: %w", repoPath, err)
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return RepoMetadata{}, fmt.Errorf("failed to get origin remote for %s: %w", repoPath, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return RepoMetadata{}, fmt.Errorf("origin remote of %s has no URL", repoPath)
	}
	return ParseRemoteURL(urls[0])
}

// ParseRemoteURL accepts the SSH (git@host:Owner/Repo.git) and URL
// (https://host/Owner/Repo.git, ssh://git@host/Owner/Repo) remote forms.
func ParseRemoteURL(remoteURL string) (RepoMetadata, error) {
	remoteURL = strings.TrimSpace(remoteURL)

	var pathPart string
	switch {
	case strings.Contains(remoteURL, "://"):
		rest := remoteURL[strings.Index(remoteURL, "://")+3:]
		slash := strings.Index(rest, "/")
		if slash == -1 {
			return RepoMetadata{}, fmt.Errorf("invalid remote URL format (missing path after host): %s", remoteURL)
		}
		pathPart = rest[slash+1:]
	case strings.Contains(remoteURL, "@") && strings.Contains(remoteURL, ":"):
		pathPart = remoteURL[strings.Index(remoteURL, ":")+1:]
	default:
		return RepoMetadata{}, fmt.Errorf("unsupported remote URL format (neither SSH nor HTTPS): %s", remoteURL)
	}

	pathParts := strings.Split(strings.Trim(pathPart, "/"), "/")
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return RepoMetadata{}, fmt.Errorf("could not extract owner/repo from remote path: %s", pathPart)
	}
	return RepoMetadata{
		Owner:    pathParts[0],
		RepoName: strings.TrimSuffix(pathParts[1], ".git"),
	}, nil
}
