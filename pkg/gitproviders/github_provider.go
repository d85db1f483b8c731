package gitproviders

import (
	"context"
	"fmt"

	"github.com/google/go-github/v71/github"
)

// GitHubClient is a GitServiceProvider backed by the GitHub REST API.
type GitHubClient struct {
	client *github.Client
}

var _ GitServiceProvider = (*GitHubClient)(nil)

// NewGitHubClient authenticates with token and verifies it by fetching the
// current user, so a bad token fails at startup rather than per repository.
func NewGitHubClient(ctx context.Context, token string) (*GitHubClient, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is empty")
	}

	client := github.NewClient(nil).WithAuthToken(token)
	if _, _, err := client.Users.Get(ctx, ""); err != nil {
		return nil, fmt.Errorf("failed to verify GitHub authentication: %w", err)
	}

	return &GitHubClient{client: client}, nil
}

// GetRepository retrieves the basic details of owner/repo.
func (gh *GitHubClient) GetRepository(ctx context.Context, owner, repo string) (Repository, error) {
	ghRepo, _, err := gh.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return Repository{}, fmt.Errorf("failed to get GitHub repository %s/%s: %w", owner, repo, err)
	}

	return Repository{
		ID:          fmt.Sprintf("%d", ghRepo.GetID()),
		Name:        ghRepo.GetName(),
		Owner:       ghRepo.GetOwner().GetLogin(),
		Description: ghRepo.GetDescription(),
		CreatedAt:   ghRepo.GetCreatedAt().Time,
	}, nil
}
