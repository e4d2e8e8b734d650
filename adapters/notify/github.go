package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"

	"iac-pipeline/core/output"
)

// GitHub comments the markdown report on a pull request
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	number int
}

// NewGitHub authenticates with token
func NewGitHub(token, owner, repo string, number int) *GitHub {
	return NewGitHubWithClient(github.NewClient(nil).WithAuthToken(token), owner, repo, number)
}

// NewGitHubWithClient uses an existing client
func NewGitHubWithClient(client *github.Client, owner, repo string, number int) *GitHub {
	return &GitHub{client: client, owner: owner, repo: repo, number: number}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) Notify(ctx context.Context, report *output.Report) error {
	var buf bytes.Buffer
	if err := (&output.MarkdownFormatter{}).Render(&buf, report); err != nil {
		return err
	}
	_, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, g.number, &github.IssueComment{
		Body: github.String(buf.String()),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on %s/%s#%d: %w", g.owner, g.repo, g.number, err)
	}
	return nil
}
