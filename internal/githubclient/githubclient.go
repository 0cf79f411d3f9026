// Package githubclient is the external GitHubClient contract (spec.md §2,
// §6): list issues since cursor, get issue/PR, create issue, add comment,
// and rate-limit governance.
package githubclient

import "context"

// Issue is a GitHub issue or PR (PRs surface via the same REST shape with
// PullRequest non-nil upstream; this core only reads the fields it needs).
type Issue struct {
	Number    int
	Title     string
	Body      string
	State     string // "open" | "closed"
	URL       string
	UpdatedAt string
}

// Client is the narrow surface Pollers depend on.
type Client interface {
	ListIssuesSince(ctx context.Context, owner, repo, cursor string) ([]Issue, string, error)
	GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*Issue, error)
	CreateIssue(ctx context.Context, owner, repo, title, body string) (*Issue, error)
	AddComment(ctx context.Context, owner, repo string, number int, body string) error
}
