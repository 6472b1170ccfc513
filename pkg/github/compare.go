package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

type compareResponse struct {
	TotalCommits *int             `json:"total_commits"`
	Commits      []commitResponse `json:"commits"`
}

type commitResponse struct {
	SHA *string `json:"sha"`
}

// CompareURL returns the URL of one page of the compare listing
func (c *Client) CompareURL(repo, rangeSpec string, page types.Page) string {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Index))
	query.Set("page_size", strconv.Itoa(page.Size))
	// GitHub itself only honors per_page.
	query.Set("per_page", strconv.Itoa(page.Size))
	return fmt.Sprintf("%s/repos/%s/compare/%s?%s", c.baseURL, repo, rangeSpec, query.Encode())
}

// Compare fetches one page of the commits between the two refs of rangeSpec
func (c *Client) Compare(ctx context.Context, repo, rangeSpec string, page types.Page) (types.ComparePage, error) {
	pageURL := c.CompareURL(repo, rangeSpec, page)

	var resp compareResponse
	if err := c.GetJSON(ctx, pageURL, &resp); err != nil {
		return types.ComparePage{}, err
	}

	if resp.TotalCommits == nil {
		return types.ComparePage{}, fmt.Errorf("%w: %s: missing total_commits", types.ErrFormat, pageURL)
	}
	if *resp.TotalCommits < 0 {
		return types.ComparePage{}, fmt.Errorf("%w: %s: negative total_commits %d", types.ErrFormat, pageURL, *resp.TotalCommits)
	}
	if resp.Commits == nil {
		return types.ComparePage{}, fmt.Errorf("%w: %s: missing commits", types.ErrFormat, pageURL)
	}

	commits := make([]types.CommitRef, 0, len(resp.Commits))
	for i, commit := range resp.Commits {
		if commit.SHA == nil || *commit.SHA == "" {
			return types.ComparePage{}, fmt.Errorf("%w: %s: commit %d has no sha", types.ErrFormat, pageURL, i)
		}
		commits = append(commits, types.CommitRef{SHA: *commit.SHA})
	}

	return types.ComparePage{
		TotalCommits: *resp.TotalCommits,
		Commits:      commits,
	}, nil
}
