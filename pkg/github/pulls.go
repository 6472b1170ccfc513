package github

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

type pullResponse struct {
	Number  *int            `json:"number"`
	HTMLURL *string         `json:"html_url"`
	Body    json.RawMessage `json:"body"`
	Labels  []labelResponse `json:"labels"`
}

type labelResponse struct {
	Name *string `json:"name"`
}

// PullsForCommitURL returns the URL listing the pull requests of a commit
func (c *Client) PullsForCommitURL(repo, sha string) string {
	return fmt.Sprintf("%s/repos/%s/commits/%s/pulls", c.baseURL, repo, sha)
}

// PullsForCommit gets the pull requests associated with a commit, using the cache when available
func (c *Client) PullsForCommit(ctx context.Context, repo, sha string) ([]types.ChangeRequest, error) {
	pullsURL := c.PullsForCommitURL(repo, sha)
	// The base URL is part of the key so enterprise hosts and github.com never share entries.
	cacheKey := c.baseURL + "/" + repo + "@" + sha

	if c.cache != nil {
		body, found, err := c.cache.Get(cacheKey)
		if err != nil {
			c.logger.Warn("error checking cache", "commit", sha, "error", err)
		} else if found {
			c.logger.Debug("cache hit", "commit", sha)
			return decodePulls(pullsURL, body)
		}
	}

	body, err := c.fetch(ctx, pullsURL)
	if err != nil {
		return nil, err
	}

	pulls, err := decodePulls(pullsURL, body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(cacheKey, body); err != nil {
			c.logger.Warn("error caching pull requests", "commit", sha, "error", err)
		}
	}

	return pulls, nil
}

func decodePulls(pullsURL string, body []byte) ([]types.ChangeRequest, error) {
	var resp []pullResponse
	if err := decode(pullsURL, body, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: %s: expected a list of pull requests", types.ErrFormat, pullsURL)
	}

	pulls := make([]types.ChangeRequest, 0, len(resp))
	for i, pr := range resp {
		if pr.Number == nil {
			return nil, fmt.Errorf("%w: %s: pull request %d has no number", types.ErrFormat, pullsURL, i)
		}
		if pr.HTMLURL == nil {
			return nil, fmt.Errorf("%w: %s: pull request #%d has no html_url", types.ErrFormat, pullsURL, *pr.Number)
		}
		if pr.Labels == nil {
			return nil, fmt.Errorf("%w: %s: pull request #%d has no labels", types.ErrFormat, pullsURL, *pr.Number)
		}

		labels := make([]string, 0, len(pr.Labels))
		for _, label := range pr.Labels {
			if label.Name == nil {
				return nil, fmt.Errorf("%w: %s: pull request #%d has a label without name", types.ErrFormat, pullsURL, *pr.Number)
			}
			labels = append(labels, *label.Name)
		}

		if pr.Body == nil {
			return nil, fmt.Errorf("%w: %s: pull request #%d has no body", types.ErrFormat, pullsURL, *pr.Number)
		}
		// GitHub sends null for an empty description.
		var body string
		if string(pr.Body) != "null" {
			if err := json.Unmarshal(pr.Body, &body); err != nil {
				return nil, fmt.Errorf("%w: %s: pull request #%d body is not a string", types.ErrFormat, pullsURL, *pr.Number)
			}
		}

		pulls = append(pulls, types.ChangeRequest{
			Number: *pr.Number,
			URL:    *pr.HTMLURL,
			Labels: labels,
			Body:   body,
		})
	}

	return pulls, nil
}
