package notes

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

// DefaultLabel marks a pull request whose release note should be collected
const DefaultLabel = "release-note"

// The heading may be followed by anything; the first fenced block after it wins.
var releaseNotePattern = regexp.MustCompile("(?s)### Release note.*?```(.*?)```")

// ExtractNote returns the interior of the first fenced block after the
// release note heading, or "" when the body has none
func ExtractNote(body string) string {
	match := releaseNotePattern.FindStringSubmatch(body)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// PullRequestSource lists the pull requests associated with a commit
type PullRequestSource interface {
	PullsForCommit(ctx context.Context, repo, sha string) ([]types.ChangeRequest, error)
}

// Config controls how release notes are picked up
type Config struct {
	Repo  string
	Label string

	// SkipAmbiguous logs and skips commits linked to several pull requests
	// instead of failing
	SkipAmbiguous bool

	Logger *slog.Logger
}

// Extractor finds the release note of a commit through its pull request
type Extractor struct {
	source        PullRequestSource
	repo          string
	label         string
	skipAmbiguous bool
	logger        *slog.Logger
}

// Result is the outcome of checking a single commit
type Result struct {
	Status  types.CommitStatus
	Entries []types.ReleaseNoteEntry
}

// NewExtractor creates a new extractor reading pull requests from source
func NewExtractor(source PullRequestSource, cfg Config) *Extractor {
	label := cfg.Label
	if label == "" {
		label = DefaultLabel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		source:        source,
		repo:          cfg.Repo,
		label:         label,
		skipAmbiguous: cfg.SkipAmbiguous,
		logger:        logger,
	}
}

// Extract returns the release note entries of a commit, zero or one
func (e *Extractor) Extract(ctx context.Context, commit types.CommitRef) ([]types.ReleaseNoteEntry, error) {
	result, err := e.Check(ctx, commit)
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// Check looks up the pull request of a commit and extracts its release note
func (e *Extractor) Check(ctx context.Context, commit types.CommitRef) (Result, error) {
	pulls, err := e.source.PullsForCommit(ctx, e.repo, commit.SHA)
	if err != nil {
		return Result{}, fmt.Errorf("commit %s: %w", commit.SHA, err)
	}

	if len(pulls) > 1 {
		if e.skipAmbiguous {
			e.logger.Warn("skipping commit linked to several pull requests", "commit", commit.SHA, "pulls", len(pulls))
			return Result{Status: types.StatusAmbiguous}, nil
		}
		return Result{}, fmt.Errorf("commit %s has %d pull requests: %w", commit.SHA, len(pulls), types.ErrAmbiguousLink)
	}

	// Direct commits without a pull request carry no release note
	if len(pulls) == 0 {
		return Result{Status: types.StatusNoPR}, nil
	}

	pr := pulls[0]
	if !pr.HasLabel(e.label) {
		return Result{Status: types.StatusUnlabeled}, nil
	}

	text := ExtractNote(pr.Body)
	if text == "" {
		e.logger.Debug("labeled pull request has no release note block", "commit", commit.SHA, "pull", pr.Number)
	}

	return Result{
		Status: types.StatusNoted,
		Entries: []types.ReleaseNoteEntry{{
			SHA:    commit.SHA,
			Number: pr.Number,
			URL:    pr.URL,
			Text:   text,
		}},
	}, nil
}
