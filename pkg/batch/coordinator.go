package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ekexium/gimme-release-notes/pkg/notes"
	"github.com/ekexium/gimme-release-notes/pkg/types"
)

const (
	// DefaultPageSize matches the page size GitHub uses for the compare listing
	DefaultPageSize = 30
	// MaxPageSize is the largest per_page GitHub honors
	MaxPageSize = 100
)

// PageSource fetches one page of the commits in a range
type PageSource interface {
	Compare(ctx context.Context, repo, rangeSpec string, page types.Page) (types.ComparePage, error)
}

// CommitChecker extracts the release note of a single commit
type CommitChecker interface {
	Check(ctx context.Context, commit types.CommitRef) (notes.Result, error)
}

// Progress is told the number of commits up front and then once per processed commit.
// Increment is called from several goroutines.
type Progress interface {
	Start(total int)
	Increment()
}

// Config controls the batch run
type Config struct {
	PageSize int

	// Concurrency caps the pages processed at once. Zero starts one
	// goroutine per page.
	Concurrency int

	Progress Progress
	Logger   *slog.Logger
}

// Coordinator splits a commit range into pages and processes them concurrently
type Coordinator struct {
	pages       PageSource
	checker     CommitChecker
	pageSize    int
	concurrency int
	progress    Progress
	logger      *slog.Logger
}

// Result holds the page results in page order
type Result struct {
	TotalCommits int
	Pages        []types.PageResult
}

// NewCoordinator creates a new coordinator
func NewCoordinator(pages PageSource, checker CommitChecker, cfg Config) (*Coordinator, error) {
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 0 || pageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: page size must be between 1 and %d, got %d", types.ErrConfig, MaxPageSize, cfg.PageSize)
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("%w: concurrency must not be negative, got %d", types.ErrConfig, cfg.Concurrency)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		pages:       pages,
		checker:     checker,
		pageSize:    pageSize,
		concurrency: cfg.Concurrency,
		progress:    cfg.Progress,
		logger:      logger,
	}, nil
}

// PageCount returns the number of pages of the given size needed for total commits
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Run collects the release notes of a range and returns them concatenated
func (c *Coordinator) Run(ctx context.Context, repo, rangeSpec string) (string, error) {
	result, err := c.Collect(ctx, repo, rangeSpec)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// Collect fetches the first page to size the range, processes every page
// concurrently and returns the results ordered by page. Any failure aborts
// the whole run and cancels the pages still in flight.
func (c *Coordinator) Collect(ctx context.Context, repo, rangeSpec string) (Result, error) {
	first, err := c.pages.Compare(ctx, repo, rangeSpec, types.Page{Index: 1, Size: c.pageSize})
	if err != nil {
		return Result{}, fmt.Errorf("fetching range %s: %w", rangeSpec, err)
	}

	pageCount := PageCount(first.TotalCommits, c.pageSize)
	c.logger.Info("collecting release notes",
		"repo", repo,
		"range", rangeSpec,
		"commits", first.TotalCommits,
		"pages", pageCount,
	)

	if c.progress != nil {
		c.progress.Start(first.TotalCommits)
	}

	results := make([]types.PageResult, pageCount)

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	for i := range pageCount {
		page := types.Page{Index: i + 1, Size: c.pageSize}
		last := page.Index == pageCount
		g.Go(func() error {
			result, err := c.processPage(gctx, repo, rangeSpec, page, last)
			if err != nil {
				return fmt.Errorf("page %d: %w", page.Index, err)
			}
			// Each goroutine owns its slot.
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{TotalCommits: first.TotalCommits, Pages: results}, nil
}

func (c *Coordinator) processPage(ctx context.Context, repo, rangeSpec string, page types.Page, last bool) (types.PageResult, error) {
	listing, err := c.pages.Compare(ctx, repo, rangeSpec, page)
	if err != nil {
		return types.PageResult{}, err
	}

	// A short page before the last one means the host capped the page size
	// and the page count no longer covers the range.
	if n := len(listing.Commits); n > page.Size || (!last && n != page.Size) {
		return types.PageResult{}, fmt.Errorf("%w: got %d commits, want %d", types.ErrFormat, n, page.Size)
	}

	result := types.PageResult{
		Page:     page,
		Statuses: map[types.CommitStatus]int{},
	}
	for _, commit := range listing.Commits {
		if err := ctx.Err(); err != nil {
			return types.PageResult{}, err
		}

		checked, err := c.checker.Check(ctx, commit)
		if err != nil {
			return types.PageResult{}, err
		}

		result.Entries = append(result.Entries, checked.Entries...)
		result.Statuses[checked.Status]++
		if c.progress != nil {
			c.progress.Increment()
		}
	}

	c.logger.Debug("page done", "page", page.Index, "commits", len(listing.Commits), "notes", len(result.Entries))
	return result, nil
}

// Entries returns every extracted entry in range order
func (r Result) Entries() []types.ReleaseNoteEntry {
	var entries []types.ReleaseNoteEntry
	for _, page := range r.Pages {
		entries = append(entries, page.Entries...)
	}
	return entries
}

// Text concatenates the page fragments in page order
func (r Result) Text() string {
	var b strings.Builder
	for _, page := range r.Pages {
		b.WriteString(page.Text())
	}
	return b.String()
}

// Statuses sums the per-commit outcomes of all pages
func (r Result) Statuses() map[types.CommitStatus]int {
	totals := map[types.CommitStatus]int{}
	for _, page := range r.Pages {
		for status, n := range page.Statuses {
			totals[status] += n
		}
	}
	return totals
}
