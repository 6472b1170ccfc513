package types

import (
	"fmt"
	"strings"
)

// CommitRef is a single commit listed by the compare endpoint
type CommitRef struct {
	SHA string
}

// ChangeRequest is a pull request linked to a commit
type ChangeRequest struct {
	Number int
	URL    string
	Labels []string
	Body   string
}

// HasLabel reports whether the pull request carries the exact label
func (c ChangeRequest) HasLabel(label string) bool {
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ReleaseNoteEntry is one extracted release note
type ReleaseNoteEntry struct {
	SHA    string `json:"sha" yaml:"sha"`
	Number int    `json:"number" yaml:"number"`
	URL    string `json:"url" yaml:"url"`
	Text   string `json:"note" yaml:"note"`
}

// Format renders the entry as it appears in the release notes file
func (e ReleaseNoteEntry) Format() string {
	return fmt.Sprintf("\n%s\n[#%d](%s)%s", e.SHA, e.Number, e.URL, e.Text)
}

// Page is a 1-based coordinate into the compare listing
type Page struct {
	Index int
	Size  int
}

// ComparePage is the decoded response of one compare call
type ComparePage struct {
	TotalCommits int
	Commits      []CommitRef
}

// CommitStatus represents what happened to a commit during extraction
type CommitStatus int

const (
	StatusNoPR CommitStatus = iota
	StatusUnlabeled
	StatusNoted
	StatusAmbiguous
)

func (s CommitStatus) String() string {
	switch s {
	case StatusNoPR:
		return "no pull request"
	case StatusUnlabeled:
		return "not labeled"
	case StatusNoted:
		return "release note"
	case StatusAmbiguous:
		return "ambiguous (skipped)"
	default:
		return "unknown status"
	}
}

// PageResult is the output of processing one page
type PageResult struct {
	Page     Page
	Entries  []ReleaseNoteEntry
	Statuses map[CommitStatus]int
}

// Text concatenates the formatted entries of the page
func (r PageResult) Text() string {
	var b strings.Builder
	for _, e := range r.Entries {
		b.WriteString(e.Format())
	}
	return b.String()
}
