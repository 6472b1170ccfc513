package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

// Summary describes a finished run
type Summary struct {
	Repo         string
	Range        string
	TotalCommits int
	Pages        int
	Statuses     map[types.CommitStatus]int
	Destination  string
	Bytes        int
	Elapsed      time.Duration
}

var summaryOrder = []types.CommitStatus{
	types.StatusNoted,
	types.StatusUnlabeled,
	types.StatusNoPR,
	types.StatusAmbiguous,
}

// WriteSummary prints a table of per-commit outcomes
func WriteSummary(w io.Writer, s Summary) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("%s %s", s.Repo, s.Range))
	tbl.AppendHeader(table.Row{"Outcome", "Commits"})

	for _, status := range summaryOrder {
		n := s.Statuses[status]
		if n == 0 && status == types.StatusAmbiguous {
			continue
		}
		tbl.AppendRow(table.Row{status.String(), humanize.Comma(int64(n))})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%s pages", humanize.Comma(int64(s.Pages))),
		humanize.Comma(int64(s.TotalCommits)),
	})

	_, err := fmt.Fprintf(w, "%s\nWrote %s to %s in %s\n",
		tbl.Render(),
		humanize.Bytes(uint64(s.Bytes)),
		s.Destination,
		s.Elapsed.Round(time.Millisecond),
	)
	return err
}
