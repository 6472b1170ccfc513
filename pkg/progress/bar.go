// Package progress renders a commit counter shared by concurrent workers.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	filledChar     = "█"
	emptyChar      = "░"
	defaultWidth   = 30
	redrawInterval = 100 * time.Millisecond
)

// Bar counts processed commits. Increment is safe for concurrent use; the
// bar is redrawn from a single goroutine, and only on a terminal.
type Bar struct {
	out         io.Writer
	interactive bool
	width       int

	total   atomic.Int64
	done    atomic.Int64
	started time.Time

	filled *color.Color
	empty  *color.Color

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a bar drawing to out. Nothing is drawn unless out is a terminal.
func New(out io.Writer) *Bar {
	interactive := isTerminal(out)

	filled := color.New(color.FgGreen)
	empty := color.New(color.FgHiBlack)
	if !interactive {
		filled.DisableColor()
		empty.DisableColor()
	}

	return &Bar{
		out:         out,
		interactive: interactive,
		width:       defaultWidth,
		filled:      filled,
		empty:       empty,
		stop:        make(chan struct{}),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start sets the expected number of commits and begins redrawing
func (b *Bar) Start(total int) {
	b.total.Store(int64(total))
	b.started = time.Now()

	if !b.interactive {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(redrawInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				b.draw()
			case <-b.stop:
				return
			}
		}
	}()
}

// Increment records one processed commit
func (b *Bar) Increment() {
	b.done.Add(1)
}

// Done returns the number of processed commits
func (b *Bar) Done() int64 {
	return b.done.Load()
}

// Finish stops redrawing and leaves the final state on screen
func (b *Bar) Finish() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.wg.Wait()
		if b.interactive {
			b.draw()
			fmt.Fprintln(b.out)
		}
	})
}

func (b *Bar) draw() {
	fmt.Fprintf(b.out, "\r%s", b.Line())
}

// Line renders the current state, e.g. "[██████░░░░] 12/20 commits".
func (b *Bar) Line() string {
	done := b.done.Load()
	total := b.total.Load()

	ratio := 1.0
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * float64(b.width))
	bar := b.filled.Sprint(strings.Repeat(filledChar, filled)) +
		b.empty.Sprint(strings.Repeat(emptyChar, b.width-filled))

	line := fmt.Sprintf("[%s] %d/%d commits", bar, done, total)
	if !b.started.IsZero() {
		line += fmt.Sprintf("  %s", time.Since(b.started).Round(time.Second))
	}
	return line
}
