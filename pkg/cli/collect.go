package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ekexium/gimme-release-notes/pkg/batch"
	"github.com/ekexium/gimme-release-notes/pkg/config"
	"github.com/ekexium/gimme-release-notes/pkg/notes"
	"github.com/ekexium/gimme-release-notes/pkg/output"
	"github.com/ekexium/gimme-release-notes/pkg/progress"
)

func newCollectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect the release notes of a commit range",
		Example: `  gimme-release-notes collect -r tikv/tikv --range v7.5.0...v8.1.0 -o notes.md
  gimme-release-notes collect -r tikv/tikv --range v7.5.0...master --format json`,
		Args: cobra.NoArgs,
		RunE: runCollect,
	}

	flags := cmd.Flags()
	flags.String(config.KeyRange, "", "Commit range to compare, e.g. v1.0.0...main")
	flags.StringP(config.KeyOutput, "o", "", "Output file (default: standard output)")
	flags.StringP(config.KeyFormat, "f", string(output.FormatText), "Output format (text, json, yaml)")
	flags.Int(config.KeyPageSize, batch.DefaultPageSize, "Commits per page")
	flags.Int(config.KeyConcurrency, 0, "Pages processed at once (0 = all pages)")
	flags.Bool(config.KeyNoProgress, false, "Disable the progress bar")

	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.ValidateCollect(); err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	client, closeCache, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	extractor := notes.NewExtractor(client, notes.Config{
		Repo:          cfg.Repo,
		Label:         cfg.Label,
		SkipAmbiguous: cfg.SkipAmbiguous,
		Logger:        logger,
	})

	batchCfg := batch.Config{
		PageSize:    cfg.PageSize,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	}
	var bar *progress.Bar
	if !cfg.NoProgress {
		bar = progress.New(cmd.ErrOrStderr())
		batchCfg.Progress = bar
	}

	coordinator, err := batch.NewCoordinator(client, extractor, batchCfg)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := coordinator.Collect(cmd.Context(), cfg.Repo, cfg.Range)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	entries := result.Entries()
	destination := cfg.Output
	var written int
	if destination == "" || destination == "-" {
		destination = "standard output"
		counter := &countingWriter{w: cmd.OutOrStdout()}
		if err := output.Render(counter, cfg.Format, entries); err != nil {
			return err
		}
		written = counter.n
	} else {
		written, err = output.WriteFile(destination, cfg.Format, entries)
		if err != nil {
			return err
		}
	}

	logger.Debug("release notes written", "notes", len(entries), "destination", destination)

	return output.WriteSummary(cmd.ErrOrStderr(), output.Summary{
		Repo:         cfg.Repo,
		Range:        cfg.Range,
		TotalCommits: result.TotalCommits,
		Pages:        len(result.Pages),
		Statuses:     result.Statuses(),
		Destination:  destination,
		Bytes:        written,
		Elapsed:      time.Since(start),
	})
}

// countingWriter records how many bytes went through it
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
