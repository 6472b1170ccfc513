package cli

import (
	"github.com/spf13/cobra"

	"github.com/ekexium/gimme-release-notes/pkg/config"
	"github.com/ekexium/gimme-release-notes/pkg/notes"
	"github.com/ekexium/gimme-release-notes/pkg/output"
	"github.com/ekexium/gimme-release-notes/pkg/types"
)

func newCommitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commit SHA...",
		Short:   "Print the release notes of individual commits",
		Example: `  gimme-release-notes commit -r tikv/tikv 3f2a9c1 8d01be4`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runCommit,
	}

	cmd.Flags().StringP(config.KeyFormat, "f", string(output.FormatText), "Output format (text, json, yaml)")

	return cmd
}

func runCommit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.ValidateCommon(); err != nil {
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

	var entries []types.ReleaseNoteEntry
	for _, sha := range args {
		found, err := extractor.Extract(cmd.Context(), types.CommitRef{SHA: sha})
		if err != nil {
			return err
		}
		entries = append(entries, found...)
	}

	return output.Render(cmd.OutOrStdout(), cfg.Format, entries)
}
