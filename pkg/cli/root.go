// Package cli wires the commands of gimme-release-notes.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ekexium/gimme-release-notes/pkg/config"
	"github.com/ekexium/gimme-release-notes/pkg/db"
	"github.com/ekexium/gimme-release-notes/pkg/github"
	"github.com/ekexium/gimme-release-notes/pkg/notes"
)

// Version is set at build time with -ldflags "-X .../pkg/cli.Version=..."
var Version = "dev"

// NewRootCommand creates the gimme-release-notes command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gimme-release-notes",
		Short: "Collect release notes from the pull requests of a commit range",
		Long: `gimme-release-notes walks the commits between two refs of a GitHub repository,
finds the pull request of every commit and collects the fenced block under the
"### Release note" heading of each pull request labeled "release-note".

The GitHub token is read from GITHUB_TOKEN (or GIMME_TOKEN); a .env file in
the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String(config.KeyConfig, "", "Config file (yaml, json or toml)")
	flags.BoolP(config.KeyVerbose, "v", false, "Verbose logging")
	flags.String(config.KeyAPIURL, github.DefaultBaseURL, "GitHub API base URL")
	flags.StringP(config.KeyRepo, "r", "", "Repository as owner/name")
	flags.String(config.KeyLabel, notes.DefaultLabel, "Label marking pull requests with a release note")
	flags.Bool(config.KeySkipAmbiguous, false, "Skip commits linked to several pull requests instead of failing")
	flags.Int(config.KeyRetries, 0, "Retries for failed requests (transport errors and 5xx)")
	flags.Bool(config.KeyCache, false, "Cache pull request lookups in a local SQLite database")
	flags.String(config.KeyCachePath, "", "Cache database path (default: "+db.DefaultPath()+")")

	root.AddCommand(newCollectCommand())
	root.AddCommand(newCommitCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newClient builds the GitHub client, opening the response cache when enabled.
// The returned func releases the cache and is always safe to call.
func newClient(cfg config.Config, logger *slog.Logger) (*github.Client, func(), error) {
	clientCfg := github.Config{
		BaseURL: cfg.APIURL,
		Token:   cfg.Token,
		Retries: cfg.Retries,
		Logger:  logger,
	}

	closeCache := func() {}
	if cfg.Cache {
		cache, err := db.NewDB(cfg.CachePath, db.DefaultTTL, logger)
		if err != nil {
			return nil, closeCache, err
		}
		if removed, err := cache.Prune(); err != nil {
			logger.Warn("error pruning cache", "error", err)
		} else if removed > 0 {
			logger.Debug("pruned stale cache entries", "removed", removed)
		}

		clientCfg.Cache = cache
		closeCache = func() {
			if err := cache.Close(); err != nil {
				logger.Warn("error closing cache", "error", err)
			}
		}
	}

	client, err := github.NewClient(clientCfg)
	if err != nil {
		closeCache()
		return nil, func() {}, err
	}
	return client, closeCache, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gimme-release-notes %s\n", Version)
		},
	}
}
