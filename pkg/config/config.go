// Package config resolves settings from flags, environment, .env and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ekexium/gimme-release-notes/pkg/batch"
	"github.com/ekexium/gimme-release-notes/pkg/github"
	"github.com/ekexium/gimme-release-notes/pkg/notes"
	"github.com/ekexium/gimme-release-notes/pkg/output"
	"github.com/ekexium/gimme-release-notes/pkg/types"
)

const envPrefix = "GIMME"

// Keys shared by flags, environment variables (GIMME_PAGE_SIZE, ...) and the config file.
const (
	KeyConfig        = "config"
	KeyToken         = "token"
	KeyAPIURL        = "api-url"
	KeyVerbose       = "verbose"
	KeyRepo          = "repo"
	KeyRange         = "range"
	KeyOutput        = "output"
	KeyFormat        = "format"
	KeyPageSize      = "page-size"
	KeyLabel         = "label"
	KeyConcurrency   = "concurrency"
	KeyRetries       = "retries"
	KeySkipAmbiguous = "skip-ambiguous"
	KeyCache         = "cache"
	KeyCachePath     = "cache-path"
	KeyNoProgress    = "no-progress"
)

// Config holds the resolved settings of a run
type Config struct {
	Token   string
	APIURL  string
	Verbose bool

	Repo          string
	Range         string
	Output        string
	Format        output.Format
	PageSize      int
	Label         string
	Concurrency   int
	Retries       int
	SkipAmbiguous bool
	Cache         bool
	CachePath     string
	NoProgress    bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, github.DefaultBaseURL)
	v.SetDefault(KeyFormat, string(output.FormatText))
	v.SetDefault(KeyPageSize, batch.DefaultPageSize)
	v.SetDefault(KeyLabel, notes.DefaultLabel)
}

// Load reads .env from the working directory (if present), then resolves
// every key from flags, GIMME_* environment variables, the config file and
// defaults, in that order. The token is also read from GITHUB_TOKEN.
func Load(flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: loading .env: %v", types.ErrConfig, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyToken, "GIMME_TOKEN", "GITHUB_TOKEN"); err != nil {
		return Config{}, err
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("%w: binding flags: %v", types.ErrConfig, err)
		}
	}

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: reading %s: %v", types.ErrConfig, path, err)
		}
	}

	format, err := output.ParseFormat(v.GetString(KeyFormat))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Token:         strings.TrimSpace(v.GetString(KeyToken)),
		APIURL:        v.GetString(KeyAPIURL),
		Verbose:       v.GetBool(KeyVerbose),
		Repo:          strings.TrimSpace(v.GetString(KeyRepo)),
		Range:         strings.TrimSpace(v.GetString(KeyRange)),
		Output:        v.GetString(KeyOutput),
		Format:        format,
		PageSize:      v.GetInt(KeyPageSize),
		Label:         v.GetString(KeyLabel),
		Concurrency:   v.GetInt(KeyConcurrency),
		Retries:       v.GetInt(KeyRetries),
		SkipAmbiguous: v.GetBool(KeySkipAmbiguous),
		Cache:         v.GetBool(KeyCache),
		CachePath:     v.GetString(KeyCachePath),
		NoProgress:    v.GetBool(KeyNoProgress),
	}, nil
}

// ValidateRepo checks an owner/name repository identifier
func ValidateRepo(repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: repository must look like owner/name, got %q", types.ErrConfig, repo)
	}
	return nil
}

// ValidateRange checks a base...head (or base..head) comparison range
func ValidateRange(rangeSpec string) error {
	sep := "..."
	if !strings.Contains(rangeSpec, sep) {
		sep = ".."
	}
	base, head, ok := strings.Cut(rangeSpec, sep)
	if !ok || base == "" || head == "" {
		return fmt.Errorf("%w: range must look like base...head, got %q", types.ErrConfig, rangeSpec)
	}
	return nil
}

// ValidateCommon checks the settings every command needs
func (c Config) ValidateCommon() error {
	if c.Token == "" {
		return fmt.Errorf("%w: no GitHub token, set GITHUB_TOKEN (a .env file works too)", types.ErrConfig)
	}
	if err := ValidateRepo(c.Repo); err != nil {
		return err
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: --retries must not be negative", types.ErrConfig)
	}
	return nil
}

// ValidateCollect checks the settings of a batch run
func (c Config) ValidateCollect() error {
	if err := c.ValidateCommon(); err != nil {
		return err
	}
	if err := ValidateRange(c.Range); err != nil {
		return err
	}
	if c.PageSize <= 0 || c.PageSize > batch.MaxPageSize {
		return fmt.Errorf("%w: --page-size must be between 1 and %d, got %d", types.ErrConfig, batch.MaxPageSize, c.PageSize)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: --concurrency must not be negative", types.ErrConfig)
	}
	return nil
}
