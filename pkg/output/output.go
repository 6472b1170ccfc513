package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

// Format selects how release notes are written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "markdown", "md":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (want text, json or yaml)", types.ErrConfig, s)
	}
}

// Render writes the entries to w in the given format
func Render(w io.Writer, format Format, entries []types.ReleaseNoteEntry) error {
	if entries == nil {
		entries = []types.ReleaseNoteEntry{}
	}

	switch format {
	case FormatText, "":
		for _, entry := range entries {
			if _, err := io.WriteString(w, entry.Format()); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(entries)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlEntries(entries)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown output format %q", types.ErrConfig, format)
	}
}

// yamlEntries builds the YAML tree of the entries with every note double
// quoted. Block scalars cannot hold the leading newline a note starts with.
func yamlEntries(entries []types.ReleaseNoteEntry) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, entry := range entries {
		note := yamlScalar("!!str", entry.Text)
		note.Style = yaml.DoubleQuotedStyle

		seq.Content = append(seq.Content, &yaml.Node{
			Kind: yaml.MappingNode,
			Tag:  "!!map",
			Content: []*yaml.Node{
				yamlScalar("!!str", "sha"), yamlScalar("!!str", entry.SHA),
				yamlScalar("!!str", "number"), yamlScalar("!!int", strconv.Itoa(entry.Number)),
				yamlScalar("!!str", "url"), yamlScalar("!!str", entry.URL),
				yamlScalar("!!str", "note"), note,
			},
		})
	}
	return seq
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// WriteFile renders the entries and only then creates the file, so a
// rendering failure leaves no partial output behind. It returns the number of bytes written.
func WriteFile(path string, format Format, entries []types.ReleaseNoteEntry) (int, error) {
	var buf bytes.Buffer
	if err := Render(&buf, format, entries); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write release notes: %w", err)
	}
	return buf.Len(), nil
}
