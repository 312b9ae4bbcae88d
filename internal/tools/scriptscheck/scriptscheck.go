// Package scriptscheck validates a situations document and prints a summary.
package scriptscheck

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/healinghome/internal/services/scripts/catalog"
)

// Config holds configuration for a situations check.
type Config struct {
	File string
	URL  string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.File, "file", "", "situations JSON file to check (default: built-in data)")
	fs.StringVar(&cfg.URL, "url", "", "base URL serving /scripts.json to check")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.File) != "" && strings.TrimSpace(cfg.URL) != "" {
		return Config{}, errors.New("file and url are mutually exclusive")
	}
	return cfg, nil
}

// Run fetches the configured document and writes one line per situation.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		return errors.New("output is required")
	}
	source, err := sourceFor(cfg)
	if err != nil {
		return err
	}
	doc, err := source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("check situations: %w", err)
	}
	for _, situation := range doc.Situations() {
		if _, err := fmt.Fprintf(out, "%s\t%s\tscripts=%d principles=%d\n",
			situation.ID, situation.Title, situation.ScriptCount(), len(situation.Principles)); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(out, "ok situations=%d quick_principles=%d\n", doc.Len(), len(doc.QuickPrinciples()))
	return err
}

func sourceFor(cfg Config) (catalog.Source, error) {
	if baseURL := strings.TrimSpace(cfg.URL); baseURL != "" {
		source, err := catalog.NewHTTPSource(baseURL, nil)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	if path := strings.TrimSpace(cfg.File); path != "" {
		return catalog.FileSource{Path: path}, nil
	}
	return catalog.EmbeddedSource(), nil
}
