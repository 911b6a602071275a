package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgallion1/codechunk/internal/chunker"
	"github.com/dgallion1/codechunk/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	cfg := config.Load()
	if err := newRootCmd(cfg, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flag defaults come from cfg so that
// flags override the environment.
func newRootCmd(cfg config.Config, logOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "codechunk",
		Short: "Municipal code chunk extractor",
		Long: `codechunk converts a municipal code HTML export into a flat list of
size-bounded text chunks annotated with chapter, article, division and
section metadata, links, references and amendment history.

It also inspects, diffs and exports the emitted chunk file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app := &app{cfg: cfg, logOut: logOut}
	rootCmd.AddCommand(app.extractCmd())
	rootCmd.AddCommand(app.inspectCmd())
	rootCmd.AddCommand(app.analyzeCmd())
	rootCmd.AddCommand(app.diffCmd())
	rootCmd.AddCommand(app.exportCmd())
	rootCmd.AddCommand(app.serveCmd())
	return rootCmd
}

type app struct {
	cfg    config.Config
	logOut io.Writer
}

func (a *app) logger() *slog.Logger {
	return newLogger(a.cfg, a.logOut)
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *app) chunkerConfig(maxSize int) chunker.Config {
	return chunker.Config{
		MaxChunkSize: maxSize,
		Corpus: chunker.Corpus{
			SourceURL:    a.cfg.SourceURL,
			DownloadDate: a.cfg.DownloadDate,
			City:         a.cfg.City,
			DocIDPrefix:  a.cfg.DocIDPrefix,
		},
		Now: time.Now,
	}
}
