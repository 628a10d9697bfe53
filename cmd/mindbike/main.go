// Command mindbike is "Bicycle for the Mind": ideas typed at a prompt are
// embedded and turned into the journey of a bicycle across a generative
// canvas, leaving a particle trail and an idea trajectory behind.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/mindbike/internal/analyzer"
	"github.com/talgya/mindbike/internal/config"
	"github.com/talgya/mindbike/internal/engine"
	"github.com/talgya/mindbike/internal/persistence"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Resolved in PersistentPreRunE
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mindbike",
	Short: "Bicycle for the Mind - ideas as a journey across a generative canvas",
	Long: `mindbike turns a sequence of ideas into generative art.

The first idea plants a bicycle on the canvas. Every idea after that is
embedded by the analyzer and moves the bicycle by the difference between
its embedding and the previous one, painting a trail in colors drawn
from the ideas themselves.

Run without arguments to start the interactive terminal sketch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := loaded.ApplyFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("apply flags: %w", err)
		}
		if verbose {
			loaded.LogLevel = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded
		setupLogging(os.Stderr)
		return nil
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger writing to w.
func setupLogging(w io.Writer) {
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// openStore opens the configured database, or returns nil when persistence
// is disabled.
func openStore() (*persistence.DB, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", cfg.DBPath)
	return db, nil
}

// newSession builds a session from the config and records it in db.
func newSession(ctx context.Context, db *persistence.DB) (*engine.Session, error) {
	a, err := analyzer.New(cfg.Analyzer)
	if err != nil {
		return nil, err
	}

	opts := engine.Options{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Seed:     cfg.Seed,
		Analyzer: a,
	}
	if db != nil {
		opts.Store = db
	}
	sess, err := engine.NewSession(opts)
	if err != nil {
		return nil, err
	}

	if db != nil {
		info := persistence.SessionInfo{
			ID:       sess.ID,
			Seed:     sess.Seed(),
			Width:    cfg.Width,
			Height:   cfg.Height,
			Analyzer: sess.AnalyzerName(),
		}
		if err := db.StartSession(ctx, info); err != nil {
			return nil, err
		}
		if err := db.SaveMeta(lastSessionKey, sess.ID); err != nil {
			slog.Warn("save last session failed", "error", err)
		}
	}

	slog.Info("session ready",
		"id", sess.ID,
		"seed", sess.Seed(),
		"analyzer", sess.AnalyzerName(),
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	)
	return sess, nil
}

const lastSessionKey = "last_session"

// readIdeas reads one idea per line from path, or from stdin for "-".
func readIdeas(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open ideas: %w", err)
		}
		defer f.Close()
		r = f
	}

	var ideas []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ideas = append(ideas, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ideas: %w", err)
	}
	return ideas, nil
}

func ideasArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
