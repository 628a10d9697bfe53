package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/talgya/mindbike/internal/api"
	"github.com/talgya/mindbike/internal/engine"
	"github.com/talgya/mindbike/internal/tui"
)

var withAPI bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive terminal sketch",
	Long: `Opens the sketch full-screen. Type an idea and press enter.

Keys:
  enter    submit the idea
  ctrl+s   save the artwork and the idea trajectory
  ctrl+y   copy the idea trajectory to the clipboard
  ctrl+p   pause or resume
  ctrl+c   quit

Logs go to the configured log file while the sketch owns the terminal.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	runCmd.Flags().BoolVar(&withAPI, "api", false, "also serve the HTTP API on --port")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("run needs a terminal; use replay or serve instead")
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	setupLogging(logFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	sess, err := newSession(ctx, db)
	if err != nil {
		return err
	}
	defer sess.Wait()

	eng := engine.NewEngine(cfg.FPS)
	sess.Attach(eng)

	if withAPI {
		srv := &api.Server{Session: sess, Port: cfg.APIPort, AdminKey: cfg.AdminKey, ExportDir: cfg.SaveDir}
		if db != nil {
			srv.DB = db
		}
		go func() {
			if err := srv.Serve(ctx); err != nil {
				slog.Error("HTTP server error", "error", err)
			}
		}()
	}

	p := tea.NewProgram(
		tui.New(ctx, sess, eng, cfg.SaveDir),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run sketch: %w", err)
	}

	ideas := sess.Ideas()
	fmt.Printf("Session %s: %d ideas. Logs in %s.\n", sess.ID, len(ideas), cfg.LogFile)
	return nil
}
