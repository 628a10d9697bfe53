package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/mindbike/internal/render"
	"github.com/talgya/mindbike/internal/sketch"
)

var exportToFile bool

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Print a stored session's idea trajectory",
	Long: `Prints the idea trajectory of a stored session (the most recent one when
no id is given). With --file the log is written into --save-dir instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent stored sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var sessionsLimit int

func init() {
	exportCmd.Flags().BoolVar(&exportToFile, "file", false, "write "+render.TrajectoryName+" into --save-dir")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 10, "number of sessions to list")
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("export needs a database (--db)")
	}
	defer db.Close()

	id := ""
	if len(args) > 0 {
		id = args[0]
	} else if id, err = db.GetMeta(lastSessionKey); err != nil {
		return fmt.Errorf("no session recorded yet: %w", err)
	}

	ctx := context.Background()
	info, err := db.GetSession(ctx, id)
	if err != nil {
		return err
	}
	ideas, err := db.LoadIdeas(ctx, id)
	if err != nil {
		return err
	}

	if !exportToFile {
		return sketch.WriteLog(cmd.OutOrStdout(), ideas)
	}

	if err := os.MkdirAll(cfg.SaveDir, 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(cfg.SaveDir, render.TrajectoryName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trajectory log: %w", err)
	}
	if err := sketch.WriteLog(f, ideas); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close trajectory log: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d ideas from session %s (%s) to %s\n",
		len(ideas), info.ID, humanize.Time(info.StartedAt), path)
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("sessions needs a database (--db)")
	}
	defer db.Close()

	sessions, err := db.RecentSessions(context.Background(), sessionsLimit)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions yet.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-14s  %4d ideas  %dx%d  seed %d  %s\n",
			s.ID, humanize.RelTime(s.StartedAt, time.Now(), "ago", "from now"),
			s.Ideas, s.Width, s.Height, s.Seed, s.Analyzer)
	}
	return nil
}
