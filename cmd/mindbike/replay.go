package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/mindbike/internal/engine"
	"github.com/talgya/mindbike/internal/sketch"
)

var replayCmd = &cobra.Command{
	Use:   "replay [ideas-file]",
	Short: "Render a list of ideas headlessly and export the result",
	Long: `Feeds ideas (one per line, "#" comments allowed; "-" or no file reads
stdin) through a fresh session, waiting for each to settle, then writes the
artwork and the idea trajectory into --save-dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	ideas, err := readIdeas(ideasArg(args))
	if err != nil {
		return err
	}
	if len(ideas) == 0 {
		return fmt.Errorf("no ideas to replay")
	}

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
	eng := engine.NewEngine(cfg.FPS)
	sess.Attach(eng)

	res, err := engine.Replay(ctx, eng, sess, ideas)
	sess.Wait()
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	out, err := sess.Export(cfg.SaveDir)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replayed %s ideas (%s dropped) in %s frames (%s of sketch time).\n",
		humanize.Comma(int64(res.Submitted-res.Dropped)),
		humanize.Comma(int64(res.Dropped)),
		humanize.Comma(int64(res.Frames)),
		engine.Elapsed(res.Frames, cfg.FPS),
	)
	fmt.Fprintf(w, "Traveled %s px.\n", humanize.Commaf(float64(int64(sketch.TotalDistance(sess.Ideas())))))
	fmt.Fprintf(w, "Artwork:    %s\nTrajectory: %s\n", out.Artwork, out.Trajectory)
	return nil
}
