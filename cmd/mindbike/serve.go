package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/mindbike/internal/api"
	"github.com/talgya/mindbike/internal/engine"
)

var autosaveEvery time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sketch headlessly behind the HTTP API",
	Long: `Runs one session at real-time speed with no terminal UI. Ideas arrive via
POST /api/v1/idea; the live frame is at GET /api/v1/frame.png.
Set MINDBIKE_ADMIN_KEY to enable the speed and export endpoints.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&autosaveEvery, "autosave", 5*time.Minute, "export artwork this often (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
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
	if autosaveEvery > 0 {
		eng.Autosave = uint64(autosaveEvery.Seconds() * float64(cfg.FPS))
		eng.OnAutosave = func(uint64) {
			if _, err := sess.Export(cfg.SaveDir); err != nil {
				slog.Error("autosave failed", "error", err)
			}
		}
	}

	srv := &api.Server{
		Session:   sess,
		Eng:       eng,
		Port:      cfg.APIPort,
		AdminKey:  cfg.AdminKey,
		ExportDir: cfg.SaveDir,
	}
	if db != nil {
		srv.DB = db
	}

	go eng.Run(ctx)
	err = srv.Serve(ctx)
	eng.Stop()

	if _, exportErr := sess.Export(cfg.SaveDir); exportErr != nil {
		slog.Error("final export failed", "error", exportErr)
	}
	return err
}
