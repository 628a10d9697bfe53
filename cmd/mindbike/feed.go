package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/mindbike/internal/feeder"
)

var (
	feedURL  string
	feedWait time.Duration
)

var feedCmd = &cobra.Command{
	Use:   "feed [ideas-file]",
	Short: "Submit ideas to a running serve instance, one at a time",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFeed,
}

func init() {
	feedCmd.Flags().StringVar(&feedURL, "url", "", "API base URL (default http://localhost:<port>)")
	feedCmd.Flags().DurationVar(&feedWait, "wait", 30*time.Second, "how long to wait for the API to come up")
}

func runFeed(cmd *cobra.Command, args []string) error {
	ideas, err := readIdeas(ideasArg(args))
	if err != nil {
		return err
	}

	url := feedURL
	if url == "" {
		url = fmt.Sprintf("http://localhost:%d", cfg.APIPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := feeder.New(url)
	waitCtx, cancel := context.WithTimeout(ctx, feedWait)
	err = f.WaitReady(waitCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("API at %s not reachable: %w", url, err)
	}

	res, err := f.Feed(ctx, ideas)
	fmt.Fprintf(cmd.OutOrStdout(), "Fed %d ideas, skipped %d.\n", res.Submitted, res.Skipped)
	return err
}
