package feeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Result counts what happened to a batch of ideas.
type Result struct {
	Submitted int
	Skipped   int
}

// Feeder submits ideas one at a time, waiting for each to settle.
type Feeder struct {
	Observer *Observer
	Actor    *Actor
	Poll     time.Duration // status polling interval
}

// New creates a Feeder for the API at baseURL.
func New(baseURL string) *Feeder {
	return &Feeder{
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL),
		Poll:     250 * time.Millisecond,
	}
}

// WaitReady polls until the API answers or ctx ends.
func (f *Feeder) WaitReady(ctx context.Context) error {
	for {
		_, err := f.Observer.Status(ctx)
		if err == nil {
			return nil
		}
		slog.Debug("API not ready", "error", err)
		if err := f.sleep(ctx); err != nil {
			return err
		}
	}
}

// WaitSettled polls until the sketch accepts input again.
func (f *Feeder) WaitSettled(ctx context.Context) (Status, error) {
	for {
		st, err := f.Observer.Status(ctx)
		if err != nil {
			return Status{}, err
		}
		if !st.InputLocked {
			return st, nil
		}
		if err := f.sleep(ctx); err != nil {
			return Status{}, err
		}
	}
}

// Feed submits ideas in order. Blank lines are skipped; an idea the server
// rejects is logged and skipped. A busy answer is retried.
func (f *Feeder) Feed(ctx context.Context, ideas []string) (Result, error) {
	var res Result
	for _, idea := range ideas {
		idea = strings.TrimSpace(idea)
		if idea == "" {
			continue
		}
		if err := f.submit(ctx, idea); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			slog.Warn("idea skipped", "idea", idea, "error", err)
			res.Skipped++
			continue
		}
		res.Submitted++
		slog.Info("idea fed", "idea", idea, "n", res.Submitted)
	}

	st, err := f.WaitSettled(ctx)
	if err != nil {
		return res, fmt.Errorf("wait for final idea: %w", err)
	}
	slog.Info("feed complete", "submitted", res.Submitted, "skipped", res.Skipped,
		"ideas", st.Ideas, "distance", fmt.Sprintf("%.0f", st.TotalDistance))
	return res, nil
}

func (f *Feeder) submit(ctx context.Context, idea string) error {
	for {
		if _, err := f.WaitSettled(ctx); err != nil {
			return err
		}
		err := f.Actor.Submit(ctx, idea)
		if !errors.Is(err, ErrBusy) {
			return err
		}
		slog.Debug("sketch busy, retrying", "idea", idea, "error", err)
		if err := f.sleep(ctx); err != nil {
			return err
		}
	}
}

func (f *Feeder) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.Poll):
		return nil
	}
}
