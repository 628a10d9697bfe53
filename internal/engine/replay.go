package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// MaxSettleFrames bounds how long replay waits for one idea's animation.
const MaxSettleFrames = 20000

// ReplayResult summarizes a headless run.
type ReplayResult struct {
	Submitted int
	Dropped   int
	Frames    uint64
}

// Replay feeds ideas to the session one at a time, advancing the engine
// until each settles, the way a user waiting on the input box would.
// eng must be attached to sess. Collaborator failures drop the idea and
// move on; ctx cancellation stops.
func Replay(ctx context.Context, eng *Engine, sess *Session, ideas []string) (ReplayResult, error) {
	var res ReplayResult

	for i, text := range ideas {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		done, err := sess.Submit(ctx, text)
		if err != nil {
			slog.Warn("idea rejected", "line", i+1, "error", err)
			res.Dropped++
			continue
		}
		res.Submitted++

		if err := <-done; err != nil {
			slog.Warn("idea dropped", "line", i+1, "error", err)
			res.Dropped++
			continue
		}

		settled := false
		for n := 0; n < MaxSettleFrames; n++ {
			if sess.Settled() {
				settled = true
				break
			}
			eng.Advance()
		}
		if !settled {
			return res, fmt.Errorf("idea %d did not settle within %d frames", i+1, MaxSettleFrames)
		}
	}

	res.Frames = eng.Frame
	return res, nil
}
