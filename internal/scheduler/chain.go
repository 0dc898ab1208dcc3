package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

// ChainResult reports the outcome of RunChain.
type ChainResult struct {
	Completed []structures.TaskKey
	Failed    map[structures.TaskKey]error
	TimedOut  bool
	Cancelled bool
}

// Success reports whether the chain completed every step without
// timing out or being manually stopped, per §4.1: "the chain reports
// success iff it completed all steps without timeout or manual stop."
func (r ChainResult) Success() bool {
	return !r.TimedOut && !r.Cancelled
}

// RunChain accepts an ordered list of task keys, filters to
// chainable=true, and runs each in turn using the fixed keyword
// convention from §4.1. A timeout watcher sleeps for maxRuntime; on
// expiry it sets the stop flag and marks the chain timed out rather
// than manually cancelled. Subtask failures are logged and the chain
// continues to the next step.
func (s *Scheduler) RunChain(ctx context.Context, keys []structures.TaskKey, maxRuntime time.Duration) ChainResult {
	result := ChainResult{Failed: make(map[structures.TaskKey]error)}

	chainable := make([]structures.TaskKey, 0, len(keys))
	for _, k := range keys {
		if TaskChainable(k) {
			chainable = append(chainable, k)
		}
	}

	chainCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timedOut int32
	timer := time.AfterFunc(maxRuntime, func() {
		atomic.StoreInt32(&timedOut, 1)
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop.StopForTimeout()
		}
		cancel()
	})
	defer timer.Stop()

	for _, key := range chainable {
		select {
		case <-chainCtx.Done():
			result.TimedOut = atomic.LoadInt32(&timedOut) == 1
			result.Cancelled = !result.TimedOut
			return result
		default:
		}

		// §4.1's fixed keyword convention: chained runs always pass
		// force_full_update=false, whether or not key is one of the four
		// keys that accept the argument.
		if err := s.Run(ctx, key, false); err != nil {
			slog.Error("task chain: step failed, continuing", "task", key, "error", err)
			result.Failed[key] = err
			continue
		}
		result.Completed = append(result.Completed, key)
	}

	result.TimedOut = atomic.LoadInt32(&timedOut) == 1
	return result
}
