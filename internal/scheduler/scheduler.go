package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelmedia/archivist/pkg/apierrors"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// State is the observer-visible snapshot from §4.1: "(progress 0..100 |
// -1 for error, message, running_task_key?, started_at?)".
type State struct {
	Progress      int
	Message       string
	RunningTask   structures.TaskKey
	RunID         string // unique per Run call, for correlating logs across a task's lifetime
	StartedAt     time.Time
	Running       bool
}

// Scheduler is the single-slot serial task executor. At most one task
// runs at a time; a submission while busy is rejected, mirroring the
// teacher's job Manager but collapsed from "N independent tickers" to
// one shared slot, per §4.1's execution model.
type Scheduler struct {
	processors map[structures.ProcessorKind]Processor

	mu    sync.Mutex
	state State
	stop  *StopFlag
}

// New builds a Scheduler wired to one Processor per kind.
func New(processors map[structures.ProcessorKind]Processor) *Scheduler {
	return &Scheduler{processors: processors}
}

// State returns a snapshot of the current execution state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel requests cooperative cancellation of the currently running
// task, if any. It is a no-op when idle.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop.Stop()
	}
}

// Run executes one task synchronously, rejecting with
// apierrors.ErrSchedulerBusy if another task is already running.
// forceFullUpdate is only meaningful for the four keys named in §4.1's
// fixed keyword convention; it is ignored for the rest.
func (s *Scheduler) Run(ctx context.Context, key structures.TaskKey, forceFullUpdate bool) error {
	def, err := lookup(key)
	if err != nil {
		return err
	}
	processor, ok := s.processors[def.Kind]
	if !ok {
		return fmt.Errorf("no processor registered for kind %s", def.Kind)
	}

	s.mu.Lock()
	if s.state.Running {
		s.mu.Unlock()
		return apierrors.ErrSchedulerBusy()
	}
	stop := NewStopFlag()
	s.stop = stop
	runID := uuid.NewString()
	s.state = State{Running: true, RunningTask: key, RunID: runID, StartedAt: time.Now(), Message: def.Description}
	s.mu.Unlock()

	progress := func(percent int, message string) {
		s.mu.Lock()
		s.state.Progress = percent
		s.state.Message = message
		s.mu.Unlock()
	}

	slog.Info("scheduler: task starting", "task", key, "processor", def.Kind, "run_id", runID)
	err = processor.RunTask(ctx, key, stop, progress, forceFullUpdate)

	s.mu.Lock()
	s.state.Running = false
	s.stop = nil
	if err != nil {
		s.state.Progress = -1
		s.state.Message = err.Error()
	} else {
		s.state.Progress = 100
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("scheduler: task failed", "task", key, "error", err, "run_id", runID)
	} else {
		slog.Info("scheduler: task completed", "task", key, "run_id", runID)
	}
	return err
}

// TaskChainable reports whether key is eligible for inclusion in a
// task chain.
func TaskChainable(key structures.TaskKey) bool {
	def, err := lookup(key)
	return err == nil && def.Chainable
}
