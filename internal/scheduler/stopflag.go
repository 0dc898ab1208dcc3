package scheduler

import "sync/atomic"

// StopFlag is the cooperative stop signal handed to a running task, per
// §4.1: "cancellation is never forced; a task that ignores the flag
// runs to completion." Tasks must poll Stopped() between units of work.
type StopFlag struct {
	stopped int32
	timedOut int32
}

// NewStopFlag returns a fresh, unset flag.
func NewStopFlag() *StopFlag { return &StopFlag{} }

// Stop sets the flag due to a manual cancel request.
func (f *StopFlag) Stop() { atomic.StoreInt32(&f.stopped, 1) }

// StopForTimeout sets the flag and records that this is a timeout, not
// a manual cancel, so the chain can report "timed out" rather than
// "user cancelled".
func (f *StopFlag) StopForTimeout() {
	atomic.StoreInt32(&f.timedOut, 1)
	atomic.StoreInt32(&f.stopped, 1)
}

// Stopped reports whether the task should stop at its next checkpoint.
func (f *StopFlag) Stopped() bool { return atomic.LoadInt32(&f.stopped) == 1 }

// TimedOut reports whether the stop was due to the chain's timeout
// watcher rather than a manual cancellation.
func (f *StopFlag) TimedOut() bool { return atomic.LoadInt32(&f.timedOut) == 1 }
