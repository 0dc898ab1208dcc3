// Package scheduler implements the Task Scheduler (C7): a process-wide
// immutable task registry, a single-slot serial executor, and a task
// chain runner with a timeout watcher. Generalized from the teacher's
// internal/jobs Manager/BaseJob pair, restructured from the teacher's
// "N independent ticking jobs" model into the one-slot,
// busy-reject-on-overlap model spec §4.1 calls for.
package scheduler

import (
	"context"
	"fmt"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

// Processor is a long-lived component capable of running a named task
// under a cooperative stop flag and a progress callback. Exactly three
// processor kinds exist: media, watchlist, actor (§4.1).
type Processor interface {
	RunTask(ctx context.Context, key structures.TaskKey, stop *StopFlag, progress ProgressFunc, forceFullUpdate bool) error
}

// ProgressFunc is pushed progress from inside a running task.
// percent is 0..100, or -1 to signal an error state.
type ProgressFunc func(percent int, message string)

// TaskDef is one registry entry: {task_key -> (processor_kind,
// description, chainable)}. The function itself lives on the Processor
// selected by Kind; the registry only routes.
type TaskDef struct {
	Key         structures.TaskKey
	Description string
	Kind        structures.ProcessorKind
	Chainable   bool
}

// defaultRegistry is the process-wide immutable table: a package-level
// literal that is never mutated.
var defaultRegistry = []TaskDef{
	{Key: structures.TaskFullScan, Description: "full library scan", Kind: structures.ProcessorMedia, Chainable: true},
	{Key: structures.TaskMetadataPopulate, Description: "populate missing metadata", Kind: structures.ProcessorMedia, Chainable: true},
	{Key: structures.TaskEnrichAliases, Description: "enrich alias titles", Kind: structures.ProcessorMedia, Chainable: true},
	{Key: structures.TaskSyncImagesMap, Description: "sync per-version image map", Kind: structures.ProcessorMedia, Chainable: true},
	{Key: structures.TaskWatchlistRefresh, Description: "refresh watchlist entries", Kind: structures.ProcessorWatchlist, Chainable: true},
	{Key: structures.TaskWatchlistRevival, Description: "check completed series for revival", Kind: structures.ProcessorWatchlist, Chainable: true},
	{Key: structures.TaskCollectionsRebuild, Description: "rebuild custom collections", Kind: structures.ProcessorMedia, Chainable: true},
	{Key: structures.TaskSubscriptionResub, Description: "resubscribe best-version gaps", Kind: structures.ProcessorWatchlist, Chainable: true},
	{Key: structures.TaskMetadataSync, Description: "sync catalog metadata", Kind: structures.ProcessorMedia, Chainable: true},
	{Key: structures.TaskEpisodeTopUp, Description: "single-series episode top-up", Kind: structures.ProcessorMedia, Chainable: false},
	{Key: structures.TaskCastTranslation, Description: "translate non-Chinese cast names", Kind: structures.ProcessorActor, Chainable: true},
}

func lookup(key structures.TaskKey) (TaskDef, error) {
	for _, def := range defaultRegistry {
		if def.Key == key {
			return def, nil
		}
	}
	return TaskDef{}, fmt.Errorf("task %s is not registered", key)
}
