// Package actors implements the cast-translation processor named in
// spec §1 ("automated cast-translation") and §4.1/§5 (the "actor"
// processor kind and its writeback pool width), grounded on
// original_source/tasks/actors.py's task_actor_translation_cleanup:
// scan every Media-Server person, batch-translate the non-Chinese
// names, and write the results back concurrently.
package actors

import (
	"context"
	"fmt"
	"unicode"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/translator"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/internal/workerpool"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// writebackWidth is the §5 "cast-translation writeback pool width 10".
const writebackWidth = 10

// translationBatchSize mirrors task_actor_translation_cleanup's
// TRANSLATION_BATCH_SIZE of 50 names per translator call.
const translationBatchSize = 50

// Processor implements scheduler.Processor for ProcessorActor.
type Processor struct {
	MediaServer mediaserver.Client
	Translator  translator.Client
}

// RunTask dispatches the actor-processor task bodies by key.
func (p *Processor) RunTask(ctx context.Context, key structures.TaskKey, stop *scheduler.StopFlag, progress scheduler.ProgressFunc, _ bool) error {
	switch key {
	case structures.TaskCastTranslation:
		return p.TranslateCast(ctx, stop, progress)
	default:
		return fmt.Errorf("actor processor cannot run task %s", key)
	}
}

// TranslateCast scans every person known to the Media Server, collects
// the ones whose name contains no Chinese characters, translates them
// in batches, and concurrently writes the results back.
func (p *Processor) TranslateCast(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	people, err := p.MediaServer.ListPersons(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string][]mediaserver.Person)
	for _, person := range people {
		if person.Name == "" || containsChinese(person.Name) {
			continue
		}
		byName[person.Name] = append(byName[person.Name], person)
	}
	if len(byName) == 0 {
		if progress != nil {
			progress(100, "no cast names need translation")
		}
		return nil
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}

	var updated int
	totalBatches := (len(names) + translationBatchSize - 1) / translationBatchSize
	for i := 0; i < len(names); i += translationBatchSize {
		if stop.Stopped() {
			break
		}
		end := i + translationBatchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[i:end]

		translations, err := p.Translator.BatchTranslate(ctx, batch)
		if err != nil {
			// Transient-remote per §7: skip this batch, continue the rest.
			continue
		}

		type writeback struct {
			personID string
			name     string
		}
		var tasks []writeback
		for original, translated := range translations {
			if translated == "" || translated == original {
				continue
			}
			for _, person := range byName[original] {
				tasks = append(tasks, writeback{personID: person.ID, name: translated})
			}
		}

		failed := workerpool.RunCollecting(ctx, writebackWidth, tasks, func(ctx context.Context, t writeback) error {
			return p.MediaServer.UpdatePersonName(ctx, t.personID, t.name)
		}, nil)
		updated += len(tasks) - failed

		if progress != nil {
			batchNum := i/translationBatchSize + 1
			progress(batchNum*100/totalBatches, fmt.Sprintf("translated batch %d/%d, %d updated so far", batchNum, totalBatches, updated))
		}
	}

	if progress != nil {
		progress(100, fmt.Sprintf("cast translation complete: %d names updated", updated))
	}
	return nil
}

// containsChinese reports whether s contains at least one Han-script
// rune, mirroring original_source utils.contains_chinese's purpose.
func containsChinese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
