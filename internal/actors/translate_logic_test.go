package actors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/scheduler"
)

func TestTranslateCastSkipsAlreadyChineseNames(t *testing.T) {
	ms := newFakeMediaServer(
		mediaserver.Person{ID: "1", Name: "张艺谋"},
		mediaserver.Person{ID: "2", Name: "Tom Hardy"},
	)
	tr := &fakeTranslator{translations: map[string]string{"Tom Hardy": "汤姆·哈迪"}}
	p := &Processor{MediaServer: ms, Translator: tr}

	err := p.TranslateCast(context.Background(), scheduler.NewStopFlag(), nil)
	require.NoError(t, err)

	assert.Equal(t, "汤姆·哈迪", ms.updated["2"])
	_, wasUpdated := ms.updated["1"]
	assert.False(t, wasUpdated)
}

func TestTranslateCastSkipsNoopTranslations(t *testing.T) {
	ms := newFakeMediaServer(mediaserver.Person{ID: "1", Name: "Tom Hardy"})
	tr := &fakeTranslator{translations: map[string]string{"Tom Hardy": "Tom Hardy"}}
	p := &Processor{MediaServer: ms, Translator: tr}

	err := p.TranslateCast(context.Background(), scheduler.NewStopFlag(), nil)
	require.NoError(t, err)
	assert.Empty(t, ms.updated)
}

func TestTranslateCastContinuesPastBatchFailure(t *testing.T) {
	ms := newFakeMediaServer(mediaserver.Person{ID: "1", Name: "Tom Hardy"})
	tr := &fakeTranslator{err: errTranslateFailed}
	p := &Processor{MediaServer: ms, Translator: tr}

	err := p.TranslateCast(context.Background(), scheduler.NewStopFlag(), nil)
	require.NoError(t, err)
	assert.Empty(t, ms.updated)
}

func TestTranslateCastNoPeopleNeedsTranslation(t *testing.T) {
	ms := newFakeMediaServer(mediaserver.Person{ID: "1", Name: "张艺谋"})
	tr := &fakeTranslator{}
	p := &Processor{MediaServer: ms, Translator: tr}

	err := p.TranslateCast(context.Background(), scheduler.NewStopFlag(), nil)
	require.NoError(t, err)
	assert.Empty(t, tr.calls)
}

func TestTranslateCastStopsCooperatively(t *testing.T) {
	ms := newFakeMediaServer(mediaserver.Person{ID: "1", Name: "Tom Hardy"})
	tr := &fakeTranslator{translations: map[string]string{"Tom Hardy": "汤姆"}}
	p := &Processor{MediaServer: ms, Translator: tr}

	stop := scheduler.NewStopFlag()
	stop.Stop()
	err := p.TranslateCast(context.Background(), stop, nil)
	require.NoError(t, err)
	assert.Empty(t, ms.updated)
}

func TestRunTaskDispatchesCastTranslation(t *testing.T) {
	ms := newFakeMediaServer()
	tr := &fakeTranslator{}
	p := &Processor{MediaServer: ms, Translator: tr}

	err := p.RunTask(context.Background(), "cast-translation", scheduler.NewStopFlag(), nil, false)
	assert.NoError(t, err)
}

func TestRunTaskRejectsUnknownKey(t *testing.T) {
	p := &Processor{}
	err := p.RunTask(context.Background(), "not-a-real-task", scheduler.NewStopFlag(), nil, false)
	assert.Error(t, err)
}
