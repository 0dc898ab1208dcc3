package actors

import (
	"context"
	"fmt"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
)

// fakeMediaServer implements mediaserver.Client, exercising only the
// persons-related surface this package uses; every other method panics
// if called, so a test calling into unexpected surface fails loudly.
type fakeMediaServer struct {
	persons      []mediaserver.Person
	updated      map[string]string
	updateErrors map[string]error
}

func newFakeMediaServer(persons ...mediaserver.Person) *fakeMediaServer {
	return &fakeMediaServer{persons: persons, updated: map[string]string{}, updateErrors: map[string]error{}}
}

func (f *fakeMediaServer) ListPersons(ctx context.Context) ([]mediaserver.Person, error) {
	return f.persons, nil
}

func (f *fakeMediaServer) UpdatePersonName(ctx context.Context, personID, name string) error {
	if err, ok := f.updateErrors[personID]; ok {
		return err
	}
	f.updated[personID] = name
	return nil
}

func (f *fakeMediaServer) ListItems(ctx context.Context, libraryIDs []string, typeFilter []string, fields []string) ([]mediaserver.Item, error) {
	panic("not used by this test")
}
func (f *fakeMediaServer) GetItem(ctx context.Context, id string, fields []string) (*mediaserver.Item, error) {
	panic("not used by this test")
}
func (f *fakeMediaServer) GetItemsByIDs(ctx context.Context, ids []string, fields []string) ([]mediaserver.Item, error) {
	panic("not used by this test")
}
func (f *fakeMediaServer) GetSeriesChildren(ctx context.Context, seriesID string, fields []string) ([]mediaserver.Item, error) {
	panic("not used by this test")
}
func (f *fakeMediaServer) GetAllUsers(ctx context.Context) ([]mediaserver.User, error) {
	panic("not used by this test")
}
func (f *fakeMediaServer) GetUserAccessibleItems(ctx context.Context, userID string, idList []string) ([]string, error) {
	panic("not used by this test")
}
func (f *fakeMediaServer) UpdateItemDetails(ctx context.Context, id string, fields map[string]interface{}) error {
	panic("not used by this test")
}
func (f *fakeMediaServer) SetUserPolicy(ctx context.Context, userID string, policy mediaserver.UserPolicy) error {
	panic("not used by this test")
}
func (f *fakeMediaServer) SetUserDisabled(ctx context.Context, userID string, disabled bool) error {
	panic("not used by this test")
}
func (f *fakeMediaServer) CreateOrUpdateCollection(ctx context.Context, name string, orderedIDs []string) (string, error) {
	panic("not used by this test")
}
func (f *fakeMediaServer) RefreshItemMetadata(ctx context.Context, id string, replaceAll bool) error {
	panic("not used by this test")
}

// fakeTranslator implements translator.Client with a canned mapping.
type fakeTranslator struct {
	translations map[string]string
	err          error
	calls        [][]string
}

func (f *fakeTranslator) BatchTranslate(ctx context.Context, texts []string) (map[string]string, error) {
	f.calls = append(f.calls, append([]string{}, texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(texts))
	for _, t := range texts {
		if tr, ok := f.translations[t]; ok {
			out[t] = tr
		}
	}
	return out, nil
}

var errTranslateFailed = fmt.Errorf("translate failed")
