package services_test

import (
	"context"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

// fakeStore runs transactional work directly; a nil Queryer is fine because
// the fake repositories never touch the database.
type fakeStore struct {
	txErr     error
	txStarted int
}

func (s *fakeStore) Queryer() repositories.Queryer { return nil }

func (s *fakeStore) RunInTx(_ context.Context, fn func(q repositories.Queryer) error) error {
	s.txStarted++
	if s.txErr != nil {
		return s.txErr
	}
	return fn(nil)
}

type fakeDirectoryRepo struct {
	truncated        bool
	batches          [][]*entities.DirectoryEntry
	regenerated      bool
	insertErr        error
	regenerateErr    error
	deletedProviders []string
	providerUpdates  []map[string]interface{}
	renames          [][3]string
	statusCascades   []string
	recomputed       []string
	entries          []*entities.DirectoryEntry
	listTotal        int
	listErr          error
}

func (f *fakeDirectoryRepo) Truncate(context.Context, repositories.Queryer) error {
	f.truncated = true
	return nil
}

func (f *fakeDirectoryRepo) InsertBatch(_ context.Context, _ repositories.Queryer, entries []*entities.DirectoryEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	batch := make([]*entities.DirectoryEntry, len(entries))
	copy(batch, entries)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeDirectoryRepo) DeleteByProvider(_ context.Context, _ repositories.Queryer, providerID string) error {
	f.deletedProviders = append(f.deletedProviders, providerID)
	return nil
}

func (f *fakeDirectoryRepo) EntriesByProvider(context.Context, repositories.Queryer, string) ([]*entities.DirectoryEntry, error) {
	return f.entries, nil
}

func (f *fakeDirectoryRepo) UpdateByProvider(_ context.Context, _ repositories.Queryer, _ string, fields map[string]interface{}) error {
	f.providerUpdates = append(f.providerUpdates, fields)
	return nil
}

func (f *fakeDirectoryRepo) RenameDimension(_ context.Context, _ repositories.Queryer, column, oldName, newName string) error {
	f.renames = append(f.renames, [3]string{column, oldName, newName})
	return nil
}

func (f *fakeDirectoryRepo) SetStatusByDimension(_ context.Context, _ repositories.Queryer, column, name string, _ entities.Status) error {
	f.statusCascades = append(f.statusCascades, column+":"+name)
	return nil
}

func (f *fakeDirectoryRepo) RecomputeCategoryNames(_ context.Context, _ repositories.Queryer, categoryID string) error {
	f.recomputed = append(f.recomputed, categoryID)
	return nil
}

func (f *fakeDirectoryRepo) Regenerate(context.Context, repositories.Queryer) error {
	if f.regenerateErr != nil {
		return f.regenerateErr
	}
	f.regenerated = true
	return nil
}

func (f *fakeDirectoryRepo) List(context.Context, repositories.Queryer, repositories.DirectoryFilter) ([]*entities.DirectoryEntry, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.entries, f.listTotal, nil
}

func (f *fakeDirectoryRepo) ForEach(_ context.Context, _ repositories.Queryer, fn func(*entities.DirectoryEntry) error) error {
	for _, entry := range f.entries {
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

type fakeCatalogRepo struct {
	byID         map[string]*entities.CatalogEntry
	names        map[entities.EntityKind]map[string]string
	nameCount    int
	refCount     int
	inserted     []*entities.CatalogEntry
	fieldUpdates map[string]map[string]interface{}
	deleted      []string
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		byID:         map[string]*entities.CatalogEntry{},
		names:        map[entities.EntityKind]map[string]string{},
		fieldUpdates: map[string]map[string]interface{}{},
	}
}

func (f *fakeCatalogRepo) addNames(kind entities.EntityKind, names map[string]string) {
	f.names[kind] = names
}

func (f *fakeCatalogRepo) List(_ context.Context, _ repositories.Queryer, d entities.Descriptor) ([]*entities.CatalogEntry, error) {
	var out []*entities.CatalogEntry
	for _, e := range f.byID {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetByID(_ context.Context, _ repositories.Queryer, d entities.Descriptor, id string) (*entities.CatalogEntry, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, apperrors.NewNotFoundError(string(d.Kind) + " not found")
}

func (f *fakeCatalogRepo) Insert(_ context.Context, _ repositories.Queryer, _ entities.Descriptor, entry *entities.CatalogEntry) error {
	f.inserted = append(f.inserted, entry)
	f.byID[entry.ID] = entry
	return nil
}

func (f *fakeCatalogRepo) Update(_ context.Context, _ repositories.Queryer, _ entities.Descriptor, id string, fields map[string]interface{}) error {
	f.fieldUpdates[id] = fields
	return nil
}

func (f *fakeCatalogRepo) Delete(_ context.Context, _ repositories.Queryer, _ entities.Descriptor, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.byID, id)
	return nil
}

func (f *fakeCatalogRepo) CountByField(context.Context, repositories.Queryer, entities.Descriptor, string, string, string) (int, error) {
	return f.nameCount, nil
}

func (f *fakeCatalogRepo) ReferenceCount(context.Context, repositories.Queryer, entities.Descriptor, string) (int, error) {
	return f.refCount, nil
}

func (f *fakeCatalogRepo) NamesByIDs(_ context.Context, _ repositories.Queryer, d entities.Descriptor, ids []string) (map[string]string, error) {
	known := f.names[d.Kind]
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		name, ok := known[id]
		if !ok {
			return nil, apperrors.NewNotFoundError(string(d.Kind) + " not found: " + id)
		}
		out[id] = name
	}
	return out, nil
}

type fakeProviderRepo struct {
	byID          map[string]*entities.Provider
	byName        map[string]*entities.Provider
	created       []*entities.Provider
	links         map[repositories.Relation][]string
	registrations []*entities.Registration
	regReplaces   int
	fieldUpdates  map[string]map[string]interface{}
	deleted       []string
	localityName  string
	provinceName  string
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{
		byID:         map[string]*entities.Provider{},
		byName:       map[string]*entities.Provider{},
		links:        map[repositories.Relation][]string{},
		fieldUpdates: map[string]map[string]interface{}{},
	}
}

func (f *fakeProviderRepo) Create(_ context.Context, _ repositories.Queryer, provider *entities.Provider) error {
	f.created = append(f.created, provider)
	f.byID[provider.ID] = provider
	f.byName[provider.Name] = provider
	return nil
}

func (f *fakeProviderRepo) GetByID(_ context.Context, _ repositories.Queryer, id string) (*entities.Provider, error) {
	if p, ok := f.byID[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, apperrors.NewNotFoundError("provider not found")
}

func (f *fakeProviderRepo) GetByName(_ context.Context, _ repositories.Queryer, name string) (*entities.Provider, error) {
	if p, ok := f.byName[name]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, apperrors.NewNotFoundError("provider not found")
}

func (f *fakeProviderRepo) UpdateFields(_ context.Context, _ repositories.Queryer, id string, fields map[string]interface{}) error {
	f.fieldUpdates[id] = fields
	return nil
}

func (f *fakeProviderRepo) Delete(_ context.Context, _ repositories.Queryer, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperrors.NewNotFoundError("provider not found")
	}
	f.deleted = append(f.deleted, id)
	delete(f.byID, id)
	return nil
}

func (f *fakeProviderRepo) ReplaceLinks(_ context.Context, _ repositories.Queryer, _ string, rel repositories.Relation, ids []string) error {
	f.links[rel] = ids
	return nil
}

func (f *fakeProviderRepo) LinkedIDs(_ context.Context, _ repositories.Queryer, _ string, rel repositories.Relation) ([]string, error) {
	return f.links[rel], nil
}

func (f *fakeProviderRepo) ReplaceRegistrations(_ context.Context, _ repositories.Queryer, _ string, regs []*entities.Registration) error {
	f.registrations = regs
	f.regReplaces++
	return nil
}

func (f *fakeProviderRepo) LocalityNames(context.Context, repositories.Queryer, string) (string, string, error) {
	return f.localityName, f.provinceName, nil
}

type fakeSearchRepo struct {
	indexed          [][]*entities.DirectoryEntry
	deletedProviders []string
	searchEntries    []*entities.DirectoryEntry
	searchTotal      int
	searchErr        error
	indexErr         error
}

func (f *fakeSearchRepo) InitSchema(context.Context) error { return nil }

func (f *fakeSearchRepo) IndexBatch(_ context.Context, entries []*entities.DirectoryEntry) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = append(f.indexed, entries)
	return nil
}

func (f *fakeSearchRepo) DeleteByProvider(_ context.Context, providerID string) error {
	f.deletedProviders = append(f.deletedProviders, providerID)
	return nil
}

func (f *fakeSearchRepo) Search(context.Context, repositories.DirectoryFilter) ([]*entities.DirectoryEntry, int, error) {
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.searchEntries, f.searchTotal, nil
}

type fakeAuditPublisher struct {
	events []*entities.AuditEvent
}

func (f *fakeAuditPublisher) Publish(_ context.Context, event *entities.AuditEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditPublisher) Close() error { return nil }
