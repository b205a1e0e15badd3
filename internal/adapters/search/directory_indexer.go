package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	tsclient "github.com/cartillasalud/backend/internal/infrastructure/clients/typesense"
)

const collectionName = "directory_entries"

// DirectoryIndexer indexes directory entries in Typesense for fast faceted
// search. Indexing is best-effort and runs after the owning transaction has
// committed.
type DirectoryIndexer struct {
	client *tsclient.Client
}

// Ensure DirectoryIndexer implements DirectorySearchRepository
var _ repositories.DirectorySearchRepository = (*DirectoryIndexer)(nil)

// NewDirectoryIndexer creates a new directory indexer
func NewDirectoryIndexer(client *tsclient.Client) *DirectoryIndexer {
	return &DirectoryIndexer{client: client}
}

// InitSchema ensures the collection exists
func (a *DirectoryIndexer) InitSchema(ctx context.Context) error {
	_, err := a.client.Client().Collection(collectionName).Retrieve(ctx)
	if err == nil {
		return nil // Collection exists
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "provider_id", Type: "string"},
			{Name: "provider_name", Type: "string"},
			{Name: "plan_name", Type: "string", Facet: pointer.True()},
			{Name: "specialty_name", Type: "string", Facet: pointer.True()},
			{Name: "category_names", Type: "string"},
			{Name: "locality_name", Type: "string", Facet: pointer.True()},
			{Name: "province_name", Type: "string", Facet: pointer.True()},
			{Name: "status", Type: "string", Facet: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	_, err = a.client.Client().Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

func entryDocument(entry *entities.DirectoryEntry) map[string]interface{} {
	return map[string]interface{}{
		"id":             entry.ID,
		"provider_id":    entry.ProviderID,
		"provider_name":  entry.ProviderName,
		"plan_name":      entry.PlanName,
		"specialty_name": entry.SpecialtyName,
		"category_names": entry.CategoryNames,
		"locality_name":  entry.LocalityName,
		"province_name":  entry.ProvinceName,
		"status":         string(entry.Status),
		"created_at":     entry.CreatedAt.Unix(),
	}
}

// IndexBatch upserts a batch of entries
func (a *DirectoryIndexer) IndexBatch(ctx context.Context, entries []*entities.DirectoryEntry) error {
	for _, entry := range entries {
		if _, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, entryDocument(entry)); err != nil {
			return fmt.Errorf("failed to index directory entry %s: %w", entry.ID, err)
		}
	}
	return nil
}

// DeleteByProvider removes every document of a provider from the index
func (a *DirectoryIndexer) DeleteByProvider(ctx context.Context, providerID string) error {
	filter := fmt.Sprintf("provider_id:=%s", providerID)
	_, err := a.client.Client().Collection(collectionName).Documents().Delete(ctx, &api.DeleteDocumentsParams{
		FilterBy: pointer.String(filter),
	})
	if err != nil {
		return fmt.Errorf("failed to delete directory entries from index: %w", err)
	}
	return nil
}

// Search searches directory entries
func (a *DirectoryIndexer) Search(ctx context.Context, filter repositories.DirectoryFilter) ([]*entities.DirectoryEntry, int, error) {
	query := "*"
	if filter.Provider != "" {
		query = filter.Provider
	}

	var filters []string
	if filter.Plan != "" {
		filters = append(filters, fmt.Sprintf("plan_name:=%s", filter.Plan))
	}
	if filter.Specialty != "" {
		filters = append(filters, fmt.Sprintf("specialty_name:=%s", filter.Specialty))
	}
	if filter.Province != "" {
		filters = append(filters, fmt.Sprintf("province_name:=%s", filter.Province))
	}
	if filter.Locality != "" {
		filters = append(filters, fmt.Sprintf("locality_name:=%s", filter.Locality))
	}
	if filter.Status != nil {
		filters = append(filters, fmt.Sprintf("status:=%s", *filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 25
	}
	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("provider_name,category_names"),
		Page:    pointer.Int(filter.Offset/limit + 1),
		PerPage: pointer.Int(limit),
	}
	if len(filters) > 0 {
		searchParams.FilterBy = pointer.String(strings.Join(filters, " && "))
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search directory entries: %w", err)
	}

	entries := []*entities.DirectoryEntry{}
	if result.Hits != nil {
		for _, hit := range *result.Hits {
			doc := *hit.Document

			entry := &entities.DirectoryEntry{}
			if val, ok := doc["id"].(string); ok {
				entry.ID = val
			}
			if val, ok := doc["provider_id"].(string); ok {
				entry.ProviderID = val
			}
			if val, ok := doc["provider_name"].(string); ok {
				entry.ProviderName = val
			}
			if val, ok := doc["plan_name"].(string); ok {
				entry.PlanName = val
			}
			if val, ok := doc["specialty_name"].(string); ok {
				entry.SpecialtyName = val
			}
			if val, ok := doc["category_names"].(string); ok {
				entry.CategoryNames = val
			}
			if val, ok := doc["locality_name"].(string); ok {
				entry.LocalityName = val
			}
			if val, ok := doc["province_name"].(string); ok {
				entry.ProvinceName = val
			}
			if val, ok := doc["status"].(string); ok {
				entry.Status = entities.Status(val)
			}
			entries = append(entries, entry)
		}
	}

	total := len(entries)
	if result.Found != nil {
		total = *result.Found
	}
	return entries, total, nil
}
