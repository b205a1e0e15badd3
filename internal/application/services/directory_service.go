package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/providers"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	"github.com/cartillasalud/backend/internal/infrastructure/observability"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

// listCacheTTLSeconds bounds staleness of cached directory pages. Imports and
// cascades do not invalidate page by page; the TTL is the invalidation.
const listCacheTTLSeconds = 60

// exportHeader is the column order shared by export and import
var exportHeader = []string{
	"provider", "address", "phones", "email", "extra_info",
	"locality", "province", "categories", "specialty", "plan", "status",
}

// DirectoryPage is one page of directory entries with the total count over
// the whole filtered set
type DirectoryPage struct {
	Entries []*entities.DirectoryEntry `json:"entries"`
	Total   int                        `json:"total"`
	Limit   int                        `json:"limit"`
	Offset  int                        `json:"offset"`
}

// DirectoryService reads the denormalized directory. Reads never touch the
// normalized tables.
type DirectoryService struct {
	store         repositories.Store
	directoryRepo repositories.DirectoryRepository
	searchRepo    repositories.DirectorySearchRepository
	cache         providers.CacheProvider
	metrics       *observability.Metrics
}

// NewDirectoryService creates a new directory service. searchRepo and cache
// may be nil.
func NewDirectoryService(
	store repositories.Store,
	directoryRepo repositories.DirectoryRepository,
	searchRepo repositories.DirectorySearchRepository,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
) *DirectoryService {
	return &DirectoryService{
		store:         store,
		directoryRepo: directoryRepo,
		searchRepo:    searchRepo,
		cache:         cache,
		metrics:       metrics,
	}
}

func listCacheKey(filter repositories.DirectoryFilter) string {
	status := ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	return fmt.Sprintf("directory:list:%s|%s|%s|%s|%s|%s|%s|%d|%d",
		filter.Provider, filter.Plan, filter.Specialty, filter.Province,
		filter.Locality, filter.Category, status, filter.Limit, filter.Offset)
}

// List returns one page of directory entries from the database. Pages are
// cached briefly.
func (s *DirectoryService) List(ctx context.Context, filter repositories.DirectoryFilter) (*DirectoryPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = 25
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	key := listCacheKey(filter)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var page DirectoryPage
			if err := json.Unmarshal(data, &page); err == nil {
				if s.metrics != nil {
					s.metrics.CacheHitCount.Add(ctx, 1)
				}
				return &page, nil
			}
		}
		if s.metrics != nil {
			s.metrics.CacheMissCount.Add(ctx, 1)
		}
	}

	entries, total, err := s.directoryRepo.List(ctx, s.store.Queryer(), filter)
	if err != nil {
		return nil, err
	}

	page := &DirectoryPage{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}

	if s.cache != nil {
		if data, err := json.Marshal(page); err == nil {
			if err := s.cache.Set(ctx, key, data, listCacheTTLSeconds); err != nil {
				log.Debug().Err(err).Msg("failed to cache directory page")
			}
		}
	}
	return page, nil
}

// Search queries the search index and falls back to the database when the
// index is unavailable
func (s *DirectoryService) Search(ctx context.Context, filter repositories.DirectoryFilter) (*DirectoryPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = 25
	}

	if s.searchRepo != nil {
		entries, total, err := s.searchRepo.Search(ctx, filter)
		if err == nil {
			return &DirectoryPage{
				Entries: entries,
				Total:   total,
				Limit:   filter.Limit,
				Offset:  filter.Offset,
			}, nil
		}
		log.Warn().Err(err).Msg("search index unavailable, falling back to database")
	}
	return s.List(ctx, filter)
}

// Export streams the whole directory to w in the import format, header
// included, without materializing the table in memory
func (s *DirectoryService) Export(ctx context.Context, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return apperrors.NewInternalError("failed to write export header", err)
	}

	err := s.directoryRepo.ForEach(ctx, s.store.Queryer(), func(entry *entities.DirectoryEntry) error {
		record := []string{
			entry.ProviderName,
			entry.Address,
			entry.Phones,
			entry.Email,
			entry.ExtraInfo,
			entry.LocalityName,
			entry.ProvinceName,
			entry.CategoryNames,
			entry.SpecialtyName,
			entry.PlanName,
			string(entry.Status),
		}
		if err := writer.Write(record); err != nil {
			return apperrors.NewInternalError("failed to write export record", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewInternalError("failed to flush export", err)
	}
	return nil
}
