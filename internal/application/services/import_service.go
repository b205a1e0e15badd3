package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/providers"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	"github.com/cartillasalud/backend/internal/infrastructure/observability"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

// importColumnCount is the number of fields in one import record:
// provider, address, phones, email, extra_info, locality, province,
// categories, specialty, plan, status.
const importColumnCount = 11

// ImportSummary reports the outcome of a bulk import
type ImportSummary struct {
	TotalProcessed int      `json:"total_processed"`
	Succeeded      int      `json:"succeeded"`
	Failed         int      `json:"failed"`
	Warnings       []string `json:"warnings,omitempty"`
	Duration       string   `json:"duration"`
}

// ImportOptions tunes a single import run
type ImportOptions struct {
	// Delimiter overrides the configured field delimiter when non-zero.
	Delimiter rune

	// HasHeader skips the first row.
	HasHeader bool

	// Actor is recorded on the audit event.
	Actor string

	// OnProgress, when set, is invoked with the running record count at
	// every progress interval and once more at the end.
	OnProgress func(processed int)
}

// ImportService replaces the whole directory from a delimited stream. The
// truncate, the batched loads and the regeneration of the normalized tables
// all run inside one transaction, so a failed import leaves the previous
// directory untouched.
type ImportService struct {
	store            repositories.Store
	directoryRepo    repositories.DirectoryRepository
	searchRepo       repositories.DirectorySearchRepository
	auditPublisher   providers.AuditPublisher
	metrics          *observability.Metrics
	batchSize        int
	progressInterval int
	delimiter        rune
}

// NewImportService creates a new import service. searchRepo, auditPublisher
// and metrics may be nil; indexing, auditing and instrumentation are then
// skipped.
func NewImportService(
	store repositories.Store,
	directoryRepo repositories.DirectoryRepository,
	searchRepo repositories.DirectorySearchRepository,
	auditPublisher providers.AuditPublisher,
	metrics *observability.Metrics,
	batchSize int,
	progressInterval int,
	delimiter rune,
) *ImportService {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if progressInterval <= 0 {
		progressInterval = 1000
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &ImportService{
		store:            store,
		directoryRepo:    directoryRepo,
		searchRepo:       searchRepo,
		auditPublisher:   auditPublisher,
		metrics:          metrics,
		batchSize:        batchSize,
		progressInterval: progressInterval,
		delimiter:        delimiter,
	}
}

// Import streams records from r into the directory. The first malformed or
// invalid record aborts the whole run with an ingestion error carrying the
// 1-based record position.
func (s *ImportService) Import(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportSummary, error) {
	start := time.Now()
	summary := &ImportSummary{}

	delimiter := s.delimiter
	if opts.Delimiter != 0 {
		delimiter = opts.Delimiter
	}

	err := s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		if err := s.directoryRepo.Truncate(ctx, q); err != nil {
			return err
		}

		reader := csv.NewReader(r)
		reader.Comma = delimiter
		reader.FieldsPerRecord = -1

		if opts.HasHeader {
			if _, err := reader.Read(); err != nil && err != io.EOF {
				return apperrors.NewIngestionError(0, fmt.Sprintf("failed to read header: %v", err))
			}
		}

		batch := make([]*entities.DirectoryEntry, 0, s.batchSize)
		position := 0

		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			position++
			if err != nil {
				return apperrors.NewIngestionError(position, fmt.Sprintf("malformed record: %v", err))
			}

			entry, err := parseImportRecord(record, position)
			if err != nil {
				return err
			}

			batch = append(batch, entry)
			if len(batch) >= s.batchSize {
				if err := s.directoryRepo.InsertBatch(ctx, q, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}

			if opts.OnProgress != nil && position%s.progressInterval == 0 {
				opts.OnProgress(position)
			}
		}

		if len(batch) > 0 {
			if err := s.directoryRepo.InsertBatch(ctx, q, batch); err != nil {
				return err
			}
		}

		summary.TotalProcessed = position
		summary.Succeeded = position

		if opts.OnProgress != nil && position%s.progressInterval != 0 {
			opts.OnProgress(position)
		}

		return s.directoryRepo.Regenerate(ctx, q)
	})
	if err != nil {
		summary.Failed = 1
		summary.Succeeded = 0
		return summary, err
	}

	summary.Duration = time.Since(start).String()

	if s.metrics != nil {
		s.metrics.ImportedRecords.Add(ctx, int64(summary.Succeeded))
	}

	s.reindex(ctx, summary)
	s.publishAudit(ctx, opts.Actor, summary)

	log.Info().
		Int("records", summary.TotalProcessed).
		Str("duration", summary.Duration).
		Msg("directory import completed")

	return summary, nil
}

// reindex rebuilds the search index from the committed directory. Search is
// an optional collaborator, so failures only produce a warning.
func (s *ImportService) reindex(ctx context.Context, summary *ImportSummary) {
	if s.searchRepo == nil {
		return
	}

	batch := make([]*entities.DirectoryEntry, 0, s.batchSize)
	err := s.directoryRepo.ForEach(ctx, s.store.Queryer(), func(entry *entities.DirectoryEntry) error {
		batch = append(batch, entry)
		if len(batch) >= s.batchSize {
			if err := s.searchRepo.IndexBatch(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
		return nil
	})
	if err == nil && len(batch) > 0 {
		err = s.searchRepo.IndexBatch(ctx, batch)
	}
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("search reindex failed: %v", err))
		log.Warn().Err(err).Msg("failed to reindex directory after import")
	}
}

func (s *ImportService) publishAudit(ctx context.Context, actor string, summary *ImportSummary) {
	if s.auditPublisher == nil {
		return
	}

	event := &entities.AuditEvent{
		Actor:      actor,
		Action:     entities.AuditActionImport,
		EntityType: "directory",
		Summary: map[string]string{
			"records":  fmt.Sprintf("%d", summary.TotalProcessed),
			"duration": summary.Duration,
		},
	}
	if err := s.auditPublisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish import audit event")
	}
}

// parseImportRecord maps one raw record to a directory entry. Provider, plan
// and specialty are mandatory; everything else may be blank.
func parseImportRecord(record []string, position int) (*entities.DirectoryEntry, error) {
	if len(record) != importColumnCount {
		return nil, apperrors.NewIngestionError(position,
			fmt.Sprintf("expected %d fields, got %d", importColumnCount, len(record)))
	}

	fields := make([]string, len(record))
	for i, f := range record {
		fields[i] = strings.TrimSpace(f)
	}

	if fields[0] == "" {
		return nil, apperrors.NewIngestionError(position, "provider name is required")
	}
	if fields[8] == "" {
		return nil, apperrors.NewIngestionError(position, "specialty is required")
	}
	if fields[9] == "" {
		return nil, apperrors.NewIngestionError(position, "plan is required")
	}

	status := entities.StatusActive
	if fields[10] != "" {
		parsed, ok := entities.ParseStatus(fields[10])
		if !ok {
			return nil, apperrors.NewIngestionError(position,
				fmt.Sprintf("invalid status %q", fields[10]))
		}
		status = parsed
	}

	now := time.Now()
	return &entities.DirectoryEntry{
		ID:            uuid.New().String(),
		ProviderName:  fields[0],
		Address:       fields[1],
		Phones:        fields[2],
		Email:         fields[3],
		ExtraInfo:     fields[4],
		LocalityName:  fields[5],
		ProvinceName:  fields[6],
		CategoryNames: normalizeCategoryNames(fields[7]),
		SpecialtyName: fields[8],
		PlanName:      fields[9],
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// normalizeCategoryNames trims each comma-separated category and rejoins with
// the canonical separator so that equality checks against the joined column
// are stable.
func normalizeCategoryNames(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
