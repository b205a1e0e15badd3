package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/cartillasalud/backend/internal/application/services"
)

// ImportHandler accepts a directory file upload and runs the bulk import
type ImportHandler struct {
	service        *services.ImportService
	redisClient    *redislib.Client
	maxUploadBytes int64
	idempotencyTTL time.Duration
}

// NewImportHandler creates a new import handler. redisClient may be nil, in
// which case idempotency keys are not enforced.
func NewImportHandler(
	service *services.ImportService,
	redisClient *redislib.Client,
	maxUploadBytes int64,
	idempotencyTTL time.Duration,
) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &ImportHandler{
		service:        service,
		redisClient:    redisClient,
		maxUploadBytes: maxUploadBytes,
		idempotencyTTL: idempotencyTTL,
	}
}

// Import handles POST /api/directory/import. The file comes either as the
// "file" part of a multipart form or as the raw request body.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if duplicate, key := h.isDuplicate(r); duplicate {
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":          "duplicate",
			"idempotency_key": key,
		})
		return
	}

	reader, cleanup, err := h.fileReader(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	opts := services.ImportOptions{
		HasHeader: r.URL.Query().Get("header") != "false",
		Actor:     strings.TrimSpace(r.Header.Get("X-Actor")),
	}
	if delim := r.URL.Query().Get("delimiter"); delim != "" {
		opts.Delimiter = rune(delim[0])
	}

	summary, err := h.service.Import(r.Context(), reader, opts)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *ImportHandler) fileReader(r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

func (h *ImportHandler) isDuplicate(r *http.Request) (bool, string) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || h.redisClient == nil {
		return false, ""
	}

	redisKey := "directory_import_idem:" + key
	ok, err := h.redisClient.SetNX(r.Context(), redisKey, time.Now().UTC().Format(time.RFC3339Nano), h.idempotencyTTL).Result()
	if err != nil {
		log.Warn().Err(err).Msg("idempotency check failed")
		return false, key
	}
	return !ok, key
}
