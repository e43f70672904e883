package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/crucial707/asset-vault/internal/metrics"
	"github.com/crucial707/asset-vault/internal/middleware"
	"github.com/crucial707/asset-vault/internal/models"
	"github.com/crucial707/asset-vault/internal/repo"
	"github.com/crucial707/asset-vault/internal/storage"
)

const (
	defaultAssetLimit = 100
	uploadField       = "file"
	// uploadMemory is how much of a multipart body is buffered in memory before spilling to temp files.
	uploadMemory = 8 << 20
)

type AssetHandler struct {
	Repo  *repo.AssetRepo
	Audit *repo.AuditRepo
	Files *storage.Local
	Log   zerolog.Logger
}

type uploadResponse struct {
	Info string `json:"info"`
	URL  string `json:"url"`
}

//
// ==========================
// Upload (POST /upload/, admin only)
// ==========================
//

// Upload stores the multipart "file" part and registers it as an image asset.
// The registry row is written only after the file has been fully stored.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		h.rejectUpload(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.rejectUpload(w, err)
		return
	}
	defer file.Close()

	name, err := storage.CleanName(header.Filename)
	if err != nil {
		metrics.RecordUpload("invalid", 0)
		JSONValidationError(w, "validation failed",
			map[string]string{uploadField: fmt.Sprintf("invalid file name %q", header.Filename)}, http.StatusBadRequest)
		return
	}
	// The title column is bounded; refuse before anything touches the disk.
	if utf8.RuneCountInString(name) > models.MaxTitleLength {
		metrics.RecordUpload("invalid", 0)
		JSONValidationError(w, "validation failed",
			map[string]string{uploadField: fmt.Sprintf("file name must be at most %d characters", models.MaxTitleLength)}, http.StatusBadRequest)
		return
	}

	obj, err := h.Files.Save(name, file)
	if err != nil {
		metrics.RecordUpload("storage_error", 0)
		h.Log.Error().Err(err).Str("filename", name).Msg("upload: store file")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	asset, err := h.Repo.Create(ctx, obj.Name, obj.Path, obj.URL, models.AssetTypeImage)
	if err != nil {
		metrics.RecordUpload("registry_error", 0)
		h.Log.Error().Err(err).Str("path", obj.Path).Msg("upload: file stored but asset not registered")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if user, ok := middleware.UserFromContext(ctx); ok && h.Audit != nil {
		if err := h.Audit.Log(ctx, user.ID, repo.ActionUpload, repo.ResourceAsset, asset.ID, obj.Name); err != nil {
			h.Log.Warn().Err(err).Int("asset_id", asset.ID).Msg("audit log write failed")
		}
	}
	metrics.RecordUpload("ok", obj.Size)
	h.Log.Info().Int("asset_id", asset.ID).Str("name", obj.Name).Int64("size", obj.Size).Msg("asset uploaded")

	writeJSON(w, http.StatusOK, uploadResponse{Info: "upload successful", URL: obj.URL})
}

func (h *AssetHandler) rejectUpload(w http.ResponseWriter, err error) {
	metrics.RecordUpload("invalid", 0)
	if middleware.BodyTooLarge(err) {
		JSONError(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	JSONValidationError(w, "validation failed",
		map[string]string{uploadField: "multipart field \"file\" is required"}, http.StatusBadRequest)
}

//
// ==========================
// List Assets (GET /assets/?skip=&limit=)
// ==========================
//

func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, err := queryInt(q.Get("skip"), 0)
	if err != nil {
		JSONValidationError(w, "validation failed", map[string]string{"skip": err.Error()}, http.StatusBadRequest)
		return
	}
	limit, err := queryInt(q.Get("limit"), defaultAssetLimit)
	if err != nil {
		JSONValidationError(w, "validation failed", map[string]string{"limit": err.Error()}, http.StatusBadRequest)
		return
	}

	assets, err := h.Repo.List(r.Context(), skip, limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("list assets")
		JSONError(w, "failed to fetch assets", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, assets)
}

// queryInt parses a non-negative integer query value, returning def when raw is empty.
func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}
