package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/blob"
	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

// maxImageSize bounds one uploaded photo.
const maxImageSize = 20 << 20

type ImageHandler struct {
	Service *services.ImageService
	logger  *zap.Logger
}

func NewImageHandler(s *services.ImageService, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{Service: s, logger: logger}
}

// Upload handles POST /api/batches/{id}/images (multipart field "file").
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(path.Ext(header.Filename)); byExt != "" {
			contentType = byExt
		}
	}

	batch, url, err := h.Service.Upload(r.Context(), uid, mux.Vars(r)["id"], header.Filename, contentType, file)
	if err != nil {
		writeError(w, h.logger, err, "upload image")
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]interface{}{"url": url, "batch": batch})
}

// Delete handles DELETE /api/batches/{id}/images with {"url": ...}.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	batch, err := h.Service.Delete(r.Context(), uid, mux.Vars(r)["id"], req.URL)
	if err != nil {
		writeError(w, h.logger, err, "delete image")
		return
	}
	utils.JSON(w, http.StatusOK, batch)
}

// Cleanup handles POST /api/images/cleanup with {"before": "YYYY-MM-DD"}.
func (h *ImageHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		Before string `json:"before"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.Service.CleanupBefore(r.Context(), uid, req.Before)
	if err != nil {
		writeError(w, h.logger, err, "clean up images")
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// StorageHealth handles GET /api/storage/health
func (h *ImageHandler) StorageHealth(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.Service.Health(r.Context()))
}

// Serve streams an object for the fs and memory drivers: GET /images/{bucket}/{key}.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	info, body, err := h.Service.Open(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, h.logger, err, "read image")
		return
	}
	defer body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("image stream interrupted", zap.String("key", info.Key), zap.Error(err))
	}
}
