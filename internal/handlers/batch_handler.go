package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

// maxImportSize bounds an uploaded CSV import.
const maxImportSize = 10 << 20

type BatchHandler struct {
	Service *services.BatchService
	Reports *services.ReportService
	logger  *zap.Logger
}

func NewBatchHandler(s *services.BatchService, reports *services.ReportService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{Service: s, Reports: reports, logger: logger}
}

func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	batches, err := h.Service.List(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err, "list batches")
		return
	}
	utils.JSON(w, http.StatusOK, batches)
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	b, err := h.Service.Get(r.Context(), uid, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err, "load batch")
		return
	}
	utils.JSON(w, http.StatusOK, b)
}

// Create returns every batch written; bulk quantities produce several.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	batches, err := h.Service.Create(r.Context(), uid, &req)
	if err != nil {
		writeError(w, h.logger, err, "create batch")
		return
	}
	utils.JSON(w, http.StatusCreated, batches)
}

func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.UpdateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	batches, err := h.Service.Update(r.Context(), uid, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, h.logger, err, "update batch")
		return
	}
	utils.JSON(w, http.StatusOK, batches)
}

func (h *BatchHandler) Expand(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.ExpandBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	batches, err := h.Service.Expand(r.Context(), uid, mux.Vars(r)["id"], req.Count)
	if err != nil {
		writeError(w, h.logger, err, "expand batch")
		return
	}
	utils.JSON(w, http.StatusCreated, batches)
}

func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), uid, mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, err, "delete batch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BatchHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Lineage(r.Context(), uid, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err, "resolve lineage")
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// NextDisplayIDs previews codes: GET /api/display-ids/next?species=&date=&n=
func (h *BatchHandler) NextDisplayIDs(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	n := 1
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "n must be an integer", http.StatusBadRequest)
			return
		}
		n = v
	}

	codes, err := h.Service.PreviewDisplayIDs(r.Context(), uid, q.Get("species"), q.Get("date"), n)
	if err != nil {
		writeError(w, h.logger, err, "generate display ids")
		return
	}
	utils.JSON(w, http.StatusOK, map[string][]string{"displayIds": codes})
}

// Import accepts an exported CSV as the raw body or a multipart "file" field.
func (h *BatchHandler) Import(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	body := r.Body
	if err := r.ParseMultipartForm(maxImportSize); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
	}

	res, err := h.Reports.ImportCSV(r.Context(), uid, body)
	if err != nil {
		writeError(w, h.logger, err, "import batches")
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// Groups returns the date / species::operation view.
func (h *BatchHandler) Groups(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	groups, err := h.Service.Groups(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err, "group batches")
		return
	}
	utils.JSON(w, http.StatusOK, groups)
}

func (h *BatchHandler) EditGroup(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.GroupEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	batches, err := h.Service.EditGroup(r.Context(), uid, &req)
	if err != nil {
		writeError(w, h.logger, err, "update batch group")
		return
	}
	utils.JSON(w, http.StatusOK, batches)
}

func (h *BatchHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req models.GroupDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteGroup(r.Context(), uid, req.IDs); err != nil {
		writeError(w, h.logger, err, "delete batch group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
