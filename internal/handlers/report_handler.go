package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/internal/stats"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
	Stats   *services.StatsService
	logger  *zap.Logger
}

func NewReportHandler(service *services.ReportService, statsService *services.StatsService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{Service: service, Stats: statsService, logger: logger}
}

// parseStatsQuery reads ?range=&start=&end=&species=.
func parseStatsQuery(r *http.Request) (services.StatsQuery, error) {
	q := r.URL.Query()
	tr, err := stats.ParseRange(q.Get("range"))
	if err != nil {
		return services.StatsQuery{}, err
	}
	return services.StatsQuery{
		Filter:    stats.DateFilter{Type: tr, StartDate: q.Get("start"), EndDate: q.Get("end")},
		SpeciesID: q.Get("species"),
	}, nil
}

// GetStats handles GET /api/stats
func (h *ReportHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	query, err := parseStatsQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sum, err := h.Stats.Summary(r.Context(), uid, query)
	if err != nil {
		writeError(w, h.logger, err, "compute statistics")
		return
	}
	utils.JSON(w, http.StatusOK, sum)
}

// ExportCSV handles GET /api/export/csv
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	csvData, err := h.Service.ExportCSV(ctx, uid)
	if err != nil {
		writeError(w, h.logger, err, "generate CSV")
		return
	}
	utils.Attachment(w, "text/csv; charset=utf-8", services.ExportFilename("csv"), csvData)
}

// ExportPDF handles GET /api/export/pdf with the same filter as /api/stats.
func (h *ReportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	query, err := parseStatsQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	pdfData, err := h.Service.ExportPDF(ctx, uid, query)
	if err != nil {
		writeError(w, h.logger, err, "generate PDF")
		return
	}
	utils.Attachment(w, "application/pdf", services.ExportFilename("pdf"), pdfData)
}
