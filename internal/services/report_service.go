package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/stats"
	"github.com/mushroomlog/mushroomlog/internal/timeutil"
)

// CSVHeader is the fixed export column order.
var CSVHeader = []string{"ID", "Display ID", "Date", "Species", "Operation", "Quantity", "End Date", "Outcome", "Notes"}

// ReportService renders batch exports and parses them back.
type ReportService struct {
	Batches *BatchService
	Stats   *StatsService
}

func NewReportService(batches *BatchService, statsService *StatsService) *ReportService {
	return &ReportService{Batches: batches, Stats: statsService}
}

// ExportFilename is mushroom_logs_YYYY-MM-DD.csv for today.
func ExportFilename(ext string) string {
	return fmt.Sprintf("mushroom_logs_%s.%s", timeutil.Today(), ext)
}

// quote wraps a free-text field in double quotes, doubling embedded quotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// plain leaves a code column bare unless it holds a CSV delimiter, which
// only happens with imported or legacy rows.
func plain(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// WriteCSV writes batches in export format. Species, operation, outcome and
// notes are always quoted; newlines in notes become spaces.
func WriteCSV(w io.Writer, batches []*models.Batch) error {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(CSVHeader, ","))
	for _, b := range batches {
		end := ""
		if b.EndDate != nil {
			end = *b.EndDate
		}
		notes := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(b.Notes)
		buf.WriteByte('\n')
		buf.WriteString(strings.Join([]string{
			plain(b.ID),
			plain(b.DisplayID),
			b.CreatedDate,
			quote(b.Species),
			quote(b.OperationType),
			formatQuantity(b.Quantity),
			end,
			quote(b.Outcome),
			quote(notes),
		}, ","))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ParseCSV reads rows written by WriteCSV.
func ParseCSV(r io.Reader) ([]*models.Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("csv is empty")
		}
		return nil, invalid("csv header: %v", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, h := range CSVHeader {
		if strings.TrimSpace(header[i]) != h {
			return nil, invalid("csv column %d is %q, expected %q", i+1, header[i], h)
		}
	}

	var out []*models.Batch
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalid("csv line %d: %v", line, err)
		}
		qty, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
		if err != nil {
			return nil, invalid("csv line %d: quantity %q is not a number", line, rec[5])
		}
		b := &models.Batch{
			ID:            strings.TrimSpace(rec[0]),
			DisplayID:     strings.TrimSpace(rec[1]),
			CreatedDate:   strings.TrimSpace(rec[2]),
			Species:       rec[3],
			OperationType: rec[4],
			Quantity:      qty,
			Outcome:       rec[7],
			Notes:         rec[8],
			ImageURLs:     []string{},
		}
		if end := strings.TrimSpace(rec[6]); end != "" {
			b.EndDate = &end
		}
		out = append(out, b)
	}
	return out, nil
}

// ExportCSV renders all of the user's batches.
func (s *ReportService) ExportCSV(ctx context.Context, userID string) ([]byte, error) {
	batches, err := s.Batches.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, batches); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImportCSV parses an export and inserts rows with unknown ids.
func (s *ReportService) ImportCSV(ctx context.Context, userID string, r io.Reader) (*ImportResult, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	return s.Batches.Import(ctx, userID, rows)
}

// ExportPDF renders the statistics summary for q followed by the batch table.
func (s *ReportService) ExportPDF(ctx context.Context, userID string, q StatsQuery) ([]byte, error) {
	sum, err := s.Stats.Summary(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	all, err := s.Batches.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Batches.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	batches, err := stats.Filter(all, q.Filter, q.SpeciesID, cfg, timeutil.Now())
	if err != nil {
		return nil, invalid("%v", err)
	}
	return GeneratePDF(sum, batches)
}

// GeneratePDF lays out one A4 report. Core fonts are cp1252; characters
// outside it are passed through untranslated.
func GeneratePDF(sum *stats.Summary, batches []*models.Batch) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Mushroom Log - Cultivation Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	rangeText := string(sum.Filter.Type)
	if sum.Filter.Type == stats.RangeCustom && sum.Filter.StartDate != "" {
		rangeText = fmt.Sprintf("%s to %s", sum.Filter.StartDate, sum.Filter.EndDate)
	}
	pdf.CellFormat(190, 6, "Range: "+rangeText, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Summary
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Total Yield: %s g", formatQuantity(sum.Yield.TotalWeight)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Contamination: %.1f%%", sum.Health.ContaminationRate), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Active Batches: %d", sum.Pipeline.ActiveCount), "1", 1, "C", false, 0, "")
	pdf.Ln(5)

	if len(sum.Yield.SpeciesStats) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 8, "Yield by Species", "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(110, 7, "Species", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Weight (g)", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Harvests", "1", 1, "C", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, sp := range sum.Yield.SpeciesStats {
			pdf.CellFormat(110, 6, tr(sp.SpeciesName), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, formatQuantity(sp.TotalWeight), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, strconv.Itoa(sp.BatchCount), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(5)
	}

	// Batches
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, fmt.Sprintf("Batches (%d)", len(batches)), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(32, 7, "Display ID", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Species", "1", 0, "C", true, 0, "")
	pdf.CellFormat(38, 7, "Operation", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(38, 7, "Status", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, b := range batches {
		pdf.CellFormat(32, 6, b.DisplayID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, b.CreatedDate, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, truncate(tr(b.Species), 22), "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 6, truncate(tr(b.OperationType), 21), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, formatQuantity(b.Quantity)+" "+tr(b.Unit), "1", 0, "R", false, 0, "")
		pdf.CellFormat(38, 6, string(b.EffectiveStatus()), "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
