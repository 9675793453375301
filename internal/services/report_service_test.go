package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/stats"
)

func TestWriteCSVQuotesFreeText(t *testing.T) {
	end := "2024-02-01"
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*models.Batch{{
		ID: "b1", DisplayID: "240115-OB-01", CreatedDate: "2024-01-15",
		Species: "Oyster Blue", OperationType: "Agar work", Quantity: 2.5,
		EndDate: &end, Outcome: "健康", Notes: "said \"ok\"\nthen left",
	}}))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Display ID,Date,Species,Operation,Quantity,End Date,Outcome,Notes", lines[0])
	assert.Equal(t, `b1,240115-OB-01,2024-01-15,"Oyster Blue","Agar work",2.5,2024-02-01,"健康","said ""ok"" then left"`, lines[1])
}

func TestCSVQuotesCodesHoldingDelimiters(t *testing.T) {
	rows := []*models.Batch{
		{ID: "b1", DisplayID: "240115-W,C-01", CreatedDate: "2024-01-15", Species: "Wine Cap", OperationType: "Agar work", Quantity: 1},
		{ID: `legacy"2`, DisplayID: "240115-OB-01", CreatedDate: "2024-01-15", Species: "Oyster Blue", OperationType: "Agar work", Quantity: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.Contains(t, buf.String(), `b1,"240115-W,C-01",2024-01-15,`)
	assert.Contains(t, buf.String(), `"legacy""2",240115-OB-01,`)

	parsed, err := ParseCSV(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, "240115-W,C-01", parsed[0].DisplayID)
	assert.Equal(t, `legacy"2`, parsed[1].ID)
}

func TestParseCSVRejectsBadInput(t *testing.T) {
	for name, in := range map[string]string{
		"empty":        "",
		"wrong header": "id,code,date,species,op,qty,end,outcome,notes\n",
		"short row":    strings.Join(CSVHeader, ",") + "\nb1,240115-OB-01\n",
		"bad quantity": strings.Join(CSVHeader, ",") + "\nb1,240115-OB-01,2024-01-15,\"OB\",\"Agar work\",lots,,\"\",\"\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestParseCSVAcceptsBOM(t *testing.T) {
	in := "\ufeff" + strings.Join(CSVHeader, ",") + "\nb1,240115-OB-01,2024-01-15,\"Oyster Blue\",\"Agar work\",1,,\"\",\"\"\n"
	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].EndDate)
	assert.Equal(t, "Oyster Blue", rows[0].Species)
}

func TestCSVExportImportRoundTrip(t *testing.T) {
	src := newTestEnv(t)
	ctx := context.Background()
	parent := src.create(t, models.CreateBatchRequest{
		CreatedDate: "2024-01-15", Species: "Oyster Blue", OperationType: "Agar work", Quantity: 1,
		Notes: "first \"clean\" plate\nfrom spores",
	})[0]
	src.create(t, models.CreateBatchRequest{
		CreatedDate: "2024-02-10", Species: "Oyster Blue", OperationType: models.HarvestOperation, Quantity: 312.5,
	})
	_, err := src.batches.Update(ctx, testUser, parent.ID, &models.UpdateBatchRequest{
		CreatedDate: "2024-01-15", Species: "Oyster Blue", OperationType: "Agar work", Quantity: 1,
		Outcome: "轻微感染", EndDate: strPtr("2024-01-25"), Notes: parent.Notes,
	})
	require.NoError(t, err)

	data, err := src.reports.ExportCSV(ctx, testUser)
	require.NoError(t, err)

	dst := newTestEnv(t)
	res, err := dst.reports.ImportCSV(ctx, testUser, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Inserted: 2}, res)

	want, err := src.batches.List(ctx, testUser)
	require.NoError(t, err)
	got, err := dst.batches.List(ctx, testUser)
	require.NoError(t, err)

	// parent links, photos and timestamps are not part of the export
	ignore := cmpopts.IgnoreFields(models.Batch{}, "ParentID", "ImageURLs", "CreatedAt", "UpdatedAt")
	for _, b := range want {
		b.Notes = strings.ReplaceAll(b.Notes, "\n", " ")
	}
	if diff := cmp.Diff(want, got, ignore); diff != "" {
		t.Errorf("imported batches differ (-want +got):\n%s", diff)
	}

	again, err := dst.reports.ImportCSV(ctx, testUser, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Skipped: 2}, again)
}

func TestExportPDF(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, models.CreateBatchRequest{
		CreatedDate: "2024-02-10", Species: "Lions' Mane", OperationType: models.HarvestOperation, Quantity: 120,
	})

	pdf, err := env.reports.ExportPDF(context.Background(), testUser, StatsQuery{Filter: stats.DateFilter{Type: stats.RangeAll}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = env.reports.ExportPDF(context.Background(), testUser, StatsQuery{Filter: stats.DateFilter{Type: stats.RangeCustom, StartDate: "soon", EndDate: "2024-03-01"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename("csv")
	assert.True(t, strings.HasPrefix(name, "mushroom_logs_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
}
