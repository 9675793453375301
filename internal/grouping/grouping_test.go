package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

func b(id, date, species, op string, qty float64) *models.Batch {
	return &models.Batch{ID: id, DisplayID: "d-" + id, CreatedDate: date, Species: species, OperationType: op, Quantity: qty}
}

func TestGroupAggregates(t *testing.T) {
	batches := []*models.Batch{
		b("1", "2024-01-15", "Oyster Blue", "Harvest", 1),
		b("2", "2024-01-15", "Oyster Blue", "Harvest", 1),
		b("3", "2024-01-15", "Oyster Blue", "Harvest", 1),
	}
	out := Group(batches)
	require.Len(t, out, 1)
	require.Len(t, out[0].Groups, 1)

	g := out[0].Groups[0]
	assert.IsType(t, &DisplayGroup{}, g)
	assert.Equal(t, "Oyster Blue::Harvest", g.Key)
	assert.Equal(t, float64(3), g.AggregateQuantity)
	assert.Equal(t, []string{"d-1", "d-2", "d-3"}, g.DisplayIDs)
	assert.Same(t, batches[0], g.First)
	assert.Len(t, g.Members, 3)
}

func TestGroupSplitsByDateAndKey(t *testing.T) {
	batches := []*models.Batch{
		b("1", "2024-01-14", "Oyster Blue", "Agar work", 2),
		b("2", "2024-01-15", "Oyster Blue", "Agar work", 1),
		b("3", "2024-01-15", "oyster blue", "Agar work", 1),
		b("4", "2024-01-15", "Oyster Blue", "Harvest", 120),
		b("5", "2024-01-16", "Lions' Mane", "LC to grain", 1),
	}
	out := Group(batches)
	require.Len(t, out, 3)
	assert.Equal(t, "2024-01-16", out[0].Date)
	assert.Equal(t, "2024-01-15", out[1].Date)
	assert.Equal(t, "2024-01-14", out[2].Date)

	// species comparison is case-sensitive
	require.Len(t, out[1].Groups, 3)
	assert.Equal(t, []string{"Oyster Blue::Agar work", "oyster blue::Agar work", "Oyster Blue::Harvest"},
		[]string{out[1].Groups[0].Key, out[1].Groups[1].Key, out[1].Groups[2].Key})
}

func TestGroupEmpty(t *testing.T) {
	assert.Empty(t, Group(nil))
}
