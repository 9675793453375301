package displayid

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

var species = []models.SpeciesConfig{
	{ID: "1", Name: "Oyster Blue", Abbreviation: "OB"},
	{ID: "6", Name: "Lions' Mane", Abbreviation: "LM"},
}

func TestAbbreviation(t *testing.T) {
	assert.Equal(t, "OB", Abbreviation("Oyster Blue", species))
	assert.Equal(t, "EN", Abbreviation("enoki", species))
	assert.Equal(t, "香菇", Abbreviation("香菇木耳", species))
	assert.Equal(t, "X", Abbreviation("x", species))
	// exact match only
	assert.Equal(t, "OY", Abbreviation("oyster blue", species))
}

func TestPrefix(t *testing.T) {
	p, err := Prefix("Oyster Blue", "2024-01-15", species)
	require.NoError(t, err)
	assert.Equal(t, "240115-OB-", p)

	_, err = Prefix("Oyster Blue", "15/01/2024", species)
	assert.Error(t, err)
}

func TestSequence(t *testing.T) {
	tests := []struct {
		code string
		want int
		ok   bool
	}{
		{"240115-OB-01", 1, true},
		{"240115-OB-123", 123, true},
		{"240115-OB-", 0, false},
		{"240115-OB-xx", 0, false},
		{"nohyphen", 0, false},
	}
	for _, tt := range tests {
		n, ok := Sequence(tt.code)
		assert.Equal(t, tt.ok, ok, tt.code)
		assert.Equal(t, tt.want, n, tt.code)
	}
}

func TestAllocate(t *testing.T) {
	t.Run("empty prefix starts at one", func(t *testing.T) {
		assert.Equal(t, []string{"240115-OB-01"}, Allocate("240115-OB-", nil, 1))
	})

	t.Run("continues past max", func(t *testing.T) {
		existing := []string{"240115-OB-01", "240115-OB-07", "240115-OB-03", "240115-LM-40"}
		got := Allocate("240115-OB-", existing, 3)
		assert.Equal(t, []string{"240115-OB-08", "240115-OB-09", "240115-OB-10"}, got)
	})

	t.Run("widens past 99", func(t *testing.T) {
		got := Allocate("240115-OB-", []string{"240115-OB-98"}, 3)
		assert.Equal(t, []string{"240115-OB-99", "240115-OB-100", "240115-OB-101"}, got)
	})

	t.Run("strictly increasing", func(t *testing.T) {
		got := Allocate("240115-OB-", []string{"240115-OB-05"}, 20)
		prev := 5
		for _, c := range got {
			require.True(t, strings.HasPrefix(c, "240115-OB-"))
			n, ok := Sequence(c)
			require.True(t, ok)
			assert.Equal(t, prev+1, n)
			prev = n
		}
	})
}

func TestRename(t *testing.T) {
	assert.Equal(t, "240115-OBX-03", Rename("240115-OB-03", "OB", "OBX"))
	assert.Equal(t, "240115-LM-03", Rename("240115-LM-03", "OB", "OBX"))
}

type fakeLookup map[string][]string

func (f fakeLookup) DisplayIDsWithPrefix(_ context.Context, userID, prefix string) ([]string, error) {
	var out []string
	for _, c := range f[userID] {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestGenerator(t *testing.T) {
	g := NewGenerator(fakeLookup{
		"u1": {"240115-OB-01", "240115-OB-02"},
		"u2": {"240115-OB-09"},
	})

	codes, err := g.Generate(context.Background(), "u1", "Oyster Blue", "2024-01-15", species, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"240115-OB-03", "240115-OB-04"}, codes)

	codes, err = g.Generate(context.Background(), "u1", "Lions' Mane", "2024-01-15", species, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"240115-LM-01"}, codes)
}
