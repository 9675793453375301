// Package displayid derives the human readable batch codes
// ({YYMMDD}-{ABBR}-{NN}) shown in the log.
package displayid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/timeutil"
)

// Abbreviation resolves the species code: the configured abbreviation on an
// exact name match, otherwise the first two characters upper-cased.
func Abbreviation(species string, configs []models.SpeciesConfig) string {
	for _, s := range configs {
		if s.Name == species {
			return s.Abbreviation
		}
	}
	r := []rune(species)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// DateCode formats a calendar date as YYMMDD.
func DateCode(date time.Time) string {
	return date.Format(timeutil.DateCodeLayout)
}

// Prefix returns "{dateCode}-{abbr}-" for the given species and date string.
func Prefix(species, date string, configs []models.SpeciesConfig) (string, error) {
	d, err := timeutil.ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return DateCode(d) + "-" + Abbreviation(species, configs) + "-", nil
}

// Sequence extracts the digits after the final hyphen.
func Sequence(code string) (int, bool) {
	i := strings.LastIndex(code, "-")
	if i < 0 || i == len(code)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(code[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// MaxSequence returns the highest sequence among codes sharing prefix, or 0.
func MaxSequence(prefix string, codes []string) int {
	max := 0
	for _, c := range codes {
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		if n, ok := Sequence(c); ok && n > max {
			max = n
		}
	}
	return max
}

// Format renders prefix plus a sequence zero-padded to two digits.
func Format(prefix string, seq int) string {
	return fmt.Sprintf("%s%02d", prefix, seq)
}

// Allocate returns n consecutive codes following the current maximum.
func Allocate(prefix string, existing []string, n int) []string {
	next := MaxSequence(prefix, existing) + 1
	out := make([]string, n)
	for i := range out {
		out[i] = Format(prefix, next+i)
	}
	return out
}

// Rename swaps the abbreviation segment of a code, leaving date and sequence.
func Rename(code, oldAbbr, newAbbr string) string {
	return strings.Replace(code, "-"+oldAbbr+"-", "-"+newAbbr+"-", 1)
}

// Lookup lists a user's existing display codes starting with prefix.
type Lookup interface {
	DisplayIDsWithPrefix(ctx context.Context, userID, prefix string) ([]string, error)
}

// Generator previews codes against persisted state. Writes allocate inside
// their own transaction; this is for callers that only need the next codes.
type Generator struct {
	Lookup Lookup
}

func NewGenerator(lookup Lookup) *Generator {
	return &Generator{Lookup: lookup}
}

// Generate returns n codes for species on date.
func (g *Generator) Generate(ctx context.Context, userID, species, date string, configs []models.SpeciesConfig, n int) ([]string, error) {
	if n < 1 {
		n = 1
	}
	prefix, err := Prefix(species, date, configs)
	if err != nil {
		return nil, err
	}
	existing, err := g.Lookup.DisplayIDsWithPrefix(ctx, userID, prefix)
	if err != nil {
		return nil, err
	}
	return Allocate(prefix, existing, n), nil
}
