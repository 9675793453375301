// Package stats derives yield, health and pipeline aggregates from a batch
// collection. All functions are pure.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/timeutil"
)

type TimeRange string

const (
	RangeAll    TimeRange = "ALL"
	RangeYear   TimeRange = "YEAR"
	RangeMonth  TimeRange = "MONTH"
	RangeWeek   TimeRange = "WEEK"
	RangeCustom TimeRange = "CUSTOM"
)

type DateFilter struct {
	Type      TimeRange `json:"type"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
}

// ParseRange accepts a range name case-insensitively; empty means ALL.
func ParseRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeYear, RangeMonth, RangeWeek, RangeCustom:
		return r, nil
	}
	return "", fmt.Errorf("unknown time range %q", s)
}

// Window returns the inclusive [start, end] interval for the filter at now.
func (f DateFilter) Window(now time.Time) (time.Time, time.Time, error) {
	loc := timeutil.Location()
	now = now.In(loc)
	start := time.Unix(0, 0).In(loc)
	end := now

	switch f.Type {
	case RangeYear:
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
	case RangeMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	case RangeWeek:
		start = now.AddDate(0, 0, -7)
	case RangeCustom:
		if f.StartDate == "" || f.EndDate == "" {
			break
		}
		s, err := timeutil.ParseDate(f.StartDate)
		if err != nil {
			return start, end, fmt.Errorf("invalid start date: %w", err)
		}
		e, err := timeutil.ParseDate(f.EndDate)
		if err != nil {
			return start, end, fmt.Errorf("invalid end date: %w", err)
		}
		start, end = s, timeutil.EndOfDay(e)
	}
	return start, end, nil
}

// Filter selects batches created inside the window and, when speciesID names
// a configured species, of that species.
func Filter(batches []*models.Batch, f DateFilter, speciesID string, configs *models.UserConfigs, now time.Time) ([]*models.Batch, error) {
	start, end, err := f.Window(now)
	if err != nil {
		return nil, err
	}

	speciesName := ""
	if speciesID != "" && configs != nil {
		if sp, ok := configs.FindSpeciesByID(speciesID); ok {
			speciesName = sp.Name
		}
	}

	out := make([]*models.Batch, 0, len(batches))
	for _, b := range batches {
		d, err := timeutil.ParseDate(b.CreatedDate)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		if speciesName != "" && b.Species != speciesName {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

type SpeciesYield struct {
	SpeciesName string  `json:"speciesName"`
	TotalWeight float64 `json:"totalWeight"`
	BatchCount  int     `json:"batchCount"`
}

type YieldStats struct {
	TotalWeight  float64        `json:"totalWeight"`
	SpeciesStats []SpeciesYield `json:"speciesStats"`
	HarvestCount int            `json:"harvestCount"`
}

// Yield sums harvest weight overall and per species, heaviest first.
func Yield(batches []*models.Batch) YieldStats {
	var res YieldStats
	bySpecies := make(map[string]*SpeciesYield)
	var order []string
	for _, b := range batches {
		if !b.IsHarvest() {
			continue
		}
		res.HarvestCount++
		res.TotalWeight += b.Quantity
		sy, ok := bySpecies[b.Species]
		if !ok {
			sy = &SpeciesYield{SpeciesName: b.Species}
			bySpecies[b.Species] = sy
			order = append(order, b.Species)
		}
		sy.TotalWeight += b.Quantity
		sy.BatchCount++
	}
	res.SpeciesStats = make([]SpeciesYield, 0, len(order))
	for _, name := range order {
		res.SpeciesStats = append(res.SpeciesStats, *bySpecies[name])
	}
	sort.SliceStable(res.SpeciesStats, func(i, j int) bool {
		return res.SpeciesStats[i].TotalWeight > res.SpeciesStats[j].TotalWeight
	})
	return res
}

type HealthStats struct {
	TotalBatches        int             `json:"totalBatches"`
	ContaminatedBatches []*models.Batch `json:"contaminatedBatches"`
	ContaminationRate   float64         `json:"contaminationRate"`
}

// IsContaminated reports whether a batch failed (contaminated or discarded).
func IsContaminated(b *models.Batch) bool {
	return b.EffectiveStatus().Failed()
}

// Health computes the contamination rate as a percentage.
func Health(batches []*models.Batch) HealthStats {
	res := HealthStats{TotalBatches: len(batches), ContaminatedBatches: []*models.Batch{}}
	for _, b := range batches {
		if IsContaminated(b) {
			res.ContaminatedBatches = append(res.ContaminatedBatches, b)
		}
	}
	if res.TotalBatches > 0 {
		res.ContaminationRate = float64(len(res.ContaminatedBatches)) / float64(res.TotalBatches) * 100
	}
	return res
}

type PipelineStats struct {
	ActiveCount int                        `json:"activeCount"`
	ByStage     map[string][]*models.Batch `json:"byStage"`
}

// IsActive: not a harvest, not discarded, no end date.
func IsActive(b *models.Batch) bool {
	if b.IsHarvest() {
		return false
	}
	if b.EffectiveStatus() == models.StatusDiscarded {
		return false
	}
	return !b.HasEnded()
}

// Pipeline groups active batches by operation type.
func Pipeline(batches []*models.Batch) PipelineStats {
	res := PipelineStats{ByStage: make(map[string][]*models.Batch)}
	for _, b := range batches {
		if !IsActive(b) {
			continue
		}
		res.ActiveCount++
		res.ByStage[b.OperationType] = append(res.ByStage[b.OperationType], b)
	}
	return res
}

// Summary bundles the three aggregates for one filtered collection.
type Summary struct {
	Filter   DateFilter    `json:"filter"`
	Species  string        `json:"species,omitempty"`
	Yield    YieldStats    `json:"yield"`
	Health   HealthStats   `json:"health"`
	Pipeline PipelineStats `json:"pipeline"`
}

func Summarize(batches []*models.Batch, f DateFilter, speciesID string, configs *models.UserConfigs, now time.Time) (*Summary, error) {
	filtered, err := Filter(batches, f, speciesID, configs, now)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Filter:   f,
		Species:  speciesID,
		Yield:    Yield(filtered),
		Health:   Health(filtered),
		Pipeline: Pipeline(filtered),
	}, nil
}
