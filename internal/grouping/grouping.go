// Package grouping clusters batches logged on the same day for the same
// species and operation into display groups.
package grouping

import (
	"sort"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

// DisplayGroup is one species::operation cluster within a date.
type DisplayGroup struct {
	Key               string          `json:"key"`
	Species           string          `json:"species"`
	OperationType     string          `json:"operationType"`
	First             *models.Batch   `json:"first"`
	Members           []*models.Batch `json:"members"`
	AggregateQuantity float64         `json:"aggregateQuantity"`
	DisplayIDs        []string        `json:"displayIds"`
}

type DateGroup struct {
	Date   string          `json:"date"`
	Groups []*DisplayGroup `json:"groups"`
}

// Key is the case-sensitive composite within a date.
func Key(species, operationType string) string {
	return species + "::" + operationType
}

// Group partitions batches by createdDate, then by species::operationType.
// Dates are returned newest first; groups within a date keep first-seen order.
func Group(batches []*models.Batch) []DateGroup {
	type bucket struct {
		order  []string
		groups map[string]*DisplayGroup
	}
	byDate := make(map[string]*bucket)
	var dates []string

	for _, b := range batches {
		d, ok := byDate[b.CreatedDate]
		if !ok {
			d = &bucket{groups: make(map[string]*DisplayGroup)}
			byDate[b.CreatedDate] = d
			dates = append(dates, b.CreatedDate)
		}
		k := Key(b.Species, b.OperationType)
		g, ok := d.groups[k]
		if !ok {
			g = &DisplayGroup{Key: k, Species: b.Species, OperationType: b.OperationType, First: b}
			d.groups[k] = g
			d.order = append(d.order, k)
		}
		g.Members = append(g.Members, b)
		g.AggregateQuantity += b.Quantity
		g.DisplayIDs = append(g.DisplayIDs, b.DisplayID)
	}

	sort.SliceStable(dates, func(i, j int) bool { return dates[i] > dates[j] })

	out := make([]DateGroup, 0, len(dates))
	for _, date := range dates {
		d := byDate[date]
		dg := DateGroup{Date: date}
		for _, k := range d.order {
			dg.Groups = append(dg.Groups, d.groups[k])
		}
		out = append(out, dg)
	}
	return out
}
