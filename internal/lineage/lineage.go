// Package lineage walks parent pointers between batches.
package lineage

import (
	"sort"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

// MaxDepth bounds both the ancestor walk and descendant recursion.
const MaxDepth = 50

type Result struct {
	Ancestors   []*models.Batch `json:"ancestors"`   // root first
	Target      *models.Batch   `json:"target"`
	Descendants []*models.Batch `json:"descendants"` // depth-first order
	Chain       []*models.Batch `json:"chain"`       // all of the above by createdDate, unique ids
}

func index(all []*models.Batch) map[string]*models.Batch {
	byID := make(map[string]*models.Batch, len(all))
	for _, b := range all {
		byID[b.ID] = b
	}
	return byID
}

// Ancestors returns the parent chain of target, root first. The walk stops at
// a root, a dangling parent id, a repeated id, or after MaxDepth hops.
func Ancestors(target *models.Batch, all []*models.Batch) []*models.Batch {
	byID := index(all)
	seen := map[string]bool{target.ID: true}
	var chain []*models.Batch
	current := target
	for hops := 0; current.Parent() != "" && hops < MaxDepth; hops++ {
		parent, ok := byID[current.Parent()]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		chain = append([]*models.Batch{parent}, chain...)
		current = parent
	}
	return chain
}

// Descendants returns every batch whose parent chain leads back to target.
func Descendants(target *models.Batch, all []*models.Batch) []*models.Batch {
	children := make(map[string][]*models.Batch)
	for _, b := range all {
		if p := b.Parent(); p != "" {
			children[p] = append(children[p], b)
		}
	}
	seen := map[string]bool{target.ID: true}
	var out []*models.Batch
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if depth >= MaxDepth {
			return
		}
		for _, c := range children[id] {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			walk(c.ID, depth+1)
		}
	}
	walk(target.ID, 0)
	return out
}

// Resolve builds the full lineage view for target.
func Resolve(target *models.Batch, all []*models.Batch) Result {
	res := Result{
		Ancestors:   Ancestors(target, all),
		Target:      target,
		Descendants: Descendants(target, all),
	}

	seen := make(map[string]bool)
	var chain []*models.Batch
	add := func(bs ...*models.Batch) {
		for _, b := range bs {
			if !seen[b.ID] {
				seen[b.ID] = true
				chain = append(chain, b)
			}
		}
	}
	add(res.Ancestors...)
	add(target)
	add(res.Descendants...)

	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].CreatedDate < chain[j].CreatedDate
	})
	res.Chain = chain
	return res
}

// IsDescendant reports whether candidate sits below root.
func IsDescendant(root *models.Batch, candidateID string, all []*models.Batch) bool {
	for _, d := range Descendants(root, all) {
		if d.ID == candidateID {
			return true
		}
	}
	return false
}
