package models

import (
	"strings"
	"time"
)

// HarvestOperation is the stage name whose quantity is a weight in grams.
const HarvestOperation = "Harvest"

// Units a batch can be measured in.
const (
	UnitBottle = "瓶"
	UnitBag    = "袋"
	UnitPlate  = "皿"
	UnitGram   = "g"
)

type Batch struct {
	ID            string     `json:"id"`
	UserID        string     `json:"-"`
	DisplayID     string     `json:"displayId"`
	CreatedDate   string     `json:"createdDate"` // YYYY-MM-DD
	Species       string     `json:"species"`
	OperationType string     `json:"operationType"`
	Quantity      float64    `json:"quantity"`
	Unit          string     `json:"unit"`
	ParentID      *string    `json:"parentId"`
	EndDate       *string    `json:"endDate,omitempty"`
	Outcome       string     `json:"outcome,omitempty"`
	StatusKind    StatusKind `json:"statusKind,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	ImageURLs     []string   `json:"imageUrls"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsHarvest reports whether the batch records a harvest weight.
func (b *Batch) IsHarvest() bool {
	return b.OperationType == HarvestOperation
}

// HasEnded reports whether the batch carries an end date.
func (b *Batch) HasEnded() bool {
	return b.EndDate != nil && strings.TrimSpace(*b.EndDate) != ""
}

// Parent returns the parent id or "" for roots.
func (b *Batch) Parent() string {
	if b.ParentID == nil {
		return ""
	}
	return *b.ParentID
}

// Clone returns a deep copy safe to mutate.
func (b *Batch) Clone() *Batch {
	c := *b
	if b.ParentID != nil {
		p := *b.ParentID
		c.ParentID = &p
	}
	if b.EndDate != nil {
		e := *b.EndDate
		c.EndDate = &e
	}
	c.ImageURLs = append([]string(nil), b.ImageURLs...)
	return &c
}

// CreateBatchRequest represents the request body for logging a new operation.
type CreateBatchRequest struct {
	CreatedDate   string   `json:"createdDate"`
	Species       string   `json:"species"`
	OperationType string   `json:"operationType"`
	Quantity      float64  `json:"quantity"`
	Unit          string   `json:"unit"`
	ParentID      *string  `json:"parentId"`
	Notes         string   `json:"notes"`
	ImageURLs     []string `json:"imageUrls"`
}

// UpdateBatchRequest carries the full set of editable fields.
type UpdateBatchRequest struct {
	CreatedDate   string   `json:"createdDate"`
	Species       string   `json:"species"`
	OperationType string   `json:"operationType"`
	Quantity      float64  `json:"quantity"`
	Unit          string   `json:"unit"`
	ParentID      *string  `json:"parentId"`
	EndDate       *string  `json:"endDate"`
	Outcome       string   `json:"outcome"`
	Notes         string   `json:"notes"`
	ImageURLs     []string `json:"imageUrls"`
}

// ExpandBatchRequest splits one batch into Count unit batches.
type ExpandBatchRequest struct {
	Count int `json:"count"`
}

// GroupEditRequest applies shared metadata to every member of a display group.
type GroupEditRequest struct {
	IDs           []string `json:"ids"`
	Species       string   `json:"species"`
	CreatedDate   string   `json:"createdDate"`
	Quantity      float64  `json:"quantity"` // new group total
	OperationType string   `json:"operationType"`
}

// GroupDeleteRequest removes every listed batch.
type GroupDeleteRequest struct {
	IDs []string `json:"ids"`
}
