// Package domain contains the core domain models for the catalog service.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an entity is not found in the database.
	ErrNotFound = errors.New("entity not found")
	// ErrInvalidID is returned when an id is not a valid UUID.
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidPage is returned for a limit or offset that is not an integer.
	ErrInvalidPage = errors.New("invalid pagination")
	// ErrInvalidStatus is returned for a status outside the state machine.
	ErrInvalidStatus = errors.New("invalid status")
)

// Status is the processing state of a data object.
type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusClassified Status = "classified"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusClassified, StatusError:
		return true
	}
	return false
}

// Synthetic and well-known types.
const (
	TypeJSONContainer = "json_container"
	TypeJSONItem      = "json_item"
	TypeJSON          = "application/json"
	TypeOctetStream   = "application/octet-stream"
)

// DataObject is one catalog entry: a stored blob plus its metadata and tags.
type DataObject struct {
	ID               string    `db:"id"                 json:"id"`
	Name             string    `db:"name"               json:"name"`
	Type             string    `db:"type"               json:"type"`
	Source           *string   `db:"source"             json:"source"`
	ContentLocation  string    `db:"content_location"   json:"-"`
	ContentSummary   string    `db:"content"            json:"content"`
	QualityScore     float64   `db:"quality_score"      json:"quality_score"`
	Status           Status    `db:"status"             json:"status"`
	CreatedAt        time.Time `db:"created_at"         json:"created_at"`
	LastUpdated      time.Time `db:"last_updated"       json:"last_updated"`
	SourceOriginalID *string   `db:"source_original_id" json:"source_original_id,omitempty"`
	SourceItemKey    *string   `db:"source_item_key"    json:"source_item_key,omitempty"`
	Tags             []string  `db:"-"                  json:"tags"`
}

// IsContainer reports whether the object stands for an exploded JSON array.
func (o *DataObject) IsContainer() bool {
	return o.Type == TypeJSONContainer
}

// SourceName returns the source label or "" when unset.
func (o *DataObject) SourceName() string {
	if o.Source == nil {
		return ""
	}
	return *o.Source
}

// NewDataObject holds the fields needed to insert a catalog entry.
// Empty Status defaults to new and empty Tags to {unclassified}.
type NewDataObject struct {
	Name             string
	Type             string
	Source           *string
	ContentLocation  string
	ContentSummary   string
	QualityScore     float64
	Status           Status
	Tags             []string
	SourceOriginalID *string
	SourceItemKey    *string
}

// SourceName returns the source label or "" when unset.
func (o *NewDataObject) SourceName() string {
	if o.Source == nil {
		return ""
	}
	return *o.Source
}

// Patch is a partial update. Nil fields are left unchanged; a non-nil Tags
// replaces the whole tag set.
type Patch struct {
	Name            *string
	Type            *string
	Source          *string
	ContentLocation *string
	ContentSummary  *string
	QualityScore    *float64
	Status          *Status
	Tags            []string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Type == nil && p.Source == nil && p.ContentLocation == nil &&
		p.ContentSummary == nil && p.QualityScore == nil && p.Status == nil && p.Tags == nil
}

// Outcome is the result of classifying one entry.
type Outcome struct {
	Tags         []string
	QualityScore float64
	Status       Status
}

// Patch converts the outcome into the update that persists it.
func (o Outcome) Patch() Patch {
	score := o.QualityScore
	status := o.Status
	return Patch{QualityScore: &score, Status: &status, Tags: o.Tags}
}

// ClampScore limits a quality score to [0,1].
func ClampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
