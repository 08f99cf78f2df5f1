// Package models contains domain types for ekaya-content.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
)

// ProjectStatus is the lifecycle state of a ContentProject.
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusGenerating ProjectStatus = "generating"
	ProjectStatusReady      ProjectStatus = "ready"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// ValidProjectStatuses contains all valid project status values.
var ValidProjectStatuses = []ProjectStatus{
	ProjectStatusDraft,
	ProjectStatusGenerating,
	ProjectStatusReady,
	ProjectStatusFailed,
}

// IsValidProjectStatus checks if the given status is valid.
func IsValidProjectStatus(s ProjectStatus) bool {
	for _, v := range ValidProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// projectTransitions lists the allowed next states for each state.
// ready and failed only move back to generating through regenerate.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusDraft:      {ProjectStatusGenerating},
	ProjectStatusGenerating: {ProjectStatusReady, ProjectStatusFailed},
	ProjectStatusReady:      {ProjectStatusGenerating},
	ProjectStatusFailed:     {ProjectStatusGenerating},
}

// CanTransition returns nil if a project may move from one status to another,
// or an error wrapping apperrors.ErrInvalidTransition.
func CanTransition(from, to ProjectStatus) error {
	for _, next := range projectTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, to)
}

// IsTerminal reports whether a job for a project in this status has finished.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusReady || s == ProjectStatusFailed
}

// ContentProject is a user's request for multi-platform content and the
// current state of its generation job.
type ContentProject struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	OriginalPrompt  string          `json:"original_prompt"`
	TargetPlatforms []Platform      `json:"target_platforms"`
	ContentTypes    []ContentType   `json:"content_types"`
	Tone            string          `json:"tone"`
	BrandGuidelines json.RawMessage `json:"brand_guidelines,omitempty"`
	Status          ProjectStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// BrandGuidelinesText returns the guidelines as prompt text. JSON strings are
// unquoted; objects and arrays are returned as compact JSON.
func (p *ContentProject) BrandGuidelinesText() string {
	if len(p.BrandGuidelines) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.BrandGuidelines, &s); err == nil {
		return s
	}
	return string(p.BrandGuidelines)
}
