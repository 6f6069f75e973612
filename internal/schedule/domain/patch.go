package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskPatch names every field a task update may touch. Nil fields are left
// unchanged.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Progress    *int       `json:"progress,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
}

// ProjectPatch names the project metadata an update may touch.
type ProjectPatch struct {
	Name    *string `json:"name,omitempty"`
	ShareID *string `json:"shareId,omitempty"`
}

// DecodeTaskPatch parses a JSON patch, rejecting unknown fields.
func DecodeTaskPatch(data []byte) (TaskPatch, error) {
	var p TaskPatch
	if err := decodeStrict(data, &p); err != nil {
		return TaskPatch{}, err
	}
	return p, nil
}

// DecodeProjectPatch parses a JSON project patch, rejecting unknown fields.
func DecodeProjectPatch(data []byte) (ProjectPatch, error) {
	var p ProjectPatch
	if err := decodeStrict(data, &p); err != nil {
		return ProjectPatch{}, err
	}
	return p, nil
}

func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return nil
}

// Apply merges the patch into t field by field and refreshes UpdatedAt.
// When only one of progress/status is set the other is derived so the pair
// stays coupled; setting both requires them to agree.
func (p TaskPatch) Apply(t Task, now time.Time) (Task, error) {
	next := t

	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Deadline != nil {
		next.Deadline = StoredTime(*p.Deadline)
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return t, ErrInvalidPriority
		}
		next.Priority = *p.Priority
	}
	if p.Category != nil {
		if !p.Category.Valid() {
			return t, ErrInvalidCategory
		}
		next.Category = *p.Category
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.ImageURL != nil {
		next.ImageURL = *p.ImageURL
	}

	switch {
	case p.Progress != nil && p.Status != nil:
		if *p.Progress < 0 || *p.Progress > 100 {
			return t, ErrInvalidProgress
		}
		if !p.Status.Valid() {
			return t, ErrInvalidStatus
		}
		if !ConsistentProgress(*p.Progress, *p.Status) {
			return t, ErrInconsistentProgress
		}
		next.Progress = *p.Progress
		next.Status = *p.Status
	case p.Progress != nil:
		if *p.Progress < 0 || *p.Progress > 100 {
			return t, ErrInvalidProgress
		}
		next.Progress = *p.Progress
		next.Status = StatusForProgress(*p.Progress)
	case p.Status != nil:
		progress, err := ProgressForStatus(*p.Status)
		if err != nil {
			return t, err
		}
		next.Progress = progress
		next.Status = *p.Status
	}

	next.UpdatedAt = now
	return next, nil
}

// Apply merges the patch into a copy of project and refreshes UpdatedAt.
func (p ProjectPatch) Apply(project *Project, now time.Time) (*Project, error) {
	next := project.Clone()
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		next.Name = name
	}
	if p.ShareID != nil {
		next.ShareID = *p.ShareID
	}
	next.UpdatedAt = now
	return next, nil
}

// ParseDeadline accepts an ISO date ("2006-01-02") or a full RFC 3339 timestamp.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return StoredTime(t), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, s)
}
