// Package exchange encodes and decodes the exported project document.
package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

// Format of an exported document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied name to a Format; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
}

// document mirrors domain.Project but keeps the task list as a pointer so a
// missing "tasks" key can be told apart from an empty one.
type document struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Tasks     *[]domain.Task `json:"tasks" yaml:"tasks"`
	ShareID   string         `json:"shareId,omitempty" yaml:"shareId,omitempty"`
	CreatedAt time.Time      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" yaml:"updatedAt"`
}

// Encode renders p as a pretty-printed document.
func Encode(p *domain.Project, f Format) ([]byte, error) {
	if p == nil {
		return nil, domain.ErrNoProject
	}
	switch f {
	case FormatJSON, "":
		return json.MarshalIndent(p, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, f)
}

// Decode parses a document back into a Project with dates revived. Anything
// malformed, including a missing task list, yields ErrInvalidProjectData.
func Decode(data []byte, f Format) (*domain.Project, error) {
	var doc document
	var err error
	switch f {
	case FormatJSON, "":
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidProjectData, err)
	}
	if doc.Tasks == nil {
		return nil, fmt.Errorf("%w: missing task list", domain.ErrInvalidProjectData)
	}
	if strings.TrimSpace(doc.ID) == "" || strings.TrimSpace(doc.Name) == "" {
		return nil, fmt.Errorf("%w: missing id or name", domain.ErrInvalidProjectData)
	}

	p := &domain.Project{
		ID:        doc.ID,
		Name:      doc.Name,
		Tasks:     *doc.Tasks,
		ShareID:   doc.ShareID,
		CreatedAt: domain.StoredTime(doc.CreatedAt),
		UpdatedAt: domain.StoredTime(doc.UpdatedAt),
	}
	for i := range p.Tasks {
		task := &p.Tasks[i]
		if task.ID == "" {
			return nil, fmt.Errorf("%w: task %d has no id", domain.ErrInvalidProjectData, i)
		}
		if !task.Priority.Valid() || !task.Category.Valid() || !task.Status.Valid() {
			return nil, fmt.Errorf("%w: task %s has an unknown priority, category or status", domain.ErrInvalidProjectData, task.ID)
		}
		if task.Progress < 0 || task.Progress > 100 {
			return nil, fmt.Errorf("%w: task %s progress %d out of range", domain.ErrInvalidProjectData, task.ID, task.Progress)
		}
		task.Deadline = domain.StoredTime(task.Deadline)
		task.CreatedAt = domain.StoredTime(task.CreatedAt)
		task.UpdatedAt = domain.StoredTime(task.UpdatedAt)
	}
	if p.Tasks == nil {
		p.Tasks = []domain.Task{}
	}
	return p, nil
}
