package domain

import "time"

// Priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Category groups tasks by discipline.
type Category string

const (
	CategoryPlanning    Category = "planning"
	CategoryGraphics    Category = "graphics"
	CategoryProgramming Category = "programming"
	CategorySound       Category = "sound"
	CategoryOther       Category = "other"
)

// Status of a task. Coupled with Progress, see StatusForProgress.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// ViewType is the active UI view.
type ViewType string

const (
	ViewDashboard ViewType = "dashboard"
	ViewGantt     ViewType = "gantt"
	ViewCalendar  ViewType = "calendar"
	ViewKanban    ViewType = "kanban"
)

// Theme of the UI.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Project is the single top-level unit of work. Tasks keep insertion order.
type Project struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Tasks     []Task    `json:"tasks" yaml:"tasks"`
	ShareID   string    `json:"shareId,omitempty" yaml:"shareId,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Task is owned exclusively by its Project.
type Task struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Deadline    time.Time `json:"deadline" yaml:"deadline"`
	Progress    int       `json:"progress" yaml:"progress"`
	Priority    Priority  `json:"priority" yaml:"priority"`
	Category    Category  `json:"category" yaml:"category"`
	Status      Status    `json:"status" yaml:"status"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// TaskFormData is what the task form submits. Presence checks happen in the
// form layer; the store trusts it.
type TaskFormData struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Priority    Priority  `json:"priority"`
	Category    Category  `json:"category"`
	Notes       string    `json:"notes,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
}

// NotificationSettings controls deadline reminders.
type NotificationSettings struct {
	Enabled         bool `json:"enabled"`
	ThreeDaysBefore bool `json:"threeDaysBefore"`
	OneDayBefore    bool `json:"oneDayBefore"`
	OnDeadline      bool `json:"onDeadline"`
}

// DefaultNotifications has every reminder switched on.
func DefaultNotifications() NotificationSettings {
	return NotificationSettings{
		Enabled:         true,
		ThreeDaysBefore: true,
		OneDayBefore:    true,
		OnDeadline:      true,
	}
}

// Settings is the free-form settings blob kept in the local cache. Absent
// fields are left untouched when restored.
type Settings struct {
	Notifications *NotificationSettings `json:"notifications,omitempty"`
	Theme         Theme                 `json:"theme,omitempty"`
}

// Clone returns a deep copy so callers can mutate tasks freely.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Tasks = make([]Task, len(p.Tasks))
	copy(cp.Tasks, p.Tasks)
	return &cp
}

// TaskIndex returns the position of the task with id, or -1.
func (p *Project) TaskIndex(id string) int {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// StoredTime normalises t to what both backends can hold: UTC, no monotonic
// reading and microsecond precision (the TIMESTAMPTZ resolution).
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
