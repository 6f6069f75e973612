package domain

// statusProgress is the progress a task takes when its status is set directly.
var statusProgress = map[Status]int{
	StatusNotStarted: 0,
	StatusInProgress: 50,
	StatusDone:       100,
}

// ClampProgress bounds v into [0,100].
func ClampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// StatusForProgress derives a status from a progress value.
func StatusForProgress(progress int) Status {
	switch {
	case progress >= 100:
		return StatusDone
	case progress > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// ProgressForStatus returns the fixed progress for a status.
func ProgressForStatus(s Status) (int, error) {
	p, ok := statusProgress[s]
	if !ok {
		return 0, ErrInvalidStatus
	}
	return p, nil
}

// ConsistentProgress reports whether progress and status agree.
func ConsistentProgress(progress int, s Status) bool {
	switch s {
	case StatusDone:
		return progress == 100
	case StatusNotStarted:
		return progress == 0
	case StatusInProgress:
		return progress > 0 && progress < 100
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	switch c {
	case CategoryPlanning, CategoryGraphics, CategoryProgramming, CategorySound, CategoryOther:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	_, ok := statusProgress[s]
	return ok
}

func (v ViewType) Valid() bool {
	switch v {
	case ViewDashboard, ViewGantt, ViewCalendar, ViewKanban:
		return true
	}
	return false
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}
