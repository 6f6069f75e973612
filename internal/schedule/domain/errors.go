package domain

import "errors"

var (
	ErrNotFound             = errors.New("project not found")
	ErrNoProject            = errors.New("no project loaded")
	ErrInvalidProjectData   = errors.New("invalid project data")
	ErrInvalidPassword      = errors.New("invalid admin password")
	ErrInvalidPriority      = errors.New("invalid task priority")
	ErrInvalidCategory      = errors.New("invalid task category")
	ErrInvalidStatus        = errors.New("invalid task status")
	ErrInvalidProgress      = errors.New("progress must be between 0 and 100")
	ErrInconsistentProgress = errors.New("progress does not match status")
	ErrEmptyName            = errors.New("project name required")
	ErrShareIDConflict      = errors.New("share id already used by another project")
	ErrRemoteNotConfigured  = errors.New("remote backend not configured")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
	ErrInvalidPatch         = errors.New("invalid patch")
	ErrInvalidDeadline      = errors.New("invalid deadline")
	ErrInvalidView          = errors.New("invalid view")
	ErrInvalidTheme         = errors.New("invalid theme")
)
