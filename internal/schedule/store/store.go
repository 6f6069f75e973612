// Package store is the application state container: the current project,
// UI preferences and the live subscription, mutated only through actions.
//
// Every mutating action computes the next project, publishes it to the
// in-memory state (observers are notified) and then persists it through the
// gateway, awaiting the write and returning its outcome. There is no rollback
// when persistence degrades.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/realtime"
	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/exchange"
	"github.com/game-schedule/schedule-backend/internal/schedule/gateway"
)

// Persistence is what the store needs from the gateway.
type Persistence interface {
	SaveProject(ctx context.Context, p *domain.Project) gateway.WriteOutcome
	LoadProject(ctx context.Context) (*domain.Project, gateway.Source)
	LoadProjectByShareID(ctx context.Context, shareID string) *domain.Project
	GenerateShareID() (string, error)
	SubscribeToProject(ctx context.Context, projectID string, cb func(*domain.Project)) *realtime.Subscription
	SubscribeToShare(ctx context.Context, project *domain.Project, cb func(*domain.Project)) *realtime.Subscription
	MigrateFromLocalStorage(ctx context.Context) gateway.WriteOutcome
	ClearAll(ctx context.Context) gateway.WriteOutcome
	ExportProject(ctx context.Context, f exchange.Format) ([]byte, error)
	ImportProject(ctx context.Context, data []byte, f exchange.Format) (*domain.Project, gateway.WriteOutcome, error)
	SaveSettings(ctx context.Context, s domain.Settings) error
	LoadSettings(ctx context.Context) (domain.Settings, bool)
}

// State is a point-in-time view of the store.
type State struct {
	Project       *domain.Project             `json:"project"`
	IsAdminMode   bool                        `json:"isAdminMode"`
	CurrentView   domain.ViewType             `json:"currentView"`
	Notifications domain.NotificationSettings `json:"notifications"`
	Theme         domain.Theme                `json:"theme"`
	Subscribed    bool                        `json:"subscribed"`
}

// DefaultState is the state of a fresh store and the state after ClearAll.
func DefaultState() State {
	return State{
		CurrentView:   domain.ViewDashboard,
		Notifications: domain.DefaultNotifications(),
		Theme:         domain.ThemeLight,
	}
}

// shareIDAttempts bounds regeneration when a share id collides remotely.
const shareIDAttempts = 3

type Store struct {
	// actionMu serialises actions; mu guards state and observers. Change feed
	// callbacks only ever take mu.
	actionMu sync.Mutex
	mu       sync.RWMutex

	state     State
	sub       *realtime.Subscription
	shareView bool

	observers map[int]func(State)
	nextObs   int

	persist Persistence
	now     func() time.Time
	newID   func() string
	log     *logging.Logger
}

type Option func(*Store)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides project and task id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func New(persist Persistence, opts ...Option) *Store {
	s := &Store{
		state:     DefaultState(),
		observers: make(map[int]func(State)),
		persist:   persist,
		now:       time.Now,
		newID:     domain.NewID,
		log:       logging.New("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Observe registers fn to receive a snapshot after every state change. The
// returned function unregisters it.
func (s *Store) Observe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Project = s.state.Project.Clone()
	st.Subscribed = s.sub != nil
	return st
}

// update mutates state under mu and then notifies observers outside it.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshotLocked()
	obs := make([]func(State), 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.mu.Unlock()

	for _, o := range obs {
		o(snap)
	}
}

// clock returns the current time in the form timestamps take after a round
// trip through either backend.
func (s *Store) clock() time.Time {
	return domain.StoredTime(s.now())
}

func (s *Store) setProjectState(p *domain.Project) {
	s.update(func(st *State) { st.Project = p })
}

func (s *Store) current() *domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Project
}

// commit publishes next to the in-memory state and persists it.
func (s *Store) commit(ctx context.Context, op string, next *domain.Project) gateway.WriteOutcome {
	s.setProjectState(next)
	out := s.persist.SaveProject(ctx, next)
	s.logOutcome(ctx, op, out)
	return out
}

func (s *Store) logOutcome(ctx context.Context, op string, out gateway.WriteOutcome) {
	lg := s.log.FromContext(ctx)
	if out.RemoteErr != nil {
		lg.LogWarnf(op, "remote write degraded to %s: %v", out.Backend, out.RemoteErr)
	}
	if out.LocalErr != nil {
		lg.LogErrorf(op, "local write failed: %v", out.LocalErr)
	}
}

// SetProject replaces the current project and persists it when non-nil.
func (s *Store) SetProject(ctx context.Context, p *domain.Project) gateway.WriteOutcome {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	p = p.Clone()
	s.shareView = false
	if p == nil {
		s.setProjectState(nil)
		return gateway.WriteOutcome{Backend: gateway.BackendNone}
	}
	return s.commit(ctx, "set_project", p)
}

func (s *Store) SetAdminMode(isAdmin bool) {
	s.update(func(st *State) { st.IsAdminMode = isAdmin })
}

func (s *Store) SetCurrentView(v domain.ViewType) error {
	if !v.Valid() {
		return domain.ErrInvalidView
	}
	s.update(func(st *State) { st.CurrentView = v })
	return nil
}

// SetTheme switches the theme and stores it with the other settings.
func (s *Store) SetTheme(ctx context.Context, t domain.Theme) error {
	if !t.Valid() {
		return domain.ErrInvalidTheme
	}
	s.update(func(st *State) { st.Theme = t })
	return s.saveSettings(ctx)
}

// SetNotifications replaces the reminder settings and stores them.
func (s *Store) SetNotifications(ctx context.Context, n domain.NotificationSettings) error {
	s.update(func(st *State) { st.Notifications = n })
	return s.saveSettings(ctx)
}

func (s *Store) saveSettings(ctx context.Context) error {
	snap := s.Snapshot()
	n := snap.Notifications
	err := s.persist.SaveSettings(ctx, domain.Settings{Notifications: &n, Theme: snap.Theme})
	if err != nil {
		s.log.FromContext(ctx).LogError("save_settings", err)
	}
	return err
}

// CreateProject starts an empty project named name and subscribes to it.
func (s *Store) CreateProject(ctx context.Context, name string) (*domain.Project, gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	p, err := (domain.ProjectPatch{Name: &name}).Apply(&domain.Project{}, s.clock())
	if err != nil {
		return nil, gateway.WriteOutcome{Backend: gateway.BackendNone}, err
	}
	p.ID = s.newID()
	p.Tasks = []domain.Task{}
	p.CreatedAt = p.UpdatedAt

	s.unsubscribeLocked()
	s.shareView = false
	out := s.commit(ctx, "create_project", p)
	s.subscribeLocked(ctx)
	return p.Clone(), out, nil
}

// UpdateProject applies patch to the project metadata.
func (s *Store) UpdateProject(ctx context.Context, patch domain.ProjectPatch) (gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	return s.updateProjectLocked(ctx, "update_project", patch)
}

func (s *Store) updateProjectLocked(ctx context.Context, op string, patch domain.ProjectPatch) (gateway.WriteOutcome, error) {
	cur := s.current()
	if cur == nil {
		return gateway.WriteOutcome{Backend: gateway.BackendNone}, domain.ErrNoProject
	}
	next, err := patch.Apply(cur, s.clock())
	if err != nil {
		return gateway.WriteOutcome{Backend: gateway.BackendNone}, err
	}
	return s.commit(ctx, op, next), nil
}

// GenerateShareID publishes the project under a fresh share id, replacing
// any previous one. A remote collision triggers a new id.
func (s *Store) GenerateShareID(ctx context.Context) (string, gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	if s.current() == nil {
		return "", gateway.WriteOutcome{Backend: gateway.BackendNone}, domain.ErrNoProject
	}

	var (
		id  string
		out gateway.WriteOutcome
	)
	for attempt := 0; attempt < shareIDAttempts; attempt++ {
		var err error
		id, err = s.persist.GenerateShareID()
		if err != nil {
			return "", gateway.WriteOutcome{Backend: gateway.BackendNone}, err
		}
		out, err = s.updateProjectLocked(ctx, "generate_share_id", domain.ProjectPatch{ShareID: &id})
		if err != nil {
			return "", out, err
		}
		if !isShareConflict(out) {
			break
		}
	}
	return id, out, nil
}

// LoadProjectByShareID adopts the project published under shareID and
// subscribes to it. Unknown ids return nil and leave the state alone.
func (s *Store) LoadProjectByShareID(ctx context.Context, shareID string) *domain.Project {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	p := s.persist.LoadProjectByShareID(ctx, shareID)
	if p == nil {
		return nil
	}
	s.unsubscribeLocked()
	s.shareView = true
	s.setProjectState(p)
	s.subscribeLocked(ctx)
	return p.Clone()
}

// AddTask appends a task built from form. Form fields are trusted apart from
// the enums, which the remote schema constrains.
func (s *Store) AddTask(ctx context.Context, form domain.TaskFormData) (*domain.Task, gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	none := gateway.WriteOutcome{Backend: gateway.BackendNone}
	cur := s.current()
	if cur == nil {
		return nil, none, domain.ErrNoProject
	}
	if !form.Priority.Valid() {
		return nil, none, domain.ErrInvalidPriority
	}
	if !form.Category.Valid() {
		return nil, none, domain.ErrInvalidCategory
	}

	now := s.clock()
	task := domain.Task{
		ID:          s.newID(),
		Title:       form.Title,
		Description: form.Description,
		Deadline:    domain.StoredTime(form.Deadline),
		Progress:    0,
		Priority:    form.Priority,
		Category:    form.Category,
		Status:      domain.StatusNotStarted,
		Notes:       form.Notes,
		ImageURL:    form.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	next := cur.Clone()
	next.Tasks = append(next.Tasks, task)
	next.UpdatedAt = now
	return &task, s.commit(ctx, "add_task", next), nil
}

// UpdateTask merges patch into the task with id. Unknown ids are a no-op.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	return s.updateTaskLocked(ctx, "update_task", id, patch)
}

func (s *Store) updateTaskLocked(ctx context.Context, op, id string, patch domain.TaskPatch) (gateway.WriteOutcome, error) {
	none := gateway.WriteOutcome{Backend: gateway.BackendNone}
	cur := s.current()
	if cur == nil {
		return none, domain.ErrNoProject
	}
	idx := cur.TaskIndex(id)
	if idx < 0 {
		return none, nil
	}

	now := s.clock()
	task, err := patch.Apply(cur.Tasks[idx], now)
	if err != nil {
		return none, err
	}
	next := cur.Clone()
	next.Tasks[idx] = task
	next.UpdatedAt = now
	return s.commit(ctx, op, next), nil
}

// DeleteTask removes the task with id. Unknown ids are a no-op.
func (s *Store) DeleteTask(ctx context.Context, id string) (gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	none := gateway.WriteOutcome{Backend: gateway.BackendNone}
	cur := s.current()
	if cur == nil {
		return none, domain.ErrNoProject
	}
	idx := cur.TaskIndex(id)
	if idx < 0 {
		return none, nil
	}

	next := cur.Clone()
	next.Tasks = append(next.Tasks[:idx], next.Tasks[idx+1:]...)
	next.UpdatedAt = s.clock()
	return s.commit(ctx, "delete_task", next), nil
}

// UpdateTaskProgress clamps v into [0,100] and derives the status from it.
func (s *Store) UpdateTaskProgress(ctx context.Context, id string, v int) (gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	progress := domain.ClampProgress(v)
	status := domain.StatusForProgress(progress)
	return s.updateTaskLocked(ctx, "update_task_progress", id, domain.TaskPatch{Progress: &progress, Status: &status})
}

// UpdateTaskStatus sets status and the fixed progress that goes with it.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status domain.Status) (gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	progress, err := domain.ProgressForStatus(status)
	if err != nil {
		return gateway.WriteOutcome{Backend: gateway.BackendNone}, err
	}
	return s.updateTaskLocked(ctx, "update_task_status", id, domain.TaskPatch{Progress: &progress, Status: &status})
}

// LoadFromDatabase adopts the stored project, subscribes to it and restores
// the saved settings.
func (s *Store) LoadFromDatabase(ctx context.Context) gateway.Source {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	return s.loadFromDatabaseLocked(ctx)
}

func (s *Store) loadFromDatabaseLocked(ctx context.Context) gateway.Source {
	p, src := s.persist.LoadProject(ctx)
	if p != nil {
		s.unsubscribeLocked()
		s.shareView = false
		s.setProjectState(p)
		s.subscribeLocked(ctx)
	}

	if settings, ok := s.persist.LoadSettings(ctx); ok {
		s.update(func(st *State) {
			if settings.Notifications != nil {
				st.Notifications = *settings.Notifications
			}
			if settings.Theme.Valid() {
				st.Theme = settings.Theme
			}
		})
	}
	return src
}

// MigrateFromLocalStorage copies the cached project up to the remote store
// and reloads.
func (s *Store) MigrateFromLocalStorage(ctx context.Context) gateway.WriteOutcome {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	out := s.persist.MigrateFromLocalStorage(ctx)
	s.logOutcome(ctx, "migrate", out)
	s.loadFromDatabaseLocked(ctx)
	return out
}

// ExportProject renders the stored project.
func (s *Store) ExportProject(ctx context.Context, f exchange.Format) ([]byte, error) {
	return s.persist.ExportProject(ctx, f)
}

// ImportProject replaces the current project wholesale with the parsed
// document. Malformed input leaves the state untouched.
func (s *Store) ImportProject(ctx context.Context, data []byte, f exchange.Format) (*domain.Project, gateway.WriteOutcome, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	p, out, err := s.persist.ImportProject(ctx, data, f)
	if err != nil {
		s.log.FromContext(ctx).LogError("import_project", err)
		return nil, out, err
	}
	s.logOutcome(ctx, "import_project", out)

	s.unsubscribeLocked()
	s.shareView = false
	s.setProjectState(p)
	s.subscribeLocked(ctx)
	return p.Clone(), out, nil
}

// ClearAll cancels the subscription, wipes both backends and resets the
// state to DefaultState.
func (s *Store) ClearAll(ctx context.Context) gateway.WriteOutcome {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.unsubscribeLocked()
	out := s.persist.ClearAll(ctx)
	s.logOutcome(ctx, "clear_all", out)

	s.shareView = false
	s.update(func(st *State) { *st = DefaultState() })
	return out
}

// SubscribeToProject opens the live subscription for the current project.
// It reports false when there is no project, a subscription is already
// active, or no change feed is available.
func (s *Store) SubscribeToProject(ctx context.Context) bool {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	return s.subscribeLocked(ctx)
}

// UnsubscribeFromProject cancels the live subscription, if any.
func (s *Store) UnsubscribeFromProject() {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.unsubscribeLocked()
}

func (s *Store) subscribeLocked(ctx context.Context) bool {
	s.mu.RLock()
	p, active := s.state.Project, s.sub != nil
	s.mu.RUnlock()
	if p == nil || active {
		return false
	}

	var sub *realtime.Subscription
	if s.shareView {
		sub = s.persist.SubscribeToShare(ctx, p, s.applyRemote)
	} else {
		sub = s.persist.SubscribeToProject(ctx, p.ID, s.applyRemote)
	}
	if sub == nil {
		return false
	}
	s.update(func(*State) { s.sub = sub })
	return true
}

func (s *Store) unsubscribeLocked() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		// Cancel waits for an in-flight applyRemote, which takes mu.
		sub.Cancel()
		s.update(func(*State) {})
	}
}

// applyRemote adopts a project refreshed by the change feed.
func (s *Store) applyRemote(p *domain.Project) {
	s.setProjectState(p)
}

func isShareConflict(out gateway.WriteOutcome) bool {
	return out.RemoteErr != nil && errors.Is(out.RemoteErr, domain.ErrShareIDConflict)
}
