package timetable

import (
	"context"
	"fmt"

	"github.com/noah-isme/timetable-editor/internal/models"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateIdle    State = "idle"
	StateEditing State = "editing"
)

// PlanSaver replaces the full slot set of a plan and returns the persisted
// plan. It is not incremental.
type PlanSaver interface {
	ReplacePlanSlots(ctx context.Context, planID int64, slots []models.PlanSlot) (*models.Plan, error)
}

// RenderHook is told about every mutating operation, accepted or not.
type RenderHook func(snapshot Snapshot, err error)

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	State    State         `json:"state"`
	PlanID   int64         `json:"planId"`
	Dirty    bool          `json:"dirty"`
	Saving   bool          `json:"saving"`
	Revision int           `json:"revision"`
	Slots    []Assignment  `json:"slots"`
	Staging  []StagingItem `json:"staging"`
}

// SaveTicket identifies one outstanding save round trip.
type SaveTicket struct {
	PlanID     int64
	Slots      []models.PlanSlot
	generation int
	revision   int
}

// Session is one editing pass over one plan. It has a single mutator and
// performs no locking.
type Session struct {
	catalog  *Catalog
	state    State
	planID   int64
	plan     *models.Plan
	original []Assignment
	store    *Store
	staging  *Staging
	engine   *Engine
	dirty    bool
	hook     RenderHook

	// generation changes on start, reset and cancel so late save responses
	// can be recognised; revision changes on every accepted mutation.
	generation int
	revision   int
	inFlight   *SaveTicket
}

// NewSession builds an idle session bound to a subject catalogue snapshot.
func NewSession(catalog *Catalog) *Session {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	return &Session{catalog: catalog, state: StateIdle}
}

// OnRender installs the render hook.
func (s *Session) OnRender(hook RenderHook) {
	s.hook = hook
}

// State returns the lifecycle phase.
func (s *Session) State() State {
	return s.state
}

// Dirty reports whether the session differs from its last load or save.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Plan returns the plan the session was started or last saved with.
func (s *Session) Plan() *models.Plan {
	return s.plan
}

// Store exposes the slot store for reading.
func (s *Session) Store() *Store {
	return s.store
}

// Staging exposes the staging area for reading.
func (s *Session) Staging() *Staging {
	return s.staging
}

// Start loads plan into a fresh store. Wire periods are 1-based.
func (s *Session) Start(plan models.Plan) error {
	original, err := assignmentsFromPlan(plan)
	if err != nil {
		return s.fail(err)
	}
	s.generation++
	s.planID = plan.ID
	s.seed(&plan, original)
	s.state = StateEditing
	s.render(nil)
	return nil
}

// Reset rebuilds the store from the snapshot taken at start or last save.
func (s *Session) Reset() error {
	if err := s.requireEditing(); err != nil {
		return s.fail(err)
	}
	s.generation++
	s.seed(s.plan, s.original)
	s.render(nil)
	return nil
}

// Cancel discards all in-memory state without persisting.
func (s *Session) Cancel() error {
	if err := s.requireEditing(); err != nil {
		return s.fail(err)
	}
	s.generation++
	s.state = StateIdle
	s.planID = 0
	s.plan = nil
	s.original = nil
	s.store = nil
	s.staging = nil
	s.engine = nil
	s.dirty = false
	s.render(nil)
	return nil
}

// Apply executes a drag-and-drop gesture.
func (s *Session) Apply(move PendingMove) error {
	return s.mutate(func() error { return s.engine.Apply(move) })
}

// MoveFromGrid moves the lesson at src, and its band group, to dst.
func (s *Session) MoveFromGrid(src, dst Position) error {
	return s.mutate(func() error { return s.engine.MoveFromGrid(src, dst) })
}

// Detach parks the lesson at src in staging.
func (s *Session) Detach(src Position) (StagingItem, error) {
	var item StagingItem
	err := s.mutate(func() error {
		var err error
		item, err = s.engine.Detach(src)
		return err
	})
	return item, err
}

// Place drops a staging item onto dst.
func (s *Session) Place(itemID int, dst Position) error {
	return s.mutate(func() error { return s.engine.Place(itemID, dst) })
}

// Remove clears the lesson at pos.
func (s *Session) Remove(pos Position) error {
	return s.mutate(func() error { return s.engine.Remove(pos) })
}

// Save persists the store through saver. The staging area must be empty.
func (s *Session) Save(ctx context.Context, saver PlanSaver) error {
	ticket, err := s.BeginSave()
	if err != nil {
		return err
	}
	plan, err := saver.ReplacePlanSlots(ctx, ticket.PlanID, ticket.Slots)
	if err != nil {
		return s.AbortSave(ticket, err)
	}
	return s.CompleteSave(ticket, plan)
}

// BeginSave validates the save precondition and captures the flattened slot
// list. Only one save may be outstanding, including one issued before a reset,
// cancel or restart whose response has not come back yet.
func (s *Session) BeginSave() (*SaveTicket, error) {
	if err := s.requireEditing(); err != nil {
		return nil, err
	}
	if s.inFlight != nil {
		return nil, appErrors.Clone(appErrors.ErrSaveInProgress, "")
	}
	if n := s.staging.Len(); n > 0 {
		return nil, appErrors.Clone(appErrors.ErrPendingStagedItems, fmt.Sprintf("%d staged item(s) must be placed before saving", n))
	}
	ticket := &SaveTicket{
		PlanID:     s.planID,
		Slots:      s.Flatten(),
		generation: s.generation,
		revision:   s.revision,
	}
	s.inFlight = ticket
	return ticket, nil
}

// CompleteSave applies the server's authoritative echo. A response for a
// session that was reset, cancelled or restarted meanwhile is dropped
// silently. When moves happened during the round trip only the snapshot is
// reseeded; the local store is kept and remains dirty.
func (s *Session) CompleteSave(ticket *SaveTicket, plan *models.Plan) error {
	stale := !s.owns(ticket)
	s.release(ticket)
	if stale {
		return nil
	}
	if plan == nil {
		return s.fail(appErrors.Clone(appErrors.ErrPersistenceFailure, "empty response from plan store"))
	}
	saved, err := assignmentsFromPlan(*plan)
	if err != nil {
		return s.fail(appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "invalid response from plan store"))
	}
	if s.revision != ticket.revision {
		s.plan = plan
		s.original = saved
		s.render(nil)
		return nil
	}
	s.seed(plan, saved)
	s.render(nil)
	return nil
}

// AbortSave releases the ticket after a failed round trip. Local state is
// left as it was. A failure for a stale ticket is dropped like its success.
func (s *Session) AbortSave(ticket *SaveTicket, cause error) error {
	stale := !s.owns(ticket)
	s.release(ticket)
	if stale {
		return nil
	}
	if appErrors.ErrPersistenceFailure.Is(appErrors.FromError(cause)) {
		return s.fail(cause)
	}
	return s.fail(appErrors.Wrap(cause, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, appErrors.ErrPersistenceFailure.Message))
}

// Stale reports whether ticket no longer belongs to the current session
// generation.
func (s *Session) Stale(ticket *SaveTicket) bool {
	return !s.owns(ticket)
}

// Flatten returns the store as 1-based wire slots ordered by day, period,
// then class.
func (s *Session) Flatten() []models.PlanSlot {
	if s.store == nil {
		return nil
	}
	entries := s.store.Entries()
	slots := make([]models.PlanSlot, 0, len(entries))
	for _, a := range entries {
		slots = append(slots, a.PlanSlot(s.planID))
	}
	return slots
}

// Snapshot captures the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:    s.state,
		PlanID:   s.planID,
		Dirty:    s.dirty,
		Saving:   s.inFlight != nil,
		Revision: s.revision,
		Slots:    []Assignment{},
		Staging:  []StagingItem{},
	}
	if s.store != nil {
		snap.Slots = s.store.Entries()
	}
	if s.staging != nil {
		snap.Staging = s.staging.Items()
	}
	return snap
}

func (s *Session) release(ticket *SaveTicket) {
	if ticket != nil && s.inFlight == ticket {
		s.inFlight = nil
	}
}

func (s *Session) owns(ticket *SaveTicket) bool {
	return ticket != nil && s.inFlight == ticket && ticket.generation == s.generation
}

func (s *Session) seed(plan *models.Plan, assignments []Assignment) {
	s.plan = plan
	s.original = assignments
	s.store = newStoreFrom(assignments)
	s.staging = NewStaging()
	s.engine = NewEngine(s.catalog, s.store, s.staging)
	s.dirty = false
}

func (s *Session) mutate(op func() error) error {
	if err := s.requireEditing(); err != nil {
		return s.fail(err)
	}
	if err := op(); err != nil {
		return s.fail(err)
	}
	s.dirty = true
	s.revision++
	s.render(nil)
	return nil
}

func (s *Session) requireEditing() error {
	if s.state != StateEditing {
		return appErrors.Clone(appErrors.ErrSessionNotEditing, "")
	}
	return nil
}

func (s *Session) fail(err error) error {
	s.render(err)
	return err
}

func (s *Session) render(err error) {
	if s.hook != nil {
		s.hook(s.Snapshot(), err)
	}
}

func assignmentsFromPlan(plan models.Plan) ([]Assignment, error) {
	out := make([]Assignment, 0, len(plan.Slots))
	seen := make(map[Position]struct{}, len(plan.Slots))
	for _, slot := range plan.Slots {
		a, err := FromPlanSlot(slot)
		if err != nil {
			return nil, err
		}
		if a.Period < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %s has a non-positive period", a.Position))
		}
		if _, dup := seen[a.Position]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("plan %d holds two lessons at %s", plan.ID, a.Position))
		}
		seen[a.Position] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
