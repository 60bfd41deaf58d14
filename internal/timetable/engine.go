package timetable

import (
	"fmt"

	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

// RefKind distinguishes the two places a lesson can be dragged from or to.
type RefKind string

const (
	RefGrid    RefKind = "grid"
	RefStaging RefKind = "staging"
)

// Ref points at either a grid cell or a staging item.
type Ref struct {
	Kind      RefKind
	Position  Position
	StagingID int
}

// GridRef references a grid cell.
func GridRef(pos Position) Ref {
	return Ref{Kind: RefGrid, Position: pos}
}

// StagingRef references a parked staging item.
func StagingRef(id int) Ref {
	return Ref{Kind: RefStaging, StagingID: id}
}

// PendingMove is one drag-and-drop gesture.
type PendingMove struct {
	From Ref
	To   Ref
}

// Engine validates and executes moves against a store and staging area.
// A rejected move never mutates either of them.
type Engine struct {
	catalog *Catalog
	store   *Store
	staging *Staging
}

// NewEngine binds an engine to the session state it mutates.
func NewEngine(catalog *Catalog, store *Store, staging *Staging) *Engine {
	return &Engine{catalog: catalog, store: store, staging: staging}
}

// Apply dispatches a gesture to the matching move operation.
func (e *Engine) Apply(move PendingMove) error {
	switch {
	case move.From.Kind == RefGrid && move.To.Kind == RefGrid:
		return e.MoveFromGrid(move.From.Position, move.To.Position)
	case move.From.Kind == RefGrid && move.To.Kind == RefStaging:
		_, err := e.Detach(move.From.Position)
		return err
	case move.From.Kind == RefStaging && move.To.Kind == RefGrid:
		return e.Place(move.From.StagingID, move.To.Position)
	default:
		return appErrors.Clone(appErrors.ErrInvalidMove, fmt.Sprintf("cannot move from %s to %s", move.From.Kind, move.To.Kind))
	}
}

// MoveFromGrid relocates the lesson at src, together with its whole band
// group, to dst's day and period. Each member stays in its own class.
func (e *Engine) MoveFromGrid(src, dst Position) error {
	members, _, err := e.unitAt(src)
	if err != nil {
		return err
	}
	if dst.ClassID != src.ClassID {
		return appErrors.Clone(appErrors.ErrClassMismatch, fmt.Sprintf("lesson of class %d cannot be dropped on class %d", src.ClassID, dst.ClassID))
	}
	sources := positionSet(members)
	if err := e.check(members, dst.Day, dst.Period, sources); err != nil {
		return err
	}
	e.relocate(members, dst.Day, dst.Period, true)
	return nil
}

// Detach moves the lesson at src, or its band group, into staging.
func (e *Engine) Detach(src Position) (StagingItem, error) {
	members, kind, err := e.unitAt(src)
	if err != nil {
		return StagingItem{}, err
	}
	for _, m := range members {
		e.store.clear(m.Position)
	}
	return e.staging.add(kind, members), nil
}

// Place drops a staging item onto dst's day and period. dst must be a cell of
// one of the item's classes.
func (e *Engine) Place(itemID int, dst Position) error {
	item, ok := e.staging.Get(itemID)
	if !ok {
		return appErrors.Clone(appErrors.ErrStagingItemNotFound, fmt.Sprintf("staging item %d not found", itemID))
	}
	if !containsClass(item.Members, dst.ClassID) {
		return appErrors.Clone(appErrors.ErrClassMismatch, fmt.Sprintf("staging item %d has no lesson for class %d", itemID, dst.ClassID))
	}
	if err := e.check(item.Members, dst.Day, dst.Period, nil); err != nil {
		return err
	}
	e.relocate(item.Members, dst.Day, dst.Period, false)
	e.staging.removeByID(itemID)
	return nil
}

// Remove clears one grid cell.
func (e *Engine) Remove(pos Position) error {
	if !e.store.clear(pos) {
		return appErrors.Clone(appErrors.ErrNoSourceAssignment, fmt.Sprintf("nothing to remove at %s", pos))
	}
	return nil
}

// unitAt resolves the moving unit rooted at src: the single lesson, or every
// member of its band group.
func (e *Engine) unitAt(src Position) ([]Assignment, StagingKind, error) {
	root, ok := e.store.Get(src)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNoSourceAssignment, fmt.Sprintf("no lesson at %s", src))
	}
	if !e.catalog.IsBand(root.SubjectID) {
		return []Assignment{root}, StagingSingle, nil
	}
	var members []Assignment
	for _, a := range e.store.TeacherAt(src.Day, src.Period, root.TeacherID) {
		if a.SubjectID == root.SubjectID {
			members = append(members, a)
		}
	}
	return members, StagingBand, nil
}

// check runs the occupancy and teacher conflict rules for moving members to
// day/period. Positions in exclude are the unit's own sources.
func (e *Engine) check(members []Assignment, day Day, period int, exclude map[Position]struct{}) error {
	for _, m := range members {
		dst := m.Position.At(day, period)
		if occupant, ok := e.store.Get(dst); ok {
			if _, own := exclude[occupant.Position]; !own {
				return appErrors.Clone(appErrors.ErrDestinationOccupied, fmt.Sprintf("%s is already occupied", dst))
			}
		}
	}

	canonical := make(map[int64]int64, len(members))
	for _, m := range members {
		c := e.catalog.Resolve(m.SubjectID)
		if prev, seen := canonical[m.TeacherID]; seen && prev != c {
			return appErrors.Clone(appErrors.ErrTeacherDoubleBooked, fmt.Sprintf("teacher %d would teach two subjects in one move", m.TeacherID))
		}
		canonical[m.TeacherID] = c
	}

	for teacherID, c := range canonical {
		for _, other := range e.store.TeacherAt(day, period, teacherID) {
			if _, own := exclude[other.Position]; own {
				continue
			}
			if e.catalog.Resolve(other.SubjectID) != c {
				return appErrors.Clone(appErrors.ErrTeacherDoubleBooked, fmt.Sprintf("teacher %d already teaches at %s", teacherID, other.Position))
			}
		}
	}
	return nil
}

func (e *Engine) relocate(members []Assignment, day Day, period int, fromGrid bool) {
	if fromGrid {
		for _, m := range members {
			e.store.clear(m.Position)
		}
	}
	for _, m := range members {
		moved := m.MovedTo(day, period)
		e.store.set(moved.Position, moved)
	}
}

func positionSet(members []Assignment) map[Position]struct{} {
	set := make(map[Position]struct{}, len(members))
	for _, m := range members {
		set[m.Position] = struct{}{}
	}
	return set
}

func containsClass(members []Assignment, classID int64) bool {
	for _, m := range members {
		if m.ClassID == classID {
			return true
		}
	}
	return false
}
