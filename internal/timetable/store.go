package timetable

import "sort"

type teacherSlot struct {
	Day       Day
	Period    int
	TeacherID int64
}

// Store maps grid positions to the assignment occupying them. It performs no
// validation; writes are package-private and only issued after the engine has
// accepted a move.
type Store struct {
	cells     map[Position]Assignment
	byTeacher map[teacherSlot]map[Position]struct{}
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		cells:     make(map[Position]Assignment),
		byTeacher: make(map[teacherSlot]map[Position]struct{}),
	}
}

func newStoreFrom(assignments []Assignment) *Store {
	s := NewStore()
	for _, a := range assignments {
		s.set(a.Position, a)
	}
	return s
}

// Get returns the assignment at pos.
func (s *Store) Get(pos Position) (Assignment, bool) {
	a, ok := s.cells[pos]
	return a, ok
}

// Len returns the number of occupied positions.
func (s *Store) Len() int {
	return len(s.cells)
}

// Entries returns every assignment ordered by day, period, then class.
func (s *Store) Entries() []Assignment {
	out := make([]Assignment, 0, len(s.cells))
	for _, a := range s.cells {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Position.less(out[j].Position)
	})
	return out
}

// TeacherAt lists the assignments a teacher holds at day/period.
func (s *Store) TeacherAt(day Day, period int, teacherID int64) []Assignment {
	return s.teacherAt(teacherSlot{Day: day, Period: period, TeacherID: teacherID})
}

func (s *Store) teacherAt(key teacherSlot) []Assignment {
	positions := s.byTeacher[key]
	if len(positions) == 0 {
		return nil
	}
	out := make([]Assignment, 0, len(positions))
	for pos := range positions {
		out = append(out, s.cells[pos])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ClassID < out[j].ClassID
	})
	return out
}

// Equal reports whether both stores hold the same assignments.
func (s *Store) Equal(other *Store) bool {
	if len(s.cells) != len(other.cells) {
		return false
	}
	for pos, a := range s.cells {
		b, ok := other.cells[pos]
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s *Store) Clone() *Store {
	return newStoreFrom(s.Entries())
}

// set writes a at pos unconditionally, replacing any previous occupant.
func (s *Store) set(pos Position, a Assignment) {
	s.clear(pos)
	a.Position = pos
	s.cells[pos] = a
	key := teacherSlot{Day: pos.Day, Period: pos.Period, TeacherID: a.TeacherID}
	bucket, ok := s.byTeacher[key]
	if !ok {
		bucket = make(map[Position]struct{})
		s.byTeacher[key] = bucket
	}
	bucket[pos] = struct{}{}
}

// clear empties pos and reports whether it held an assignment.
func (s *Store) clear(pos Position) bool {
	prev, ok := s.cells[pos]
	if !ok {
		return false
	}
	delete(s.cells, pos)
	key := teacherSlot{Day: pos.Day, Period: pos.Period, TeacherID: prev.TeacherID}
	if bucket, ok := s.byTeacher[key]; ok {
		delete(bucket, pos)
		if len(bucket) == 0 {
			delete(s.byTeacher, key)
		}
	}
	return true
}
