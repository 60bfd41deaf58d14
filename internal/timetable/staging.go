package timetable

// StagingKind tells whether a parked item holds one lesson or a band group.
type StagingKind string

const (
	StagingSingle StagingKind = "single"
	StagingBand   StagingKind = "band"
)

// StagingItem is a detached lesson, or band group, waiting for a destination.
type StagingItem struct {
	ID        int          `json:"id"`
	Kind      StagingKind  `json:"kind"`
	SubjectID int64        `json:"subjectId"`
	TeacherID int64        `json:"teacherId"`
	Members   []Assignment `json:"members"`
}

// Staging is the unordered parking area of a session. Items keep insertion
// order for display; ids are never reused within a session.
type Staging struct {
	items  []StagingItem
	nextID int
}

// NewStaging builds an empty staging area.
func NewStaging() *Staging {
	return &Staging{nextID: 1}
}

// Len returns the number of parked items.
func (s *Staging) Len() int {
	return len(s.items)
}

// Items returns a copy of the parked items.
func (s *Staging) Items() []StagingItem {
	out := make([]StagingItem, len(s.items))
	for i, item := range s.items {
		out[i] = item
		out[i].Members = append([]Assignment(nil), item.Members...)
	}
	return out
}

// Get looks an item up by id.
func (s *Staging) Get(id int) (StagingItem, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return StagingItem{}, false
}

func (s *Staging) add(kind StagingKind, members []Assignment) StagingItem {
	item := StagingItem{
		ID:        s.nextID,
		Kind:      kind,
		SubjectID: members[0].SubjectID,
		TeacherID: members[0].TeacherID,
		Members:   append([]Assignment(nil), members...),
	}
	s.nextID++
	s.items = append(s.items, item)
	return item
}

func (s *Staging) removeByID(id int) (StagingItem, bool) {
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return item, true
		}
	}
	return StagingItem{}, false
}

func (s *Staging) clear() {
	s.items = nil
}
