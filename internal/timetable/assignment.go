package timetable

import "github.com/noah-isme/timetable-editor/internal/models"

// Assignment binds a subject, teacher and optional room to one grid cell.
type Assignment struct {
	Position
	SubjectID int64  `json:"subjectId"`
	TeacherID int64  `json:"teacherId"`
	RoomID    *int64 `json:"roomId"`
}

// MovedTo returns a copy relocated to day/period. Subject, teacher, room and
// class are unchanged.
func (a Assignment) MovedTo(day Day, period int) Assignment {
	moved := a
	moved.Position = a.Position.At(day, period)
	if a.RoomID != nil {
		room := *a.RoomID
		moved.RoomID = &room
	}
	return moved
}

// Equal compares assignments by value, including the room.
func (a Assignment) Equal(other Assignment) bool {
	if a.Position != other.Position || a.SubjectID != other.SubjectID || a.TeacherID != other.TeacherID {
		return false
	}
	if a.RoomID == nil || other.RoomID == nil {
		return a.RoomID == nil && other.RoomID == nil
	}
	return *a.RoomID == *other.RoomID
}

// FromPlanSlot converts a 1-based wire slot into an Assignment.
func FromPlanSlot(slot models.PlanSlot) (Assignment, error) {
	day, err := ParseDay(slot.Day)
	if err != nil {
		return Assignment{}, err
	}
	a := Assignment{
		Position:  Position{ClassID: slot.ClassID, Day: day, Period: slot.Period - 1},
		SubjectID: slot.SubjectID,
		TeacherID: slot.TeacherID,
	}
	if slot.RoomID != nil {
		room := *slot.RoomID
		a.RoomID = &room
	}
	return a, nil
}

// PlanSlot converts the assignment back to the 1-based wire shape.
func (a Assignment) PlanSlot(planID int64) models.PlanSlot {
	slot := models.PlanSlot{
		PlanID:    planID,
		ClassID:   a.ClassID,
		Day:       a.Day.String(),
		Period:    a.Period + 1,
		SubjectID: a.SubjectID,
		TeacherID: a.TeacherID,
	}
	if a.RoomID != nil {
		room := *a.RoomID
		slot.RoomID = &room
	}
	return slot
}
