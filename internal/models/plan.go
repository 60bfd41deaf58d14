package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Plan is a committed weekly timetable covering every class of a school.
type Plan struct {
	ID        int64          `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	SlotsMeta types.JSONText `db:"slots_meta" json:"slotsMeta,omitempty"`
	Slots     []PlanSlot     `db:"-" json:"slots"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// PlanSlot is one lesson of a plan in wire format. Period is 1-based.
type PlanSlot struct {
	PlanID    int64  `db:"plan_id" json:"-"`
	ClassID   int64  `db:"class_id" json:"classId" validate:"required"`
	Day       string `db:"day" json:"day" validate:"required,oneof=Mon Tue Wed Thu Fri"`
	Period    int    `db:"period" json:"period" validate:"required,min=1"`
	SubjectID int64  `db:"subject_id" json:"subjectId" validate:"required"`
	TeacherID int64  `db:"teacher_id" json:"teacherId" validate:"required"`
	RoomID    *int64 `db:"room_id" json:"roomId"`
}
