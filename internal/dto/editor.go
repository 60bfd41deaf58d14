package dto

import (
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-editor/internal/models"
	"github.com/noah-isme/timetable-editor/internal/timetable"
)

// EditorRef addresses either a grid cell by key or a staging item by id.
// StagingID is only meaningful on a source ref; a staging target always
// creates a new item.
type EditorRef struct {
	Kind      string `json:"kind" validate:"required,oneof=grid staging"`
	Key       string `json:"key,omitempty" validate:"required_if=Kind grid"`
	StagingID int    `json:"stagingId,omitempty" validate:"gte=0"`
}

// MoveRequest is one drag-and-drop gesture.
type MoveRequest struct {
	From EditorRef `json:"from"`
	To   EditorRef `json:"to"`
}

// EditorCell is a placed lesson. Period is zero-based, matching Key.
type EditorCell struct {
	Key timetable.Key `json:"key"`
	timetable.Assignment
}

// EditorStagingItem is a parked lesson or band group.
type EditorStagingItem struct {
	ID        int          `json:"id"`
	Kind      string       `json:"kind"`
	SubjectID int64        `json:"subjectId"`
	TeacherID int64        `json:"teacherId"`
	Members   []EditorCell `json:"members"`
}

// EditorSessionView is the rendered state of an editing session.
type EditorSessionView struct {
	SessionID     string               `json:"sessionId"`
	PlanID        int64                `json:"planId"`
	PlanName      string               `json:"planName"`
	State         string               `json:"state"`
	Dirty         bool                 `json:"dirty"`
	Saving        bool                 `json:"saving"`
	Revision      int                  `json:"revision"`
	PlanUpdatedAt time.Time            `json:"planUpdatedAt"`
	ExpiresAt     time.Time            `json:"expiresAt"`
	SlotsMeta     types.JSONText       `json:"slotsMeta,omitempty"`
	Cells         []EditorCell         `json:"cells"`
	Staging       []EditorStagingItem  `json:"staging"`
	Labels        *models.LabelCatalog `json:"labels,omitempty"`
}
