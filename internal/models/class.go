package models

// Class is a display label for a timetable row.
type Class struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
