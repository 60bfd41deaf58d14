package models

// Teacher is a display label for the teacher of an assignment.
type Teacher struct {
	ID        int64  `db:"id" json:"id"`
	FullName  string `db:"full_name" json:"fullName"`
	ShortName string `db:"short_name" json:"shortName"`
}
