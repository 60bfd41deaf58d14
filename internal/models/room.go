package models

// Room is a display label for an optional lesson room.
type Room struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// LabelCatalog bundles the display names sent alongside an editing session.
// None of it takes part in validation.
type LabelCatalog struct {
	Classes  []Class   `json:"classes"`
	Teachers []Teacher `json:"teachers"`
	Subjects []Subject `json:"subjects"`
	Rooms    []Room    `json:"rooms"`
}
