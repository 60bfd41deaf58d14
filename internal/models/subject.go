package models

// Subject is the catalogue entry consulted by the slot editor. AliasSubjectID
// points at the subject this one counts as when checking teacher conflicts.
type Subject struct {
	ID             int64  `db:"id" json:"id"`
	Code           string `db:"code" json:"code"`
	Name           string `db:"name" json:"name"`
	AliasSubjectID *int64 `db:"alias_subject_id" json:"aliasSubjectId,omitempty"`
	IsBandSubject  bool   `db:"is_band_subject" json:"isBandSubject"`
}
