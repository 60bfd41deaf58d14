package timetable

import "github.com/noah-isme/timetable-editor/internal/models"

// Catalog resolves subjects to their canonical ids and band flags. It is a
// read-only snapshot taken when a session starts.
type Catalog struct {
	canonical map[int64]int64
	band      map[int64]bool
}

// NewCatalog indexes the subject catalogue.
func NewCatalog(subjects []models.Subject) *Catalog {
	c := &Catalog{
		canonical: make(map[int64]int64, len(subjects)),
		band:      make(map[int64]bool, len(subjects)),
	}
	for _, subject := range subjects {
		if subject.AliasSubjectID != nil {
			c.canonical[subject.ID] = *subject.AliasSubjectID
		}
		if subject.IsBandSubject {
			c.band[subject.ID] = true
		}
	}
	return c
}

// Resolve returns the alias target of subjectID, or subjectID itself.
// Aliases are followed one link only.
func (c *Catalog) Resolve(subjectID int64) int64 {
	if c != nil {
		if alias, ok := c.canonical[subjectID]; ok {
			return alias
		}
	}
	return subjectID
}

// IsBand reports whether subjectID is taught in parallel to several classes.
func (c *Catalog) IsBand(subjectID int64) bool {
	return c != nil && c.band[subjectID]
}
