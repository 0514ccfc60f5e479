package domain

import "time"

// DefaultLanguage is stored when a code update does not name a language.
const DefaultLanguage = "javascript"

// CodeDocument is the authoritative editor state of a room. There is at most one per RoomID,
// maintained by upsert; concurrent writers resolve by last-writer-wins.
type CodeDocument struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    string    `gorm:"uniqueIndex;size:191;not null" json:"roomId"`
	Content   string    `gorm:"type:longtext;not null" json:"content"`
	Language  string    `gorm:"size:64;not null" json:"language"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CodeUpdate is a pending write to a room's CodeDocument. Nil fields are left untouched on an
// existing document (and take their defaults on insert).
type CodeUpdate struct {
	RoomID   string  `json:"roomId"`
	Content  *string `json:"content,omitempty"`
	Language *string `json:"language,omitempty"`
}

// Merge overlays next onto u, field by field. Used to coalesce queued writes for one room
// without losing a field that only the older update carried.
func (u CodeUpdate) Merge(next CodeUpdate) CodeUpdate {
	merged := u
	if next.Content != nil {
		merged.Content = next.Content
	}
	if next.Language != nil {
		merged.Language = next.Language
	}
	return merged
}

// NewContentUpdate builds an update that sets content and language. An empty language falls
// back to DefaultLanguage.
func NewContentUpdate(roomID, content, language string) CodeUpdate {
	if language == "" {
		language = DefaultLanguage
	}
	return CodeUpdate{RoomID: roomID, Content: &content, Language: &language}
}

// WithUpdate returns the document as it will read once update is stored. A nil document
// is treated as a fresh insert.
func (d *CodeDocument) WithUpdate(update CodeUpdate) *CodeDocument {
	next := CodeDocument{RoomID: update.RoomID, Language: DefaultLanguage}
	if d != nil {
		next = *d
	}
	if update.Content != nil {
		next.Content = *update.Content
	}
	if update.Language != nil {
		next.Language = *update.Language
	}
	return &next
}
