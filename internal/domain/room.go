package domain

import "time"

// Room represents a named collaboration session. Records are created lazily on first join
// and never deleted.
type Room struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    string    `gorm:"uniqueIndex;size:191;not null" json:"roomId"` // client-chosen room name, unique
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
