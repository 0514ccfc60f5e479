package domain

import "time"

// Snapshot is an immutable copy of a room's code at a point in time. Append-only.
type Snapshot struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`           // uuid
	RoomID    string    `gorm:"index;size:191;not null" json:"roomId"`  // owning room
	Content   string    `gorm:"type:longtext;not null" json:"content"`  // code at snapshot time
	Author    string    `gorm:"size:191;not null" json:"userName"`      // display name of the requester
	CreatedAt time.Time `gorm:"index;not null" json:"createdAt"`
}
