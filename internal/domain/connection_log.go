package domain

import "time"

// ConnectionLog is an append-only audit row per transport connection.
// The core writes it best-effort and never reads it back for decisions.
type ConnectionLog struct {
	ID               uint       `gorm:"primaryKey"`
	UserID           uint       `gorm:"index"`
	ConnectionID     string     `gorm:"type:varchar(64);index;not null"`
	IPAddress        string     `gorm:"type:varchar(64)"`
	UserAgent        string     `gorm:"type:varchar(255)"`
	ConnectedAt      time.Time  `gorm:"not null"`
	DisconnectedAt   *time.Time
	DisconnectReason string `gorm:"type:varchar(255)"`
}
