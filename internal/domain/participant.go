package domain

import "time"

// ParticipantStatus is the live state of a membership.
type ParticipantStatus string

const (
	ParticipantConnected    ParticipantStatus = "connected"
	ParticipantDisconnected ParticipantStatus = "disconnected"
	ParticipantReconnecting ParticipantStatus = "reconnecting"
)

// Participant is a user's membership record in one session. Rows are never
// deleted; leaving sets LeftAt. At most one row per (session, user) may have
// LeftAt unset.
type Participant struct {
	ID             uint              `gorm:"primaryKey" json:"-"`
	SessionID      uint              `gorm:"index;not null" json:"-"`
	UserID         uint              `gorm:"index;not null" json:"userId"`
	ConnectionID   string            `gorm:"type:varchar(64);index" json:"connectionId"`
	JoinedAt       time.Time         `gorm:"not null" json:"joinedAt"`
	LeftAt         *time.Time        `json:"leftAt,omitempty"`
	Status         ParticipantStatus `gorm:"type:varchar(16);not null" json:"status"`
	IsMuted        bool              `gorm:"default:false" json:"isMuted"`
	IsVideoEnabled bool              `gorm:"default:true" json:"isVideoEnabled"`
}

// Active reports whether the membership is still open.
func (p *Participant) Active() bool { return p.LeftAt == nil }
