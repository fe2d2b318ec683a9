package domain

import (
	"errors"
	"time"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionPaused SessionStatus = "paused"
	SessionEnded  SessionStatus = "ended"
)

// SessionType describes the media the participants intend to exchange.
// The server never touches the media itself.
type SessionType string

const (
	TypeAudioOnly   SessionType = "audio"
	TypeVideoCall   SessionType = "video"
	TypeScreenShare SessionType = "screen"
	TypeMixed       SessionType = "mixed"
)

const (
	MinParticipants = 2
	MaxParticipants = 100
	MaxNameLen      = 100
)

var (
	ErrNameEmpty       = errors.New("session name empty")
	ErrNameTooLong     = errors.New("session name too long")
	ErrCapacityInvalid = errors.New("max participants out of range")
)

// Session is a named real-time room. SessionID is the opaque external
// identifier; the numeric primary key never leaves the store.
type Session struct {
	ID              uint          `gorm:"primaryKey" json:"-"`
	SessionID       string        `gorm:"type:varchar(36);uniqueIndex;not null" json:"sessionId"`
	Name            string        `gorm:"type:varchar(100);not null" json:"name"`
	CreatorID       uint          `gorm:"index;not null" json:"creatorId"`
	MaxParticipants int           `gorm:"not null" json:"maxParticipants"`
	Status          SessionStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	Type            SessionType   `gorm:"type:varchar(16);not null" json:"type"`
	CreatedAt       time.Time     `gorm:"autoCreateTime;index" json:"createdAt"`
	EndedAt         *time.Time    `json:"endedAt,omitempty"`

	Participants []Participant `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ValidateNew checks the caller-supplied attributes of a session to be created.
func ValidateNew(name string, maxParticipants int) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if maxParticipants < MinParticipants || maxParticipants > MaxParticipants {
		return ErrCapacityInvalid
	}
	return nil
}
