// Package domain contains persistent entities without behavior, just meta-data.
package domain

import "time"

// User is the identity record. Registration and credential verification happen
// outside this service; the core only reads users to attribute sessions and
// chat messages.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"type:varchar(191);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(191);uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"type:text;not null" json:"-"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"-"`
}
