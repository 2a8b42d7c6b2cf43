// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User is a registered account. Watchlists are owned by a user ID.
type User struct {
	ID uint `gorm:"primaryKey"`

	// Email is stored lower-cased and must be unique.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// Password holds the bcrypt hash, never the plaintext.
	Password string `gorm:"size:255;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
