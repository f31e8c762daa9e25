package models

import "time"

// PendingUser stages a registration until its phone number is verified.
type PendingUser struct {
	ID               uint      `gorm:"primaryKey"`
	Phone            string    `gorm:"size:20;uniqueIndex;not null"`
	VerificationCode string    `gorm:"size:10;not null"`
	PasswordHash     string    `gorm:"size:255"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

// IsValid reports whether the verification code is still within its lifespan.
func (p *PendingUser) IsValid(now time.Time, lifespan time.Duration) bool {
	return now.Sub(p.CreatedAt) < lifespan
}
