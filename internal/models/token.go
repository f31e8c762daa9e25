package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenPurpose string

const (
	TokenPurposeAccountVerification TokenPurpose = "ACCOUNT_VERIFICATION"
	TokenPurposePasswordReset       TokenPurpose = "PASSWORD_RESET"
)

// Token is a one-time code issued to an existing user.
// A user holds at most one token per purpose.
type Token struct {
	ID        string       `gorm:"type:varchar(36);primaryKey"`
	UserID    string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_token_user_purpose"`
	Token     string       `gorm:"size:255;index"`
	Purpose   TokenPurpose `gorm:"size:100;not null;uniqueIndex:idx_token_user_purpose"`
	CreatedAt time.Time    `gorm:"index"`
}

func (t *Token) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsValid reports whether the token is still within its lifespan.
func (t *Token) IsValid(now time.Time, lifespan time.Duration) bool {
	return now.Sub(t.CreatedAt) < lifespan
}

// All lists every table the service owns, in migration order.
func All() []any {
	return []any{&User{}, &PendingUser{}, &Token{}}
}
