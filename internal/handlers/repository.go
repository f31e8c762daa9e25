package handlers

import (
	"context"

	"botoapp/user/internal/models"
	"botoapp/user/internal/notify"
	"botoapp/user/internal/repositories"
)

// UserRepository captures the persistence operations required by handlers.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, q repositories.UserQuery) ([]models.User, int64, error)
	UpdateUser(ctx context.Context, userID string, updates map[string]any) (*models.User, error)
	SaveFields(ctx context.Context, user *models.User, fields ...string) error
	RecordLoginFailure(ctx context.Context, userID string, maxAttempts int) (int, bool, error)
	DeleteUser(ctx context.Context, userID string) error
}

// PendingUserRepository stages registrations until their OTP is confirmed.
type PendingUserRepository interface {
	Upsert(ctx context.Context, pending *models.PendingUser) error
	GetByPhoneAndCode(ctx context.Context, phone, code string) (*models.PendingUser, error)
	Promote(ctx context.Context, pending *models.PendingUser, user *models.User) error
}

// TokenRepository captures the token persistence operations required by handlers.
type TokenRepository interface {
	Upsert(ctx context.Context, token *models.Token) error
	GetByTokenAndPurpose(ctx context.Context, tokenStr string, purpose models.TokenPurpose) (*models.Token, error)
	RedeemPasswordReset(ctx context.Context, token *models.Token, passwordHash string) error
}

// Notifier queues a message for background delivery.
type Notifier interface {
	Enqueue(ctx context.Context, msg notify.Message) error
}

// ImageStore persists uploaded avatars.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(raw string) (string, bool)
}
