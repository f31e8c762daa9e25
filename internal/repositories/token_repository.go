package repositories

import (
	"context"
	"errors"
	"time"

	"botoapp/user/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTokenNotFound = errors.New("token not found")

type TokenRepository struct {
	DB *gorm.DB
}

// Upsert issues token for its (user, purpose) pair, overwriting any earlier code.
func (r *TokenRepository) Upsert(ctx context.Context, token *models.Token) error {
	db := r.DB.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "created_at"}),
	}).Create(token).Error
	if err != nil {
		return err
	}
	// on conflict the stored row keeps its original id
	var stored models.Token
	if err := db.Where("user_id = ? AND purpose = ?", token.UserID, token.Purpose).First(&stored).Error; err != nil {
		return err
	}
	*token = stored
	return nil
}

func (r *TokenRepository) GetByTokenAndPurpose(ctx context.Context, tokenStr string, purpose models.TokenPurpose) (*models.Token, error) {
	var t models.Token
	err := r.DB.WithContext(ctx).Where("token = ? AND purpose = ?", tokenStr, purpose).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepository) GetByUserAndPurpose(ctx context.Context, userID string, purpose models.TokenPurpose) (*models.Token, error) {
	var t models.Token
	err := r.DB.WithContext(ctx).Where("user_id = ? AND purpose = ?", userID, purpose).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepository) DeleteByID(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Delete(&models.Token{}, "id = ?", id).Error
}

// RedeemPasswordReset sets a new password hash on the token's user, clears
// the login-failure counter and consumes the token atomically.
func (r *TokenRepository) RedeemPasswordReset(ctx context.Context, token *models.Token, passwordHash string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("id = ?", token.UserID).Updates(map[string]any{
			"password_hash":         passwordHash,
			"failed_login_attempts": 0,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		deleted := tx.Delete(&models.Token{}, "id = ?", token.ID)
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			return ErrTokenNotFound
		}
		return nil
	})
}

func (r *TokenRepository) DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("created_at <= ?", before).Delete(&models.Token{})
	return tx.RowsAffected, tx.Error
}
