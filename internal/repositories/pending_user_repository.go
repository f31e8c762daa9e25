package repositories

import (
	"context"
	"errors"
	"time"

	"botoapp/user/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPendingUserNotFound = errors.New("pending user not found")

type PendingUserRepository struct {
	DB *gorm.DB
}

// Upsert stores pending keyed by phone, replacing the code, password and
// creation time of an earlier registration attempt for the same number.
func (r *PendingUserRepository) Upsert(ctx context.Context, pending *models.PendingUser) error {
	db := r.DB.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"verification_code", "password_hash", "created_at", "updated_at"}),
	}).Create(pending).Error
	if err != nil {
		return err
	}
	var stored models.PendingUser
	if err := db.Where("phone = ?", pending.Phone).First(&stored).Error; err != nil {
		return err
	}
	*pending = stored
	return nil
}

func (r *PendingUserRepository) GetByPhoneAndCode(ctx context.Context, phone, code string) (*models.PendingUser, error) {
	var p models.PendingUser
	err := r.DB.WithContext(ctx).Where("phone = ? AND verification_code = ?", phone, code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPendingUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Promote creates user from a verified registration and drops the staging row in one transaction.
func (r *PendingUserRepository) Promote(ctx context.Context, pending *models.PendingUser, user *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.PendingUser{}, pending.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPendingUserNotFound
		}
		return nil
	})
}

func (r *PendingUserRepository) DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("created_at <= ?", before).Delete(&models.PendingUser{})
	return tx.RowsAffected, tx.Error
}
