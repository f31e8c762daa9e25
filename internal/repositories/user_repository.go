package repositories

import (
	"context"
	"errors"
	"strings"

	"botoapp/user/internal/models"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// orderableColumns lists the columns clients may sort users by.
var orderableColumns = map[string]struct{}{
	"created_at": {},
	"email":      {},
	"firstname":  {},
	"lastname":   {},
	"phone":      {},
}

// UserQuery narrows a user listing.
type UserQuery struct {
	// OnlyID restricts the result to a single account; non-admin callers only see themselves.
	OnlyID   string
	Verified *bool
	Search   string
	Ordering string
	Offset   int
	Limit    int
}

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("LOWER(phone) = LOWER(?)", phone).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns one page of users matching q together with the total match count.
func (r *UserRepository) ListUsers(ctx context.Context, q UserQuery) ([]models.User, int64, error) {
	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q.OnlyID != "" {
		tx = tx.Where("id = ?", q.OnlyID)
	}
	if q.Verified != nil {
		tx = tx.Where("verified = ?", *q.Verified)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		tx = tx.Where(
			"LOWER(COALESCE(email, '')) LIKE ? OR LOWER(firstname) LIKE ? OR LOWER(lastname) LIKE ? OR LOWER(phone) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	tx = tx.Order(OrderClause(q.Ordering)).Offset(q.Offset)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// OrderClause converts "-created_at,email" into a SQL ORDER BY clause.
// Fields outside the whitelist are dropped; nothing left means newest first.
func OrderClause(ordering string) string {
	var parts []string
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if _, ok := orderableColumns[field]; !ok {
			continue
		}
		parts = append(parts, field+" "+dir)
	}
	if len(parts) == 0 {
		return "created_at DESC"
	}
	return strings.Join(parts, ", ")
}

// UpdateUser applies column updates to the user and returns the reloaded row.
func (r *UserRepository) UpdateUser(ctx context.Context, userID string, updates map[string]any) (*models.User, error) {
	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := r.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, userID)
}

// SaveFields persists only the named columns of user.
func (r *UserRepository) SaveFields(ctx context.Context, user *models.User, fields ...string) error {
	return r.DB.WithContext(ctx).Model(user).Select(fields).Updates(user).Error
}

// RecordLoginFailure bumps the failed-login counter in SQL and locks the
// account once it reaches maxAttempts. newlyLocked is true only for the call
// that performed the lock.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID string, maxAttempts int) (attempts int, newlyLocked bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		var current models.User
		if err := tx.Select("id", "failed_login_attempts", "is_locked").First(&current, "id = ?", userID).Error; err != nil {
			return err
		}
		attempts = current.FailedLoginAttempts
		if attempts < maxAttempts || current.IsLocked {
			return nil
		}
		newlyLocked = true
		return tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumns(map[string]any{"is_active": false, "is_locked": true}).Error
	})
	return attempts, newlyLocked, err
}

// DeleteUser removes the user and every token issued to it.
func (r *UserRepository) DeleteUser(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.User{}, "id = ?", userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Where("user_id = ?", userID).Delete(&models.Token{}).Error
	})
}
