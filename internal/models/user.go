package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// MaxRoles bounds how many roles a single account may carry.
const MaxRoles = 6

// IsKnownRole reports whether role is one of the system roles.
func IsKnownRole(role string) bool {
	return role == RoleAdmin || role == RoleCustomer
}

// RoleList is stored as a JSON array so it works on both Postgres and SQLite.
type RoleList []string

func (RoleList) GormDataType() string { return "text" }

func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		r = RoleList{}
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *RoleList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("roles: unsupported column type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	*r = out
	return nil
}

// User represents a verified account. Phone is the login identifier.
type User struct {
	ID                  string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Phone               string     `gorm:"size:30;uniqueIndex;not null" json:"phone"`
	Email               *string    `gorm:"size:254;uniqueIndex" json:"email"`
	PasswordHash        string     `gorm:"size:255" json:"-"`
	Firstname           string     `gorm:"size:255" json:"firstname"`
	Lastname            string     `gorm:"size:255" json:"lastname"`
	Image               string     `gorm:"size:1024" json:"image"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	IsLocked            bool       `json:"-"`
	IsStaff             bool       `json:"-"`
	IsActive            bool       `json:"-"`
	IsAdmin             bool       `json:"-"`
	Verified            bool       `json:"verified"`
	Roles               RoleList   `json:"roles"`
	LastLogin           *time.Time `json:"-"`
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time  `json:"-"`
}

// BeforeCreate assigns the UUID primary key and the default role.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if len(u.Roles) == 0 {
		u.Roles = RoleList{RoleCustomer}
	}
	return nil
}

// HasAdminAccess is true for users flagged as admin or holding the ADMIN role.
func (u *User) HasAdminAccess() bool {
	return u.IsAdmin || slices.Contains(u.Roles, RoleAdmin)
}

// EmailAddress returns the email or an empty string when none is set.
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
