package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"botoapp/user/internal/config"
	"botoapp/user/internal/models"
	"botoapp/user/internal/repositories"
	"botoapp/user/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func useSQLite(t *testing.T, name string) *gorm.DB {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file:"+name+"?mode=memory&cache=shared")

	cfg, err := config.Load()
	require.NoError(t, err)
	// hold one connection open so the shared in-memory database outlives run
	db, err := openDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestRunCreatesSuperuser(t *testing.T) {
	db := useSQLite(t, "superuser-create")

	var out bytes.Buffer
	err := run([]string{"-phone", "08130303030", "-password", "passer@@@111", "-email", " Admin@Example.com "}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "+2348130303030")

	users := &repositories.UserRepository{DB: db}
	admin, err := users.GetUserByPhone(context.Background(), "+2348130303030")
	require.NoError(t, err)
	assert.True(t, admin.IsActive)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.Verified)
	assert.True(t, admin.HasAdminAccess())
	assert.Equal(t, models.RoleList{models.RoleAdmin}, admin.Roles)
	assert.Equal(t, "admin@example.com", admin.EmailAddress())
	assert.True(t, utils.CheckPassword(admin.PasswordHash, "passer@@@111"))
}

func TestRunRejectsDuplicatePhone(t *testing.T) {
	useSQLite(t, "superuser-duplicate")

	args := []string{"-phone", "08130303030", "-password", "passer@@@111"}
	require.NoError(t, run(args, &bytes.Buffer{}))

	err := run(args, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRunValidatesFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing password", args: []string{"-phone", "08130303030"}, want: "-password"},
		{name: "bad phone", args: []string{"-phone", "123", "-password", "x"}, want: "-phone"},
		{name: "unknown flag", args: []string{"-nope"}, want: "nope"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := run(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRunConfigFailure(t *testing.T) {
	orig := loadConfig
	defer func() { loadConfig = orig }()
	loadConfig = func() (*config.Config, error) { return nil, errors.New("bad env") }

	err := run([]string{"-phone", "08130303030", "-password", "passer@@@111"}, &bytes.Buffer{})
	assert.EqualError(t, err, "bad env")
}

func TestMainExitsOnError(t *testing.T) {
	origArgs := os.Args
	origExit := exitFunc
	defer func() {
		os.Args = origArgs
		exitFunc = origExit
	}()
	os.Args = []string{"createsuperuser", "-phone", "08130303030"}

	code := 0
	exitFunc = func(c int) { code = c }
	main()

	assert.Equal(t, 1, code)
}
