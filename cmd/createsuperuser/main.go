// Command createsuperuser bootstraps an administrator account.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"botoapp/user/internal/config"
	"botoapp/user/internal/models"
	"botoapp/user/internal/repositories"
	"botoapp/user/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	loadConfig = config.Load
	openDB     = func(cfg *config.Config) (*gorm.DB, error) {
		var dialector gorm.Dialector = postgres.Open(cfg.DSN())
		if cfg.DBDriver == "sqlite" {
			dialector = sqlite.Open(cfg.DSN())
		}
		return gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	}
	exitFunc = os.Exit
)

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(out)
	phone := fs.String("phone", "", "phone number of the admin (required)")
	password := fs.String("password", "", "password of the admin (required)")
	email := fs.String("email", "", "optional email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		return errors.New("-password is required")
	}
	cleaned, err := utils.CleanPhone(*phone)
	if err != nil {
		return fmt.Errorf("-phone: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := &repositories.UserRepository{DB: db}
	if _, err := users.GetUserByPhone(ctx, cleaned); err == nil {
		return fmt.Errorf("a user with phone %s already exists", cleaned)
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	hash, err := utils.HashPassword(*password)
	if err != nil {
		return err
	}
	admin := &models.User{
		Phone:        cleaned,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsAdmin:      true,
		Verified:     true,
		Roles:        models.RoleList{models.RoleAdmin},
	}
	if e := strings.TrimSpace(strings.ToLower(*email)); e != "" {
		admin.Email = &e
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}

	fmt.Fprintf(out, "Superuser %s created (id %s)\n", admin.Phone, admin.ID)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "createsuperuser: %v\n", err)
		exitFunc(1)
	}
}
