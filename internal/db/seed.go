package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/garage-invoices/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Admin is the account created by Seed.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// Seed creates the admin account when credentials are configured and the
// email is not registered yet. Running it twice is a no-op.
func Seed(ctx context.Context, conn *gorm.DB, admin Admin) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		return nil
	}

	var existing models.User
	err := conn.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed admin lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed admin hash: %w", err)
	}
	name := strings.TrimSpace(admin.Name)
	if name == "" {
		name = email
	}
	user := models.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := conn.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("seed admin create: %w", err)
	}
	return nil
}
