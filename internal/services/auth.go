package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/garage-invoices/internal/models"
	"github.com/diewo77/garage-invoices/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserView is the public representation of a user.
type UserView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func viewOf(u *models.User) *UserView {
	return &UserView{ID: u.ID, Name: u.Name, Email: u.Email}
}

// AuthService registers and authenticates users.
type AuthService struct {
	db   *gorm.DB
	cost int
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost used for new passwords.
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*UserView, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if v := validation.Struct(req); !v.Empty() {
		return nil, invalid(v)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, storageErr("hash password", err)
	}
	user := models.User{Name: req.Name, Email: req.Email, PasswordHash: string(hash)}
	err = s.db.WithContext(ctx).Create(&user).Error
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, storageErr("create user", err)
	}
	return viewOf(&user), nil
}

// Authenticate checks the credentials and returns the user.
func (s *AuthService) Authenticate(ctx context.Context, req LoginRequest) (*UserView, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storageErr("lookup user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return viewOf(&user), nil
}

// Get returns a user by id.
func (s *AuthService) Get(ctx context.Context, id uint) (*UserView, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return viewOf(&user), nil
}

// Exists reports whether a user with id exists. A failed lookup is an
// ErrStorage error, not a missing user.
func (s *AuthService) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, storageErr("check user", err)
	}
	return count > 0, nil
}
