// internal/domain/user/service.go
package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"github.com/your-org/factory-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Service handles user authentication lookups
type Service struct {
	db        *gorm.DB
	config    *config.Config
	passwords *auth.PasswordManager
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		passwords: auth.NewPasswordManager(cfg),
	}
}

// Authenticate verifies credentials and returns the matching active user
func (s *Service) Authenticate(email, password string) (*User, error) {
	var u User
	if err := s.db.Where("email = ? AND is_active = ?", email, true).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.UnauthorizedError{Message: "invalid email or password"}
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := s.passwords.VerifyPassword(password, u.PasswordHash); err != nil {
		return nil, &apperrors.UnauthorizedError{Message: "invalid email or password"}
	}

	now := time.Now().UTC()
	if err := s.db.Model(&u).UpdateColumn("last_login_at", now).Error; err != nil {
		// Login bookkeeping only; do not fail the authentication.
		return &u, nil
	}
	u.LastLoginAt = &now

	return &u, nil
}

// GetByID retrieves an active user by ID
func (s *Service) GetByID(id uint) (*User, error) {
	var u User
	if err := s.db.Where("id = ? AND is_active = ?", id, true).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user", id)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &u, nil
}
