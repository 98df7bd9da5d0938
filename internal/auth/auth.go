// Package auth handles PIN and credential logins and user administration.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/models"
	"github.com/xelth-com/iditgo/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	pinLength         = 4
	minPasswordLength = 8
)

// Service issues sessions and manages users
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	secret string
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates an auth service signing tokens with secret
func NewService(db *gorm.DB, logger *zap.Logger, secret string, ttl time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger, secret: secret, ttl: ttl, now: time.Now}
}

// Session is the result of a successful login
type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// RegisterInput is a credential signup
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// UserInput creates a staff user
type UserInput struct {
	Name  string  `json:"name"`
	Pin   string  `json:"pin"`
	Role  string  `json:"role"`
	Email *string `json:"email"`
}

// UserUpdate is a patch of a user
type UserUpdate struct {
	Name     *string `json:"name"`
	Pin      *string `json:"pin"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// ValidPIN reports whether pin is exactly four digits
func ValidPIN(pin string) bool {
	if len(pin) != pinLength {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// PinLogin finds the active user owning pin
func (s *Service) PinLogin(ctx context.Context, pin string) (*Session, error) {
	if !ValidPIN(pin) {
		return nil, errs.Validation("PIN must be 4 digits")
	}
	user, err := s.findByPIN(ctx, s.db, pin, "")
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.Authentication("invalid PIN")
	}
	return s.startSession(ctx, user)
}

// Login checks email and password
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Authentication("invalid credentials")
		}
		return nil, errs.Persistence("load user", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, errs.Authentication("invalid credentials")
	}
	return s.startSession(ctx, &user)
}

// Register creates a credential account and logs it in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, errs.Validation("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, errs.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, errs.Persistence("hash password", err)
	}

	user := models.User{
		Name:         name,
		Email:        &email,
		PasswordHash: hash,
		Role:         models.RoleStaff,
		IsActive:     true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return errs.Persistence("check email", err)
		}
		if count > 0 {
			return errs.Validation("email is already registered")
		}
		// the first account of a fresh installation administers it
		var users int64
		if err := tx.Model(&models.User{}).Count(&users).Error; err != nil {
			return errs.Persistence("count users", err)
		}
		if users == 0 {
			user.Role = models.RoleAdmin
		}
		if err := tx.Create(&user).Error; err != nil {
			return errs.Persistence("create user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("id", user.ID), zap.String("role", user.Role))
	return s.startSession(ctx, &user)
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*Session, error) {
	now := s.now().UTC()
	token, expiresAt, err := utils.GenerateToken(user, s.secret, s.ttl, now)
	if err != nil {
		return nil, errs.Persistence("sign token", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("last_login", now).Error; err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now
	return &Session{User: *user, Token: token, ExpiresAt: expiresAt}, nil
}

// ActiveUser returns the active user with id. Tokens of deleted or
// deactivated users resolve to an AuthenticationError.
func (s *Service) ActiveUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Authentication("user session invalid, please log in again")
		}
		return nil, errs.Persistence("load user", err)
	}
	return &user, nil
}

// ListUsers returns all users that were not deleted, by name
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, errs.Persistence("load users", err)
	}
	return users, nil
}

// CreateUser adds a PIN user. PINs are unique among active users.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}
	if !ValidPIN(in.Pin) {
		return nil, errs.Validation("PIN must be 4 digits")
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Pin)
	if err != nil {
		return nil, errs.Persistence("hash PIN", err)
	}

	user := models.User{Name: name, PinHash: hash, Role: role, IsActive: true}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		email := normalizeEmail(*in.Email)
		user.Email = &email
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.findByPIN(ctx, tx, in.Pin, "")
		if err != nil {
			return err
		}
		if taken != nil {
			return errs.Validation("PIN is already in use")
		}
		if err := tx.Create(&user).Error; err != nil {
			return errs.Persistence("create user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("id", user.ID), zap.String("role", user.Role))
	return &user, nil
}

// UpdateUser applies a patch
func (s *Service) UpdateUser(ctx context.Context, id string, in UserUpdate) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("user not found")
			}
			return errs.Persistence("load user", err)
		}

		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return errs.Validation("name is required")
			}
			updates["name"] = name
		}
		if in.Role != nil {
			role, err := parseRole(*in.Role)
			if err != nil {
				return err
			}
			updates["role"] = role
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if in.Pin != nil {
			if !ValidPIN(*in.Pin) {
				return errs.Validation("PIN must be 4 digits")
			}
			taken, err := s.findByPIN(ctx, tx, *in.Pin, id)
			if err != nil {
				return err
			}
			if taken != nil {
				return errs.Validation("PIN is already in use")
			}
			hash, err := utils.HashPassword(*in.Pin)
			if err != nil {
				return errs.Persistence("hash PIN", err)
			}
			updates["pin_hash"] = hash
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return errs.Persistence("update user", err)
			}
		}
		if err := tx.Take(&user, "id = ?", id).Error; err != nil {
			return errs.Persistence("load user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser soft-deletes a user; log rows keep resolving the name
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return errs.Persistence("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("user not found")
	}
	s.logger.Info("user deleted", zap.String("id", id))
	return nil
}

// findByPIN compares pin against the PIN hashes of active users, skipping
// exceptID. Hashes are salted, so every candidate is checked.
func (s *Service) findByPIN(ctx context.Context, db *gorm.DB, pin, exceptID string) (*models.User, error) {
	var users []models.User
	q := db.WithContext(ctx).Where("is_active = ? AND pin_hash <> ''", true)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, errs.Persistence("load users", err)
	}
	for i := range users {
		if utils.CheckPasswordHash(pin, users[i].PinHash) {
			return &users[i], nil
		}
	}
	return nil, nil
}

func parseRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", models.RoleStaff:
		return models.RoleStaff, nil
	case models.RoleAdmin:
		return models.RoleAdmin, nil
	default:
		return "", errs.InvalidField("role", "role must be %s or %s", models.RoleAdmin, models.RoleStaff)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
