package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"infinixai/internal/entities"
	"infinixai/internal/interfaces"
)

const tokenTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserDisabled       = errors.New("user is disabled")
)

type AuthUsecase struct {
	users     interfaces.UserStore
	tenants   interfaces.TenantProvisioner
	jwtSecret []byte
	now       func() time.Time
}

func NewAuthUsecase(users interfaces.UserStore, tenants interfaces.TenantProvisioner, secret string) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		tenants:   tenants,
		jwtSecret: []byte(secret),
		now:       time.Now,
	}
}

// Register creates a dashboard user and provisions its tenant. The tenant id
// is the new user's id.
func (uc *AuthUsecase) Register(ctx context.Context, username, password, companyName string) (*entities.User, error) {
	existing, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         entities.RoleUser,
		IsActive:     true,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if companyName = strings.TrimSpace(companyName); companyName == "" {
		companyName = username
	}
	if err := uc.tenants.Provision(ctx, user.ID, companyName); err != nil {
		return nil, fmt.Errorf("provision tenant: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": username}).Info("[AUTH] User registered")
	return user, nil
}

// Login checks the credentials and returns a signed HS256 token carrying
// user_id and role.
func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, *entities.User, error) {
	user, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, ErrUserDisabled
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     uc.now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, user, nil
}

// EnsureAdmin creates the admin account if it does not exist yet (called on
// startup).
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	user, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         entities.RoleAdmin,
		IsActive:     true,
	}
	if err := uc.users.Create(ctx, admin); err != nil {
		return err
	}
	logrus.WithField("username", username).Info("[AUTH] Admin account created")
	return nil
}
