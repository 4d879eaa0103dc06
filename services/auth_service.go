package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"simon-says-server/logger"
	"simon-says-server/models"
	"simon-says-server/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	BcryptCost       = 12
	publicIDAttempts = 5
)

var ErrInvalidToken = errors.New("invalid token")

type AuthService struct {
	DB        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	cost      int
	clock     clockwork.Clock
	log       *logger.Logger

	newPublicID func() (string, error)
}

func NewAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, clock clockwork.Clock, log *logger.Logger) *AuthService {
	return &AuthService{
		DB:          db,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		cost:        BcryptCost,
		clock:       clock,
		log:         log.With("service", "AuthService"),
		newPublicID: utils.NewPublicID,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account and returns it with a fresh token. The public
// id is regenerated if it collides with an existing one.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := s.checkAvailable(ctx, username, email); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: string(hash),
		Profile:  models.Profile{Gender: models.GenderPreferNotToSay},
		IsActive: true,
	}

	for attempt := 1; ; attempt++ {
		user.UserID, err = s.newPublicID()
		if err != nil {
			return nil, "", err
		}
		err = s.DB.WithContext(ctx).Create(user).Error
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", fmt.Errorf("create user: %w", err)
		}
		// Either a concurrent registration took the username or email, or
		// the public id collided.
		if err := s.checkAvailable(ctx, username, email); err != nil {
			return nil, "", err
		}
		if attempt == publicIDAttempts {
			return nil, "", fmt.Errorf("could not allocate a unique public id after %d attempts", attempt)
		}
		s.log.Warn("public id collision, retrying", "attempt", attempt)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user registered", "id", user.ID, "public_id", user.UserID)
	return user, token, nil
}

func (s *AuthService) checkAvailable(ctx context.Context, username, email string) error {
	var existing models.User
	err := s.DB.WithContext(ctx).
		Select("id", "email", "username").
		Where("email = ? OR username = ?", email, username).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if existing.Email == email {
		return Conflict("Email already registered")
	}
	return Conflict("Username already taken")
}

// Login accepts either the username or the email as identifier.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	identifier = strings.TrimSpace(identifier)

	var user models.User
	err := s.DB.WithContext(ctx).
		Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", InvalidOperation("Invalid credentials")
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", InvalidOperation("Invalid credentials")
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature and expiry and returns the user id.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	var claims jwt.RegisteredClaims
	tok, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	id, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return &user, nil
}
