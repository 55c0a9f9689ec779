// Package auth provides authentication and authorization services.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// Common errors returned by the auth service.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrMissingClaims      = errors.New("missing required claims")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Claims is the validated identity carried by a token.
type Claims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// Config holds authentication configuration.
type Config struct {
	JWTSecret   []byte
	TokenExpiry time.Duration
}

// Service provides signup, login and token handling.
type Service struct {
	jwtSecret   []byte
	tokenExpiry time.Duration
	store       store.Store
	log         *logger.Logger
}

// NewService creates an authentication service.
func NewService(cfg *Config, s store.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		jwtSecret:   cfg.JWTSecret,
		tokenExpiry: cfg.TokenExpiry,
		store:       s,
		log:         log.WithComponent("auth"),
	}
}

// SignupParams describes a donor registration.
type SignupParams struct {
	Name      string
	Email     string
	Password  string
	BloodType models.BloodType
	Phone     string
	Address   string
}

// Signup registers a new donor account. The email is normalized before
// storage; a duplicate registration returns models.ErrConflict.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*models.Donor, error) {
	if len(params.Password) < 8 {
		return nil, &models.ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	donor := &models.Donor{
		ID:           uuid.New().String(),
		Name:         params.Name,
		Email:        models.NormalizeEmail(params.Email),
		PasswordHash: hash,
		Role:         models.RoleDonor,
		BloodType:    params.BloodType,
		Phone:        params.Phone,
		Address:      params.Address,
		Eligible:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := donor.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Donors().Create(ctx, donor); err != nil {
		return nil, err
	}

	s.log.Info("account registered", "donor_id", donor.ID, "role", donor.Role.String())
	return donor, nil
}

// Login verifies credentials and returns the account with a signed token.
// The error is the same whether the email is unknown or the password is
// wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Donor, string, error) {
	donor, err := s.store.Donors().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := CheckPassword(donor.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(donor.ID, donor.Email, donor.Role)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("login", "donor_id", donor.ID, "role", donor.Role.String())
	return donor, token, nil
}

// GenerateToken creates a signed JWT for the given identity.
func (s *Service) GenerateToken(userID, email string, role models.Role) (string, error) {
	if userID == "" {
		return "", ErrMissingClaims
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role.String(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenExpiry).Unix(),
		"nbf":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a JWT and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := mapClaims["sub"].(string)
	if !ok || userID == "" {
		return nil, ErrMissingClaims
	}
	email, _ := mapClaims["email"].(string)

	role := models.RoleDonor
	if r, ok := mapClaims["role"].(string); ok && models.Role(r).IsValid() {
		role = models.Role(r)
	}

	return &Claims{UserID: userID, Email: email, Role: role}, nil
}

// ExtractBearerToken pulls the token out of an Authorization header value.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrInvalidToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash against a candidate password.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
