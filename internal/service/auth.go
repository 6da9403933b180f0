package service

import (
	"context"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("auth")

// AuthService authenticates staff operators and signs short-lived access
// tokens for the mutating endpoints.
type AuthService struct {
	store     port.AuthStore
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(store port.AuthStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// Login validates credentials against the staff table and issues an access
// token.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if req.Email == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email|password", Message: "required"}
	}

	user, err := s.store.GetStaffByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &domain.ErrUnauthorized{Message: "credenciais inválidas"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("email", req.Email))
		return nil, &domain.ErrUnauthorized{Message: "credenciais inválidas"}
	}

	token, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff login", zap.String("staff_id", user.ID), zap.String("role", user.Role))

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		Name:        user.Name,
		Role:        user.Role,
	}, nil
}

// ValidateAccessToken parses and verifies a bearer token, returning its
// claims.
func (s *AuthService) ValidateAccessToken(tokenString string) (*domain.AccessClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &domain.ErrUnauthorized{Message: "unexpected signing method"}
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "token inválido ou expirado"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "token inválido"}
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	exp, _ := claims["exp"].(float64)
	return &domain.AccessClaims{Sub: sub, Role: role, Exp: int64(exp)}, nil
}

func (s *AuthService) signAccessToken(user *domain.StaffUser) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.accessTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}
