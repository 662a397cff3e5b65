package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "hangarshare/internal/errors"
	"hangarshare/internal/repository"
)

type OperatorAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	CreateOperator(ctx context.Context, email, password string) error
}

type operatorAuthService struct {
	repo   repository.OperatorAuthRepository
	secret []byte
}

func NewOperatorAuthService(repo repository.OperatorAuthRepository, secret string) OperatorAuthService {
	return &operatorAuthService{repo: repo, secret: []byte(secret)}
}

func (s *operatorAuthService) Login(ctx context.Context, email, password string) (string, error) {
	operator, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Internal("querying operator", err)
	}
	if operator == nil {
		return "", apperrors.Unauthorized("invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.Unauthorized("invalid credentials", err)
	}

	claims := jwt.MapClaims{
		"sub":   operator.ID,
		"email": operator.Email,
		"role":  "operator",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Internal("signing token", err)
	}
	return signed, nil
}

func (s *operatorAuthService) CreateOperator(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return apperrors.Validation("email and password cannot be empty", nil)
	}
	return s.repo.Create(ctx, email, password)
}
