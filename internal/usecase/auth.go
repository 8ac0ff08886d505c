package usecase

import (
	"context"
	"errors"

	"rentloop/internal/domain/user"
	"rentloop/internal/pkg/jwt"
	"rentloop/internal/pkg/password"
	"rentloop/internal/usecase/queries"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrTokenGeneration    = errors.New("token generation failed")
	ErrTokenValidation    = errors.New("token validation failed")
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*queries.AuthorizedUserView, string, error)
	FindByID(ctx context.Context, id uuid.UUID) (*queries.AuthorizedUserView, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

type AuthUseCase interface {
	Login(ctx context.Context, credentials user.Credentials) (string, *queries.AuthorizedUserView, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*queries.AuthorizedUserView, error)
	ValidateToken(tokenString string) (uuid.UUID, user.Role, error)
}

type authUseCaseImpl struct {
	userRepo   UserRepository
	jwtService *jwt.Service
}

func NewAuthUseCase(userRepo UserRepository, jwtService *jwt.Service) AuthUseCase {
	return &authUseCaseImpl{
		userRepo:   userRepo,
		jwtService: jwtService,
	}
}

func (a *authUseCaseImpl) Login(ctx context.Context, credentials user.Credentials) (string, *queries.AuthorizedUserView, error) {
	view, err := a.validateUser(ctx, credentials)
	if err != nil {
		return "", nil, err
	}

	role, err := user.NewRole(view.Role)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	token, err := a.jwtService.GenerateToken(view.ID, role)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	if err := a.userRepo.UpdateLastLogin(ctx, view.ID); err != nil {
		return "", nil, err
	}

	return token, view, nil
}

func (a *authUseCaseImpl) validateUser(ctx context.Context, credentials user.Credentials) (*queries.AuthorizedUserView, error) {
	view, hashedPassword, err := a.userRepo.FindByEmail(ctx, credentials.Email().String())
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !view.IsActive {
		return nil, ErrUserInactive
	}

	if err := password.ComparePassword(hashedPassword, credentials.Password().Value()); err != nil {
		return nil, ErrInvalidCredentials
	}

	return view, nil
}

func (a *authUseCaseImpl) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*queries.AuthorizedUserView, error) {
	view, err := a.userRepo.FindByID(ctx, userID)
	if err != nil || view == nil {
		return nil, ErrUserNotFound
	}
	if !view.IsActive {
		return nil, ErrUserInactive
	}
	return view, nil
}

func (a *authUseCaseImpl) ValidateToken(tokenString string) (uuid.UUID, user.Role, error) {
	claims, err := a.jwtService.ValidateToken(tokenString)
	if err != nil {
		return uuid.Nil, "", ErrTokenValidation
	}

	role, err := user.NewRole(claims.Role)
	if err != nil {
		return uuid.Nil, "", ErrTokenValidation
	}

	return claims.UserID, role, nil
}
