package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/pkg/auth"
	"github.com/mayank-dotcom/career-bot/pkg/domain"
	"github.com/mayank-dotcom/career-bot/pkg/store"
)

const maxNameLength = 100

type SignUpInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenInput struct {
	Token string `json:"token"`
}

type UpdateUserInput struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

type UserIDInput struct {
	UserID string `json:"userId"`
}

// AuthResult is returned by signup and signin.
type AuthResult struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// SignUp registers a user and issues a session token.
func (a *App) SignUp(ctx context.Context, in SignUpInput) (AuthResult, error) {
	email, err := validEmail(in.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return AuthResult{}, validation(err.Error())
	}
	name, err := validName(in.Name)
	if err != nil {
		return AuthResult{}, err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return AuthResult{}, wrap(ErrInternal, fmt.Errorf("check email: %w", err))
	}
	if exists {
		return AuthResult{}, ErrEmailTaken
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, wrap(ErrInternal, fmt.Errorf("hash password: %w", err))
	}
	now := a.timestamp()
	user := domain.User{
		ID:           a.newID(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, wrap(ErrInternal, fmt.Errorf("create user: %w", err))
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return AuthResult{}, wrap(ErrInternal, fmt.Errorf("issue token: %w", err))
	}
	util.LoggerFromContext(ctx).Info("user signed up", "user_id", user.ID)
	return AuthResult{User: user, Token: token}, nil
}

// SignIn verifies credentials. Unknown email and wrong password fail identically.
func (a *App) SignIn(ctx context.Context, in SignInInput) (AuthResult, error) {
	email, err := validEmail(in.Email)
	if err != nil {
		return AuthResult{}, err
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return AuthResult{}, wrap(ErrInternal, fmt.Errorf("load user: %w", err))
	}
	if !ok || !auth.CheckPassword(in.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return AuthResult{}, wrap(ErrInternal, fmt.Errorf("issue token: %w", err))
	}
	return AuthResult{User: user, Token: token}, nil
}

// SignOut revokes the token. Tokens that are already invalid are accepted.
func (a *App) SignOut(ctx context.Context, in TokenInput) error {
	if err := a.sessions.DeleteSession(in.Token); err != nil {
		return wrap(ErrInternal, fmt.Errorf("revoke session: %w", err))
	}
	return nil
}

// Authenticate verifies a session token and returns its claims.
func (a *App) Authenticate(ctx context.Context, token string) (store.SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return store.SessionClaims{}, ErrAuthRequired
	}
	claims, err := a.sessions.ParseSession(token)
	if err != nil {
		util.LoggerFromContext(ctx).Debug("session rejected", "err", err)
		return store.SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// CurrentUser resolves the user behind a token. Every failure, including a
// deleted user, reads as an invalid token.
func (a *App) CurrentUser(ctx context.Context, in TokenInput) (domain.User, error) {
	claims, err := a.sessions.ParseSession(in.Token)
	if err != nil {
		util.LoggerFromContext(ctx).Debug("session rejected", "err", err)
		return domain.User{}, ErrInvalidToken
	}
	user, ok, err := a.store.GetUserByID(claims.UserID)
	if err != nil || !ok {
		if err != nil {
			util.LoggerFromContext(ctx).Error("load session user failed", "user_id", claims.UserID, "err", err)
		}
		return domain.User{}, ErrInvalidToken
	}
	return user, nil
}

// UpdateUser changes a user's email and, when given, name.
func (a *App) UpdateUser(ctx context.Context, in UpdateUserInput) (domain.User, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return domain.User{}, validation("User id is required")
	}
	if err := authorize(ctx, id); err != nil {
		return domain.User{}, err
	}
	email, err := validEmail(in.Email)
	if err != nil {
		return domain.User{}, err
	}
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, wrap(ErrInternal, fmt.Errorf("load user: %w", err))
	}
	if !ok {
		return domain.User{}, UserNotFound(id)
	}
	if email != user.Email {
		if taken, err := a.store.HasUserEmail(email); err != nil {
			return domain.User{}, wrap(ErrInternal, fmt.Errorf("check email: %w", err))
		} else if taken {
			return domain.User{}, ErrEmailTaken
		}
	}
	if in.Name != nil {
		name, err := validName(in.Name)
		if err != nil {
			return domain.User{}, err
		}
		user.Name = name
	}
	user.Email = email
	user.UpdatedAt = a.timestamp()
	if err := a.store.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			return domain.User{}, ErrEmailTaken
		case errors.Is(err, store.ErrNotFound):
			return domain.User{}, UserNotFound(id)
		}
		return domain.User{}, wrap(ErrInternal, fmt.Errorf("update user: %w", err))
	}
	return user, nil
}

// GetUserByID returns the user or nil when the id is unknown.
func (a *App) GetUserByID(ctx context.Context, in UserIDInput) (*domain.User, error) {
	id := strings.TrimSpace(in.UserID)
	if err := authorize(ctx, id); err != nil {
		return nil, err
	}
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return nil, wrap(ErrInternal, fmt.Errorf("load user: %w", err))
	}
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func validEmail(raw string) (string, error) {
	email := auth.NormalizeEmail(raw)
	if err := auth.ValidateEmail(email); err != nil {
		return "", validation(err.Error())
	}
	return email, nil
}

func validName(name *string) (string, error) {
	if name == nil {
		return "", nil
	}
	trimmed := strings.TrimSpace(*name)
	if len([]rune(trimmed)) > maxNameLength {
		return "", validation(fmt.Sprintf("Name must be at most %d characters", maxNameLength))
	}
	return trimmed, nil
}
