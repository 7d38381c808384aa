package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service/ports"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const msgInvalidCredentials = "Invalid credentials"

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AccountService registers users and turns credentials into sessions.
type AccountService struct {
	users      ports.UserRepo
	sessions   *SessionManager
	bcryptCost int
	logger     logger.Logger
}

func NewAccountService(users ports.UserRepo, sessions *SessionManager, bcryptCost int, logger logger.Logger) *AccountService {
	return &AccountService{users: users, sessions: sessions, bcryptCost: bcryptCost, logger: logger}
}

// Register creates a user account.  Self-registration always yields the
// user role.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	return s.create(ctx, in, model.RoleUser)
}

func (s *AccountService) create(ctx context.Context, in RegisterInput, role model.Role) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return model.User{}, apperr.BadRequest("All fields are required")
	}
	if !strings.Contains(in.Email, "@") {
		return model.User{}, apperr.BadRequest("Email is not valid")
	}
	if !utils.ValidPassword(in.Password) {
		return model.User{}, apperr.BadRequest("Password must be 3-30 letters, digits or @")
	}
	if in.Phone != "" && !utils.ValidPhone(in.Phone) {
		return model.User{}, apperr.BadRequest("Phone number must be 10 digits")
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	u := model.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, apperr.Conflict("User already exists")
		}
		return model.User{}, apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	s.logger.Info("user registered", logger.Any("user_id", u.ID), logger.String("role", string(role)))
	return u, nil
}

// Login verifies credentials and starts a session.  Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.User{}, TokenPair{}, apperr.BadRequest("All fields are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, TokenPair{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return model.User{}, TokenPair{}, apperr.Internal(fmt.Errorf("get user: %w", err))
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	pair, err := s.sessions.Issue(ctx, Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	s.logger.Info("user logged in", logger.Any("user_id", u.ID))
	return u, pair, nil
}

// Logout ends the user's session by revoking the refresh token.
func (s *AccountService) Logout(ctx context.Context, userID uint64) error {
	return s.sessions.Revoke(ctx, userID)
}

// SeedAdmin creates an admin account unless the email is already taken.
// It reports whether an account was created.
func (s *AccountService) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	_, err := s.create(ctx, RegisterInput{Name: name, Email: email, Password: password}, model.RoleAdmin)
	if apperr.KindOf(err) == apperr.KindConflict {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
