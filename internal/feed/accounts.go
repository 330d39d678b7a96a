package feed

import (
	"context"
	"strings"

	"github.com/Royleong31/Blog-APIs/internal/sdk/errs"
	"github.com/Royleong31/Blog-APIs/internal/sdk/jwt"
	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
)

type SignupInput struct {
	Email    string
	Name     string
	Password string
}

type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Signup registers a new account. A registered email yields errs.Conflict.
func (s *Service) Signup(ctx context.Context, in SignupInput) (models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateSignup(in); err != nil {
		return models.Account{}, err
	}

	hashed, err := s.hasher.HashPassword(strings.TrimSpace(in.Password))
	if err != nil {
		return models.Account{}, s.internal("signup", "hash", err)
	}

	account, err := s.store.CreateAccount(ctx, models.NewAccount{
		Email:    in.Email,
		Name:     in.Name,
		Password: hashed,
	})
	if err != nil {
		if store.IsDuplicate(err) {
			return models.Account{}, errEmailTaken
		}
		return models.Account{}, s.internal("signup", "persist", err)
	}

	s.log.Info("account created", "account", account.ID)
	return account, nil
}

// Login checks the credentials and issues a one hour token. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := validateLogin(email, password); err != nil {
		return LoginResult{}, err
	}

	account, err := s.store.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if store.IsNotFound(err) {
			return LoginResult{}, errInvalidLogin
		}
		return LoginResult{}, s.internal("login", "load", err)
	}

	if !s.hasher.CheckPasswordHash(strings.TrimSpace(password), account.Password) {
		return LoginResult{}, errInvalidLogin
	}

	token, err := s.tokens.GenerateToken(account.ID, account.Email)
	if err != nil {
		return LoginResult{}, s.internal("login", "token", err)
	}

	return LoginResult{Token: token, UserID: account.ID}, nil
}

// Account returns the actor's own account.
func (s *Service) Account(ctx context.Context, actor jwt.Identity) (models.Account, error) {
	if err := authenticate(actor); err != nil {
		return models.Account{}, err
	}

	account, err := s.store.GetAccountByID(ctx, actor.AccountID)
	if err != nil {
		if store.IsNotFound(err) {
			return models.Account{}, errUserNotFound
		}
		return models.Account{}, s.internal("account", "load", err)
	}
	return account, nil
}

// GetStatus returns the actor's status line.
func (s *Service) GetStatus(ctx context.Context, actor jwt.Identity) (string, error) {
	account, err := s.Account(ctx, actor)
	if err != nil {
		return "", err
	}
	return account.Status, nil
}

// UpdateStatus replaces the actor's status line.
func (s *Service) UpdateStatus(ctx context.Context, actor jwt.Identity, status string) (models.Account, error) {
	if err := authenticate(actor); err != nil {
		return models.Account{}, err
	}

	status = strings.TrimSpace(status)
	if err := validateStatus(status); err != nil {
		return models.Account{}, err
	}

	account, err := s.store.UpdateAccountStatus(ctx, actor.AccountID, status)
	if err != nil {
		if store.IsNotFound(err) {
			return models.Account{}, errUserNotFound
		}
		return models.Account{}, s.internal("update_status", "persist", err)
	}
	return account, nil
}

// internal reports an unexpected failure and hides its details from clients.
func (s *Service) internal(op, stage string, err error) error {
	s.sentry.Report(op, stage, sentry.LevelError, err)
	return errs.Wrap(errs.Internal, "An error occurred", err)
}
