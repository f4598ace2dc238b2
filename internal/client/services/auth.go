// Package services contains the stateless account operations used by the
// session manager. Inputs are validated locally before any network call;
// backend failures arrive already normalized into autherr kinds.
package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/password"
	"github.com/dmitrijs2005/kefi/internal/logging"
	"github.com/go-playground/validator/v10"
)

// AuthService defines the account operations.
//
// Contract:
//   - Signup is three steps: SendVerificationEmail, VerifyCode, CompleteSignup.
//   - Login and CompleteSignup return tokens; persisting them is the caller's job.
//   - Password reset is SendPasswordResetEmail, ValidateResetCode, ResetPassword.
//   - Logout always clears the local session, whatever the server says.
//
// All methods honor context cancellation and the client's request timeout.
type AuthService interface {
	SendVerificationEmail(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	CompleteSignup(ctx context.Context, data models.SignupData) (*models.AuthResult, error)
	Login(ctx context.Context, identifier, password string, rememberMe bool) (*models.AuthResult, error)
	SendPasswordResetEmail(ctx context.Context, email string) error
	ValidateResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	FetchUserProfile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, patch models.ProfileUpdate, into *models.User) error
	RefreshSession(ctx context.Context) error
	Logout(ctx context.Context) error
}

// API is the REST surface the service needs. *client.APIClient implements it.
type API interface {
	SendVerificationEmail(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	CompleteSignup(ctx context.Context, data models.SignupData) (*models.AuthResult, error)
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error)
	SendPasswordResetEmail(ctx context.Context, email string) error
	ValidateResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Profile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, patch models.ProfileUpdate, into *models.User) error
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context, refresh string) error
}

// Tokens is the part of the token store Logout needs.
type Tokens interface {
	RefreshToken(ctx context.Context) (string, error)
	ClearTokens(ctx context.Context) error
}

type authService struct {
	api      API
	tokens   Tokens
	policy   password.Policy
	validate *validator.Validate
	logger   logging.Logger
}

// NewAuthService constructs an AuthService over api. New passwords are
// checked against policy.
func NewAuthService(api API, tokens Tokens, policy password.Policy, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &authService{
		api:      api,
		tokens:   tokens,
		policy:   policy,
		validate: newValidator(),
		logger:   logger,
	}
}

func (s *authService) checkEmail(email string) error {
	return validationError(s.validate.Var(email, "required,email"), "Please enter a valid email address.")
}

func (s *authService) checkCode(email, code string) error {
	if err := s.checkEmail(email); err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return autherr.New(autherr.KindValidation, "Verification code is required.")
	}
	return nil
}

func (s *authService) SendVerificationEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}
	return s.api.SendVerificationEmail(ctx, email)
}

func (s *authService) VerifyCode(ctx context.Context, email, code string) error {
	email, code = strings.TrimSpace(email), strings.TrimSpace(code)
	if err := s.checkCode(email, code); err != nil {
		return err
	}
	return s.api.VerifyCode(ctx, email, code)
}

// CompleteSignup validates every field, then the password against the
// policy, and only then creates the account.
func (s *authService) CompleteSignup(ctx context.Context, data models.SignupData) (*models.AuthResult, error) {
	data.Email = strings.TrimSpace(data.Email)
	data.Username = strings.TrimSpace(data.Username)
	data.FullName = strings.TrimSpace(data.FullName)

	if err := validationError(s.validate.Struct(data), "Please fix the highlighted fields."); err != nil {
		return nil, err
	}
	if err := s.policy.Check(data.Password); err != nil {
		return nil, err
	}
	return s.api.CompleteSignup(ctx, data)
}

func (s *authService) Login(ctx context.Context, identifier, pw string, rememberMe bool) (*models.AuthResult, error) {
	creds := models.Credentials{Username: strings.TrimSpace(identifier), Password: pw, RememberMe: rememberMe}
	if err := validationError(s.validate.Struct(creds), "Username or email and password required."); err != nil {
		return nil, err
	}

	res, err := s.api.Login(ctx, creds)
	if err != nil {
		s.logger.Info(ctx, "login rejected", "kind", autherr.KindOf(err))
		return nil, err
	}
	return res, nil
}

func (s *authService) SendPasswordResetEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}
	return s.api.SendPasswordResetEmail(ctx, email)
}

func (s *authService) ValidateResetCode(ctx context.Context, email, code string) error {
	email, code = strings.TrimSpace(email), strings.TrimSpace(code)
	if err := s.checkCode(email, code); err != nil {
		return err
	}
	return s.api.ValidateResetCode(ctx, email, code)
}

// ResetPassword checks newPassword against the policy before any network call.
func (s *authService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email, code = strings.TrimSpace(email), strings.TrimSpace(code)
	if err := s.checkCode(email, code); err != nil {
		return err
	}
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}
	return s.api.ResetPassword(ctx, email, code, newPassword)
}

func (s *authService) FetchUserProfile(ctx context.Context) (*models.User, error) {
	return s.api.Profile(ctx)
}

// UpdateProfile sends only the touched fields of patch. Empty patches are
// not sent.
func (s *authService) UpdateProfile(ctx context.Context, patch models.ProfileUpdate, into *models.User) error {
	if into == nil {
		return autherr.New(autherr.KindValidation, "No profile to update.")
	}
	if patch.IsEmpty() {
		return nil
	}
	return s.api.UpdateProfile(ctx, patch, into)
}

func (s *authService) RefreshSession(ctx context.Context) error {
	_, err := s.api.Refresh(ctx)
	return err
}

// Logout tells the server to invalidate the refresh token and clears the
// local session regardless of the outcome. The server error is returned
// for logging only.
func (s *authService) Logout(ctx context.Context) error {
	var serverErr error

	refresh, err := s.tokens.RefreshToken(ctx)
	switch {
	case err != nil:
		serverErr = err
	case refresh == "":
		s.logger.Debug(ctx, "logout without refresh token, skipping server call")
	default:
		serverErr = s.api.Logout(ctx, refresh)
	}

	if err := s.tokens.ClearTokens(ctx); err != nil {
		s.logger.Error(ctx, "failed to clear local session", "error", err)
		if serverErr == nil {
			serverErr = err
		}
	}
	if serverErr != nil {
		s.logger.Warn(ctx, "server logout failed", "error", serverErr)
	}
	return serverErr
}
