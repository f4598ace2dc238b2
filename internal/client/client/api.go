package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/dmitrijs2005/kefi/internal/client/models"
)

type emailRequest struct {
	Email string `json:"email"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetConfirmRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

var (
	epSignupEmail = endpoint{method: http.MethodPost, path: "signup/email/",
		fallback: "Failed to send verification code"}
	epVerifyCode = endpoint{method: http.MethodPost, path: "verify-code/",
		kinds:    map[int]autherr.Kind{http.StatusBadRequest: autherr.KindInvalidCode},
		fallback: "Invalid verification code"}
	epSignupComplete = endpoint{method: http.MethodPost, path: "signup/complete/",
		fallback: "Failed to complete signup"}
	epLogin = endpoint{method: http.MethodPost, path: "login/",
		kinds: map[int]autherr.Kind{
			http.StatusUnauthorized: autherr.KindInvalidCredentials,
			http.StatusForbidden:    autherr.KindAccountLocked,
		}}
	epResetEmail = endpoint{method: http.MethodPost, path: "password/reset/",
		fallback: "Failed to send password reset email"}
	epResetValidate = endpoint{method: http.MethodPost, path: "password/reset/validate/",
		kinds:    map[int]autherr.Kind{http.StatusBadRequest: autherr.KindInvalidCode},
		fallback: "Invalid reset code"}
	epResetConfirm = endpoint{method: http.MethodPost, path: "password/reset/confirm/",
		kinds:    map[int]autherr.Kind{http.StatusBadRequest: autherr.KindInvalidCode},
		fallback: "Failed to reset password"}
	epProfileGet = endpoint{method: http.MethodGet, path: "profile/", auth: true,
		fallback: "Failed to load profile"}
	epProfilePatch = endpoint{method: http.MethodPatch, path: "profile/", auth: true,
		fallback: "Failed to update profile"}
	epLogout = endpoint{method: http.MethodPost, path: "logout/", auth: true, noRefresh: true,
		fallback: "Failed to log out"}
)

// SendVerificationEmail starts signup by mailing a code to email.
func (c *APIClient) SendVerificationEmail(ctx context.Context, email string) error {
	return c.do(ctx, epSignupEmail, emailRequest{Email: email}, nil)
}

// VerifyCode checks the signup code mailed to email.
func (c *APIClient) VerifyCode(ctx context.Context, email, code string) error {
	return c.do(ctx, epVerifyCode, codeRequest{Email: email, Code: code}, nil)
}

// CompleteSignup creates the account. Tokens in the result are not stored.
func (c *APIClient) CompleteSignup(ctx context.Context, data models.SignupData) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.do(ctx, epSignupComplete, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair. Tokens are not stored.
func (c *APIClient) Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.do(ctx, epLogin, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) SendPasswordResetEmail(ctx context.Context, email string) error {
	return c.do(ctx, epResetEmail, emailRequest{Email: email}, nil)
}

func (c *APIClient) ValidateResetCode(ctx context.Context, email, code string) error {
	return c.do(ctx, epResetValidate, codeRequest{Email: email, Code: code}, nil)
}

func (c *APIClient) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.do(ctx, epResetConfirm, resetConfirmRequest{Email: email, Code: code, NewPassword: newPassword}, nil)
}

// Profile fetches the authenticated user.
func (c *APIClient) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, epProfileGet, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile sends the touched fields of patch and decodes the
// server's representation over into.
func (c *APIClient) UpdateProfile(ctx context.Context, patch models.ProfileUpdate, into *models.User) error {
	return c.do(ctx, epProfilePatch, patch, into)
}

// Logout asks the server to invalidate refresh. It never refreshes on 401.
func (c *APIClient) Logout(ctx context.Context, refresh string) error {
	return c.do(ctx, epLogout, refreshRequest{Refresh: refresh}, nil)
}
