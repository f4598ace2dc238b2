package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/session"
)

// getSimpleText, getPassword and getYesNo are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getYesNo      = GetYesNo
)

// clearMarker clears an optional profile field.
const clearMarker = "-"

var errPasswordMismatch = autherr.New(autherr.KindValidation, "Passwords do not match.")

func (a *App) showError(err error) {
	fmt.Fprintf(a.out, "Error: %s\n", autherr.Message(err))
	var ae *autherr.Error
	if errors.As(err, &ae) && ae.RetryAfter > 0 {
		fmt.Fprintf(a.out, "Try again in %s.\n", ae.RetryAfter)
	}
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// newPassword reads a password twice.
func (a *App) newPassword(prompt string) (string, error) {
	pw, err := getPassword(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	confirm, err := getPassword(a.reader, "Confirm password", a.out)
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errPasswordMismatch
	}
	return pw, nil
}

// Login reads credentials on the login page and signs in. The session
// manager navigates on success.
func (a *App) Login(ctx context.Context) error {
	if !a.open(session.PathLogin) {
		return nil
	}
	a.session.ClearError()

	identifier, err := a.ask("Username or email")
	if err != nil {
		return err
	}
	pw, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	remember, err := getYesNo(a.reader, "Remember me?", false, a.out)
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, identifier, pw, remember); err != nil {
		a.showError(err)
		return err
	}
	return nil
}

// Signup walks through email verification and account creation.
func (a *App) Signup(ctx context.Context) error {
	if !a.open(session.PathSignup) {
		return nil
	}
	a.session.ClearError()

	email, err := a.ask("Email")
	if err != nil {
		return err
	}
	if err := a.accounts.SendVerificationEmail(ctx, email); err != nil {
		a.showError(err)
		return err
	}
	fmt.Fprintf(a.out, "A verification code was sent to %s.\n", email)

	code, err := a.ask("Verification code")
	if err != nil {
		return err
	}
	if err := a.accounts.VerifyCode(ctx, email, code); err != nil {
		a.showError(err)
		return err
	}

	data := models.SignupData{Email: email}
	if data.Username, err = a.ask("Username"); err != nil {
		return err
	}
	if data.Password, err = a.newPassword("Password"); err != nil {
		a.showError(err)
		return err
	}
	if data.FullName, err = a.ask("Full name"); err != nil {
		return err
	}
	if data.BirthDate, err = a.ask("Birth date (YYYY-MM-DD)"); err != nil {
		return err
	}
	if data.Gender, err = a.ask("Gender (Male, Female, Other)"); err != nil {
		return err
	}
	student, err := getYesNo(a.reader, "Are you a student?", false, a.out)
	if err != nil {
		return err
	}
	data.IsStudent = &student

	if err := a.session.Signup(ctx, data); err != nil {
		a.showError(err)
		return err
	}
	return nil
}

// Forgot resets the password with an emailed code and returns to login.
func (a *App) Forgot(ctx context.Context) error {
	if !a.open(session.PathForgotPassword) {
		return nil
	}

	email, err := a.ask("Email")
	if err != nil {
		return err
	}
	if err := a.accounts.SendPasswordResetEmail(ctx, email); err != nil {
		a.showError(err)
		return err
	}
	fmt.Fprintf(a.out, "If %s has an account, a reset code is on its way.\n", email)

	code, err := a.ask("Reset code")
	if err != nil {
		return err
	}
	if err := a.accounts.ValidateResetCode(ctx, email, code); err != nil {
		a.showError(err)
		return err
	}

	pw, err := a.newPassword("New password")
	if err != nil {
		a.showError(err)
		return err
	}
	if err := a.accounts.ResetPassword(ctx, email, code, pw); err != nil {
		a.showError(err)
		return err
	}

	fmt.Fprintln(a.out, "Password reset successfully. You can now log in.")
	a.router.Navigate(session.PathLogin, session.NavState{})
	return nil
}

// EditProfile edits the optional profile fields on the profile page.
func (a *App) EditProfile(ctx context.Context) error {
	if !a.open(session.PathProfile) {
		return nil
	}
	return a.updateProfile(ctx)
}

// CompleteProfile fills in the fields required before the dashboard opens.
// The guards move the user on once the backend marks the profile complete.
func (a *App) CompleteProfile(ctx context.Context) error {
	if !a.open(session.PathCompleteProfile) {
		return nil
	}
	return a.updateProfile(ctx)
}

func (a *App) updateProfile(ctx context.Context) error {
	a.session.ClearError()

	patch, err := a.profilePatch(a.session.State().User)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		fmt.Fprintln(a.out, "Nothing to update.")
		return nil
	}

	if err := a.session.UpdateProfile(ctx, patch); err != nil {
		a.showError(err)
		return err
	}
	fmt.Fprintln(a.out, "Profile updated.")
	return nil
}

// profilePatch prompts for each optional field. Enter keeps the current
// value and "-" clears it.
func (a *App) profilePatch(u *models.User) (models.ProfileUpdate, error) {
	if u == nil {
		u = &models.User{}
	}
	fmt.Fprintf(a.out, "Press Enter to keep a value, '%s' to clear it.\n", clearMarker)

	var patch models.ProfileUpdate
	fields := []struct {
		label   string
		current *string
		dst     *models.Patch[string]
	}{
		{"Nickname", u.Nickname, &patch.Nickname},
		{"Phone", u.Phone, &patch.Phone},
		{"Country", u.Country, &patch.Country},
		{"State", u.State, &patch.State},
	}
	for _, f := range fields {
		v, err := a.ask(fmt.Sprintf("%s [%s]", f.label, orDash(f.current)))
		if err != nil {
			return patch, err
		}
		switch v {
		case "":
		case clearMarker:
			*f.dst = models.Clear[string]()
		default:
			*f.dst = models.Set(v)
		}
	}

	v, err := a.ask(fmt.Sprintf("University student? y/n [%s]", yesNo(u.IsUniversity)))
	if err != nil {
		return patch, err
	}
	switch strings.ToLower(v) {
	case "y", "yes":
		patch.IsUniversity = models.Set(true)
	case "n", "no":
		patch.IsUniversity = models.Set(false)
	}
	return patch, nil
}

// Reload re-fetches the profile from the server.
func (a *App) Reload(ctx context.Context) error {
	if err := a.session.RefreshProfile(ctx); err != nil {
		a.showError(err)
		return err
	}
	fmt.Fprintln(a.out, "Profile reloaded.")
	return nil
}

// Logout signs out. Server failures never block the return to login.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}
