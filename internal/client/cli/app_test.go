package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/session"
	"github.com/dmitrijs2005/kefi/internal/client/storage"
	"github.com/dmitrijs2005/kefi/internal/client/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth implements services.AuthService and Accounts.
type fakeAuth struct {
	calls []string

	loginUser *models.User
	loginErr  error
	signupErr error
	updateErr error
	resetErr  error

	lastLogin  []any
	lastSignup models.SignupData
	lastPatch  models.ProfileUpdate
	lastReset  []string

	store *tokenstore.Store
}

func (f *fakeAuth) SendVerificationEmail(_ context.Context, email string) error {
	f.calls = append(f.calls, "SendVerificationEmail:"+email)
	return nil
}
func (f *fakeAuth) VerifyCode(_ context.Context, email, code string) error {
	f.calls = append(f.calls, "VerifyCode:"+code)
	return nil
}
func (f *fakeAuth) CompleteSignup(_ context.Context, data models.SignupData) (*models.AuthResult, error) {
	f.calls = append(f.calls, "CompleteSignup")
	f.lastSignup = data
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.AuthResult{Tokens: models.Tokens{Access: "a", Refresh: "r"}, User: &models.User{Username: data.Username}}, nil
}
func (f *fakeAuth) Login(_ context.Context, identifier, password string, rememberMe bool) (*models.AuthResult, error) {
	f.calls = append(f.calls, "Login")
	f.lastLogin = []any{identifier, password, rememberMe}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.AuthResult{Tokens: models.Tokens{Access: "a", Refresh: "r"}, User: f.loginUser.Clone()}, nil
}
func (f *fakeAuth) SendPasswordResetEmail(_ context.Context, email string) error {
	f.calls = append(f.calls, "SendPasswordResetEmail")
	return nil
}
func (f *fakeAuth) ValidateResetCode(_ context.Context, email, code string) error {
	f.calls = append(f.calls, "ValidateResetCode")
	return nil
}
func (f *fakeAuth) ResetPassword(_ context.Context, email, code, newPassword string) error {
	f.calls = append(f.calls, "ResetPassword")
	f.lastReset = []string{email, code, newPassword}
	return f.resetErr
}
func (f *fakeAuth) FetchUserProfile(context.Context) (*models.User, error) {
	f.calls = append(f.calls, "FetchUserProfile")
	return f.loginUser.Clone(), nil
}
func (f *fakeAuth) UpdateProfile(_ context.Context, patch models.ProfileUpdate, into *models.User) error {
	f.calls = append(f.calls, "UpdateProfile")
	f.lastPatch = patch
	if f.updateErr != nil {
		return f.updateErr
	}
	into.ProfileCompleted = true
	return nil
}
func (f *fakeAuth) RefreshSession(context.Context) error { return nil }
func (f *fakeAuth) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "Logout")
	_ = f.store.ClearTokens(ctx)
	return autherr.ErrNetwork
}

// stubInputs feeds answers to every prompt in order.
func stubInputs(t *testing.T, answers ...string) *[]string {
	t.Helper()
	origST, origGP, origYN := getSimpleText, getPassword, getYesNo
	t.Cleanup(func() { getSimpleText, getPassword, getYesNo = origST, origGP, origYN })

	prompts := &[]string{}
	next := func(prompt string) (string, error) {
		*prompts = append(*prompts, prompt)
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) { return next(prompt) }
	getPassword = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) { return next(prompt) }
	getYesNo = func(_ *bufio.Reader, prompt string, _ bool, _ io.Writer) (bool, error) {
		a, err := next(prompt)
		return a == "y", err
	}
	return prompts
}

type harness struct {
	app     *App
	auth    *fakeAuth
	mgr     *session.Manager
	out     *bytes.Buffer
	durable *storage.MemoryArea
	session *storage.MemoryArea
}

func newHarness(t *testing.T, user *models.User) *harness {
	t.Helper()
	durable, sess := storage.NewMemoryArea(), storage.NewMemoryArea()
	store := tokenstore.New(durable, sess)
	auth := &fakeAuth{loginUser: user, store: store}

	var out bytes.Buffer
	router := NewRouter(&out)
	mgr := session.NewManager(auth, store, router, nil, session.Options{})
	t.Cleanup(mgr.Close)
	app := NewApp(mgr, auth, router, strings.NewReader(""), &out, nil)

	require.NoError(t, mgr.Bootstrap(context.Background()))
	return &harness{app: app, auth: auth, mgr: mgr, out: &out, durable: durable, session: sess}
}

func (h *harness) path() string {
	loc, _ := h.app.router.Current()
	return loc.Path
}

func TestApp_LoginNavigatesToDashboard(t *testing.T) {
	h := newHarness(t, &models.User{Username: "alice", ProfileCompleted: true})
	stubInputs(t, "alice", "Secret123", "y")

	require.NoError(t, h.app.Login(context.Background()))

	assert.Equal(t, []any{"alice", "Secret123", true}, h.auth.lastLogin)
	assert.Equal(t, session.PathDashboard, h.path())
	assert.Contains(t, h.out.String(), "Welcome, alice!")
	assert.Contains(t, h.durable.Snapshot(), tokenstore.KeyAccess)
	assert.Contains(t, h.app.status(), "alice /dashboard")
}

func TestApp_LoginFailureShowsError(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.loginErr = &autherr.Error{Kind: autherr.KindRateLimit, Message: "Too many attempts.", RetryAfter: 30 * time.Second}
	stubInputs(t, "alice", "bad", "n")

	require.ErrorIs(t, h.app.Login(context.Background()), autherr.ErrRateLimit)
	assert.Equal(t, session.PathLogin, h.path())
	assert.Contains(t, h.out.String(), "Error: Too many attempts.")
	assert.Contains(t, h.out.String(), "Try again in 30s.")
}

func TestApp_LoginWhenAuthenticatedDoesNotPrompt(t *testing.T) {
	h := newHarness(t, &models.User{Username: "alice", ProfileCompleted: true})
	stubInputs(t, "alice", "Secret123", "n")
	require.NoError(t, h.app.Login(context.Background()))

	prompts := stubInputs(t)
	require.NoError(t, h.app.Login(context.Background()))
	assert.Empty(t, *prompts)
	assert.Equal(t, session.PathDashboard, h.path())
}

func TestApp_SignupToCompleteProfile(t *testing.T) {
	h := newHarness(t, nil)
	stubInputs(t, "bob@example.com", "123456", "bob", "Secret123", "Secret123", "Bob B", "1999-01-02", "Male", "y")

	require.NoError(t, h.app.Signup(context.Background()))

	assert.Equal(t, []string{"SendVerificationEmail:bob@example.com", "VerifyCode:123456", "CompleteSignup"}, h.auth.calls)
	assert.Equal(t, "bob", h.auth.lastSignup.Username)
	require.NotNil(t, h.auth.lastSignup.IsStudent)
	assert.True(t, *h.auth.lastSignup.IsStudent)
	assert.Equal(t, session.PathCompleteProfile, h.path())
}

func TestApp_SignupPasswordMismatch(t *testing.T) {
	h := newHarness(t, nil)
	stubInputs(t, "bob@example.com", "123456", "bob", "Secret123", "Secret124")

	require.ErrorIs(t, h.app.Signup(context.Background()), autherr.ErrValidation)
	assert.NotContains(t, h.auth.calls, "CompleteSignup")
	assert.Contains(t, h.out.String(), "Passwords do not match.")
}

func TestApp_ForgotPasswordReturnsToLogin(t *testing.T) {
	h := newHarness(t, nil)
	stubInputs(t, "a@b.co", "654321", "NewSecret1", "NewSecret1")

	require.NoError(t, h.app.Forgot(context.Background()))
	assert.Equal(t, []string{"a@b.co", "654321", "NewSecret1"}, h.auth.lastReset)
	assert.Equal(t, session.PathLogin, h.path())
}

func TestApp_CompleteProfileMovesToDashboard(t *testing.T) {
	h := newHarness(t, &models.User{Username: "bob"})
	stubInputs(t, "bob", "Secret123", "n")
	require.NoError(t, h.app.Login(context.Background()))
	require.Equal(t, session.PathCompleteProfile, h.path())

	// nickname set, phone kept, country cleared, state kept, university yes
	stubInputs(t, "bobby", "", "-", "", "y")
	require.NoError(t, h.app.CompleteProfile(context.Background()))

	v, ok := h.auth.lastPatch.Nickname.Value()
	assert.True(t, ok)
	assert.Equal(t, "bobby", v)
	assert.False(t, h.auth.lastPatch.Phone.IsSet())
	assert.True(t, h.auth.lastPatch.Country.IsClear())
	assert.True(t, h.auth.lastPatch.IsUniversity.IsSet())

	h.app.Revalidate()
	assert.Equal(t, session.PathDashboard, h.path())
}

func TestApp_EmptyProfileEditSendsNothing(t *testing.T) {
	h := newHarness(t, &models.User{Username: "alice", ProfileCompleted: true})
	stubInputs(t, "alice", "Secret123", "n")
	require.NoError(t, h.app.Login(context.Background()))

	stubInputs(t, "", "", "", "", "")
	require.NoError(t, h.app.EditProfile(context.Background()))
	assert.NotContains(t, h.auth.calls, "UpdateProfile")
	assert.Contains(t, h.out.String(), "Nothing to update.")
}

func TestApp_LogoutIgnoresServerFailure(t *testing.T) {
	h := newHarness(t, &models.User{Username: "alice", ProfileCompleted: true})
	stubInputs(t, "alice", "Secret123", "n")
	require.NoError(t, h.app.Login(context.Background()))

	require.NoError(t, h.app.Logout(context.Background()))
	assert.Equal(t, session.PathLogin, h.path())
	assert.Empty(t, h.session.Snapshot())
	assert.False(t, h.app.isLoggedIn())
}

func TestApp_ProtectedPageWhileAnonymous(t *testing.T) {
	h := newHarness(t, nil)
	prompts := stubInputs(t)

	require.NoError(t, h.app.EditProfile(context.Background()))
	assert.Empty(t, *prompts)
	assert.Equal(t, session.PathLogin, h.path())
	assert.Contains(t, h.out.String(), session.MsgLoginRequired)
}
