package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"taskflow/internal/apperrors"
	"taskflow/internal/models"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Exit(m.Run())
}

type authFixture struct {
	users  *fakeUserStore
	svc    *Auth
	emails []*models.EmailCommand
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	fx := &authFixture{users: newFakeUserStore()}
	fx.svc = NewAuth(fx.users, func(ctx context.Context, cmd *models.EmailCommand) error {
		fx.emails = append(fx.emails, cmd)
		return nil
	})
	return fx
}

func TestRegisterLoginVerifyFlow(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Register(ctx, &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	if result.Token == "" {
		t.Error("Register() returned no token")
	}
	if result.User.EmailVerified {
		t.Error("new account reports verified")
	}
	if len(fx.emails) != 1 || fx.emails[0].Kind != "verification" || fx.emails[0].To != "a@x.com" {
		t.Fatalf("queued emails = %+v, want one verification email to a@x.com", fx.emails)
	}

	// Login before verification is rejected with the verify prompt.
	_, err = fx.svc.Login(ctx, &LoginInput{Email: "a@x.com", Password: "secret1"})
	if !apperrors.IsUnauthorized(err) {
		t.Fatalf("Login() before verify error = %v, want UnauthorizedError", err)
	}
	if !strings.Contains(err.Error(), "Please verify your email") {
		t.Errorf("error = %q, want verify prompt", err.Error())
	}

	message, err := fx.svc.VerifyEmail(ctx, fx.emails[0].Token)
	if err != nil {
		t.Fatalf("VerifyEmail() unexpected error: %v", err)
	}
	if message != "Email verified successfully" {
		t.Errorf("message = %q", message)
	}

	login, err := fx.svc.Login(ctx, &LoginInput{Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login() after verify unexpected error: %v", err)
	}
	if login.Token == "" {
		t.Error("Login() returned no token")
	}
	if !login.User.EmailVerified {
		t.Error("login result not marked verified")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	input := &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"}
	if _, err := fx.svc.Register(ctx, input); err != nil {
		t.Fatalf("first Register() unexpected error: %v", err)
	}
	_, err := fx.svc.Register(ctx, input)
	if !apperrors.IsConflict(err) {
		t.Fatalf("duplicate Register() error = %v, want ConflictError", err)
	}
}

func TestRegister_EmailQueueFailureDoesNotFailRegistration(t *testing.T) {
	users := newFakeUserStore()
	svc := NewAuth(users, func(ctx context.Context, cmd *models.EmailCommand) error {
		return context.DeadlineExceeded
	})
	result, err := svc.Register(context.Background(), &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	if err != nil {
		t.Fatalf("Register() failed because email queue failed: %v", err)
	}
	if result.Token == "" {
		t.Error("Register() returned no token")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.svc.Register(ctx, &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	fx.svc.VerifyEmail(ctx, fx.emails[0].Token)

	// Unknown email and wrong password produce the same message.
	_, errUnknown := fx.svc.Login(ctx, &LoginInput{Email: "nobody@x.com", Password: "secret1"})
	_, errWrong := fx.svc.Login(ctx, &LoginInput{Email: "a@x.com", Password: "wrong"})
	for _, err := range []error{errUnknown, errWrong} {
		if !apperrors.IsUnauthorized(err) {
			t.Fatalf("Login() error = %v, want UnauthorizedError", err)
		}
		if err.Error() != "Invalid email or password" {
			t.Errorf("error = %q, want %q", err.Error(), "Invalid email or password")
		}
	}
}

func TestVerifyEmail_Errors(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.VerifyEmail(ctx, "bogus"); !apperrors.IsValidation(err) {
		t.Errorf("VerifyEmail(bogus) error = %v, want ValidationError", err)
	}

	fx.svc.Register(ctx, &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	user, _ := fx.users.FindByEmail(ctx, "a@x.com")
	expired := time.Now().Add(-time.Hour)
	user.VerificationExpiry = &expired
	_, err := fx.svc.VerifyEmail(ctx, *user.VerificationToken)
	if !apperrors.IsValidation(err) || !strings.Contains(err.Error(), "expired") {
		t.Errorf("VerifyEmail(expired) error = %v, want expiry ValidationError", err)
	}
}

func TestVerifyEmail_AlreadyVerified(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.svc.Register(ctx, &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	user, _ := fx.users.FindByEmail(ctx, "a@x.com")
	token := *user.VerificationToken
	user.EmailVerified = true

	message, err := fx.svc.VerifyEmail(ctx, token)
	if err != nil {
		t.Fatalf("VerifyEmail() on verified account errored: %v", err)
	}
	if message != "Email is already verified" {
		t.Errorf("message = %q", message)
	}
}

func TestResendVerification(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	// Unknown address gets the non-revealing response and no email.
	message, err := fx.svc.ResendVerification(ctx, "nobody@x.com")
	if err != nil {
		t.Fatalf("ResendVerification() unexpected error: %v", err)
	}
	if !strings.Contains(message, "If the email exists") {
		t.Errorf("message = %q, want non-revealing response", message)
	}
	if len(fx.emails) != 0 {
		t.Errorf("emails = %d, want 0 for unknown address", len(fx.emails))
	}

	fx.svc.Register(ctx, &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	firstToken := fx.emails[0].Token

	if _, err := fx.svc.ResendVerification(ctx, "a@x.com"); err != nil {
		t.Fatalf("ResendVerification() unexpected error: %v", err)
	}
	if len(fx.emails) != 2 {
		t.Fatalf("emails = %d, want 2", len(fx.emails))
	}
	if fx.emails[1].Token == firstToken {
		t.Error("resend did not rotate the verification token")
	}

	fx.svc.VerifyEmail(ctx, fx.emails[1].Token)
	if _, err := fx.svc.ResendVerification(ctx, "a@x.com"); !apperrors.IsValidation(err) {
		t.Errorf("ResendVerification() on verified account error = %v, want ValidationError", err)
	}
}

func TestProfile(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.svc.Register(ctx, &RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	user, _ := fx.users.FindByEmail(ctx, "a@x.com")

	profile, err := fx.svc.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetProfile() unexpected error: %v", err)
	}
	if profile.Email != "a@x.com" || profile.Name != "A" {
		t.Errorf("profile = %+v", profile)
	}

	updated, err := fx.svc.UpdateProfile(ctx, user.ID, "Alice")
	if err != nil {
		t.Fatalf("UpdateProfile() unexpected error: %v", err)
	}
	if updated.Name != "Alice" {
		t.Errorf("name = %q, want Alice", updated.Name)
	}

	if _, err := fx.svc.GetProfile(ctx, "missing"); !apperrors.IsNotFound(err) {
		t.Errorf("GetProfile(missing) error = %v, want NotFoundError", err)
	}
}
