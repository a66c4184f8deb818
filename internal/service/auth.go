package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/bcrypt"
	"taskflow/internal/apperrors"
	"taskflow/internal/auth"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

const (
	bcryptCost        = 10
	verificationTTL   = 24 * time.Hour
	verifyFirstPrompt = "Please verify your email address before logging in. Check your inbox for the verification link."
)

// EmailQueueFunc queues an email command for asynchronous delivery.
// Production wiring passes queue.PublishEmailCommand; nil disables email.
type EmailQueueFunc func(ctx context.Context, cmd *models.EmailCommand) error

// Auth handles registration, login, and email verification.
type Auth struct {
	users      UserStore
	queueEmail EmailQueueFunc
}

// NewAuth wires the auth service.
func NewAuth(users UserStore, queueEmail EmailQueueFunc) *Auth {
	return &Auth{users: users, queueEmail: queueEmail}
}

// AuthResult is the login/registration response payload.
type AuthResult struct {
	User  *UserProfile `json:"user"`
	Token string       `json:"token"`
}

// UserProfile is the caller-visible account view.
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required,max=100"`
}

// LoginInput carries a login request.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account, queues the verification email (best-effort)
// and returns a token. The account cannot log in until verified.
func (s *Auth) Register(ctx context.Context, input *RegisterInput) (*AuthResult, error) {
	existing, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("User with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	token := newVerificationToken()
	expiry := time.Now().Add(verificationTTL)
	user := &models.User{
		Email:              input.Email,
		Name:               input.Name,
		Password:           string(hashed),
		VerificationToken:  &token,
		VerificationExpiry: &expiry,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.sendVerificationEmail(ctx, user.Email, user.Name, token)

	jwtToken, err := auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:  &UserProfile{ID: user.ID, Email: user.Email, Name: user.Name},
		Token: jwtToken,
	}, nil
}

// Login checks credentials and the verified flag and returns a token. The
// unknown-email and wrong-password failures are indistinguishable.
func (s *Auth) Login(ctx context.Context, input *LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if !user.EmailVerified {
		return nil, apperrors.Unauthorized(verifyFirstPrompt)
	}
	token, err := auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:  &UserProfile{ID: user.ID, Email: user.Email, Name: user.Name, EmailVerified: true},
		Token: token,
	}, nil
}

// VerifyEmail flips the verified flag for the user holding the token.
// Verifying an already-verified account succeeds.
func (s *Auth) VerifyEmail(ctx context.Context, token string) (string, error) {
	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", apperrors.Validation("Invalid or expired verification token")
	}
	if user.VerificationExpiry != nil && user.VerificationExpiry.Before(time.Now()) {
		return "", apperrors.Validation("Verification token has expired. Please request a new one.")
	}
	if user.EmailVerified {
		return "Email is already verified", nil
	}
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return "", err
	}
	return "Email verified successfully", nil
}

// ResendVerification issues a fresh token and re-queues the email. The
// response does not reveal whether the address exists.
func (s *Auth) ResendVerification(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "If the email exists, a verification link has been sent", nil
	}
	if user.EmailVerified {
		return "", apperrors.Validation("Email is already verified")
	}
	token := newVerificationToken()
	if err := s.users.SetVerificationToken(ctx, user.ID, token, time.Now().Add(verificationTTL)); err != nil {
		return "", err
	}
	s.sendVerificationEmail(ctx, user.Email, user.Name, token)
	return "Verification email sent successfully", nil
}

// GetProfile returns the account view for the given user.
func (s *Auth) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return &UserProfile{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}, nil
}

// UpdateProfile changes the display name.
func (s *Auth) UpdateProfile(ctx context.Context, userID, name string) (*UserProfile, error) {
	if name == "" {
		return nil, apperrors.Validation("Name is required")
	}
	user, err := s.users.UpdateName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return &UserProfile{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}, nil
}

// sendVerificationEmail queues the verification email. Registration never
// fails because email delivery failed.
func (s *Auth) sendVerificationEmail(ctx context.Context, to, name, token string) {
	if s.queueEmail == nil {
		return
	}
	err := s.queueEmail(ctx, &models.EmailCommand{
		Kind:        "verification",
		To:          to,
		Name:        name,
		Token:       token,
		RequestedAt: time.Now(),
	})
	if err != nil {
		logger.Error(ctx, "Failed to queue verification email", "error", err, "to", to)
	}
}

func newVerificationToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
