package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subfinder/api/internal/domain"
	jwtinfra "github.com/subfinder/api/internal/infrastructure/jwt"
	"github.com/subfinder/api/internal/infrastructure/smtp"
	"github.com/subfinder/api/internal/pkg/id"
	"github.com/subfinder/api/internal/pkg/secret"
)

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	VerifyEmail(ctx context.Context, userID, token string) (string, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (string, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	SetVerified(ctx context.Context, userID string) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

type tokenIssuer interface {
	IssueSession(email, userID string) (string, error)
	IssueVerification(email string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type mailDispatcher interface {
	Enqueue(e smtp.Email)
}

type service struct {
	users       userStore
	resetTokens *ResetTokenManager
	issuer      tokenIssuer
	mail        mailDispatcher
	origin      string
	bcryptCost  int
}

type ServiceDeps struct {
	UserRepo    userStore
	ResetTokens *ResetTokenManager
	TokenIssuer tokenIssuer
	Mail        mailDispatcher
	Origin      string
	BcryptCost  int
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:       deps.UserRepo,
		resetTokens: deps.ResetTokens,
		issuer:      deps.TokenIssuer,
		mail:        deps.Mail,
		origin:      deps.Origin,
		bcryptCost:  deps.BcryptCost,
	}
}

// Register creates an unverified account and dispatches the verification
// email. Input shape is validated at the transport layer; uniqueness is
// pre-checked here, with the store's conditional write as the backstop for
// two concurrent registrations passing the pre-check together.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	existing, err := s.users.GetByEmailOrUsername(ctx, req.Email, req.Username)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", collisionMessage(req, existing), domain.ErrConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := secret.Hash([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.issuer.IssueVerification(u.Email)
	if err != nil {
		return nil, err
	}
	body, err := smtp.RenderVerifyProfile(smtp.LinkPayload{
		Name: u.Username,
		Link: fmt.Sprintf("%s/verify-email/%s/%s", s.origin, u.UserID, token),
	})
	if err != nil {
		slog.Error("failed to render verification email", "user_id", u.UserID, "err", err)
		return u, nil
	}
	s.mail.Enqueue(smtp.Email{To: u.Email, Subject: "Account Verification Link", Body: body})
	return u, nil
}

// collisionMessage names exactly the field(s) the request collides on.
func collisionMessage(req domain.RegisterRequest, existing *domain.User) string {
	var errs []string
	if req.Email == existing.Email {
		errs = append(errs, "Email already exists")
	}
	if req.Username == existing.Username {
		errs = append(errs, "Username already exists")
	}
	if len(errs) < 2 {
		return errs[0]
	}
	return "Email and Username already exists"
}

// VerifyEmail flips the account to verified when the presented token is a
// valid signed verification token whose email claim matches the account.
// Repeat calls after success are idempotent.
func (s *service) VerifyEmail(ctx context.Context, userID, token string) (string, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.Verified {
		return "Email already verified. Please sign in.", nil
	}
	claims, err := s.issuer.Verify(token)
	if err != nil || claims.Email != u.Email {
		return "", fmt.Errorf("verification token is not valid: %w", domain.ErrInvalidCredential)
	}
	if err := s.users.SetVerified(ctx, u.UserID); err != nil {
		return "", err
	}
	return "Email verified successfully.", nil
}

// Login checks credentials and issues a session token. Unknown email and
// wrong password produce the same failure so neither field is disambiguated.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("email or password invalid: %w", domain.ErrInvalidCredential)
		}
		return nil, "", err
	}
	if !u.Verified {
		return nil, "", fmt.Errorf("user is not verified: %w", domain.ErrUnverified)
	}
	if !secret.Verify([]byte(req.Password), u.PasswordHash) {
		return nil, "", fmt.Errorf("email or password invalid: %w", domain.ErrInvalidCredential)
	}
	token, err := s.issuer.IssueSession(u.Email, u.UserID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// ForgotPassword issues a fresh reset token (superseding any prior one) and
// dispatches the reset email. The email-send outcome never reaches the caller.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
		}
		return err
	}
	raw, err := s.resetTokens.IssueFor(ctx, u.UserID)
	if err != nil {
		return err
	}
	body, err := smtp.RenderRequestResetPassword(smtp.LinkPayload{
		Name: u.Username,
		Link: fmt.Sprintf("%s/reset-password?token=%s&email=%s", s.origin, raw, u.Email),
	})
	if err != nil {
		slog.Error("failed to render reset email", "user_id", u.UserID, "err", err)
		return nil
	}
	s.mail.Enqueue(smtp.Email{To: u.Email, Subject: "Reset password link", Body: body})
	return nil
}

// ResetPassword verifies the presented reset token, replaces the password
// hash, and consumes the record so the token cannot validate a second time.
func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (string, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
		}
		return "", err
	}
	if err := s.resetTokens.VerifyFor(ctx, u.UserID, req.Token); err != nil {
		return "", err
	}
	hash, err := secret.Hash([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	if err := s.users.SetPasswordHash(ctx, u.UserID, hash); err != nil {
		return "", err
	}
	if err := s.resetTokens.Consume(ctx, u.UserID); err != nil {
		// Expiry TTL still bounds the orphaned record.
		slog.Warn("failed to delete consumed reset token", "user_id", u.UserID, "err", err)
	}
	return "Password updated successfully.", nil
}
